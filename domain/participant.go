// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Participant is a named user currently present in the room.
// At most one live Participant exists per Name.
type Participant struct {
	Name     string
	LastSeen time.Time
	JoinedAt time.Time
}

// IsStale reports whether the participant has been idle since before the cutoff.
func (p Participant) IsStale(cutoff time.Time) bool {
	return p.LastSeen.Before(cutoff)
}
