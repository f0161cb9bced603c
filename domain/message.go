// Package domain contains core concepts of the chat system.
// This file defines Event records and related rules.
// Events are immutable once appended to the log.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindMessage        Kind = "message"
	KindPrivateMessage Kind = "private_message"
	KindStatus         Kind = "status"
)

// Everyone is the addressing target meaning "broadcast to all participants".
const Everyone = "Todos"

const (
	JoinText  = "entra na sala..."
	LeaveText = "sai da sala..."
)

// Event represents an immutable chat log entry.
// Seq is the total order key, Time is stamped by the log at append time.
type Event struct {
	ID   uuid.UUID
	Seq  uint64
	From string
	To   string
	Text string
	Kind Kind
	Time time.Time
}

// VisibleTo reports whether the requester may read the event: the sender and
// the addressee always see it, and everybody sees what is sent to Everyone.
func (e Event) VisibleTo(requester string) bool {
	return e.From == requester || e.To == requester || e.To == Everyone
}

func NewJoinEvent(name string) Event {
	return Event{From: name, To: Everyone, Text: JoinText, Kind: KindStatus}
}

func NewLeaveEvent(name string) Event {
	return Event{From: name, To: Everyone, Text: LeaveText, Kind: KindStatus}
}

// IsPostable reports whether a client is allowed to post events of this kind.
// Status events are generated by the system only.
func (k Kind) IsPostable() bool {
	return k == KindMessage || k == KindPrivateMessage
}
