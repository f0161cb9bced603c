// Package runtime owns the live state of the chat: who is present and what
// has been said. It holds no transport or validation logic.
package runtime

import (
	"batepapo-uol-api/contract"
	"batepapo-uol-api/domain"
	"batepapo-uol-api/errors"
	"batepapo-uol-api/repositories"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

type Clock func() time.Time

// Registry tracks active participants and their last activity.
// A single mutex serialises Register, Touch and EvictStaleOlderThan so that a
// sweep can never interleave with the refresh of the participant it evicts.
type Registry struct {
	mu         sync.Mutex
	log        *slog.Logger
	repository repositories.IParticipantRepository
	now        Clock
}

type RegistryOption func(*Registry)

func WithClock(clock Clock) RegistryOption {
	return func(r *Registry) {
		r.now = clock
	}
}

func NewRegistry(log *slog.Logger, repository repositories.IParticipantRepository, opts ...RegistryOption) *Registry {
	r := &Registry{
		log:        log,
		repository: repository,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates the participant with lastSeen set to now.
// It fails with ErrParticipantAlreadyExists when the name is taken.
func (r *Registry) Register(ctx context.Context, name string) (domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	participant := repositories.DiskParticipant{Name: name, LastSeen: now, JoinedAt: now}
	if err := r.repository.CreateParticipant(ctx, participant); err != nil {
		if goerrors.Is(err, errors.ErrParticipantAlreadyExists) {
			return domain.Participant{}, err
		}
		return domain.Participant{}, storageError(err)
	}
	r.log.Debug("Participant registered", "name", name)
	return toParticipant(participant), nil
}

// Touch refreshes the liveness of an existing participant.
func (r *Registry) Touch(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.repository.UpdateLastSeen(ctx, name, r.now()); err != nil {
		if goerrors.Is(err, errors.ErrParticipantNotFound) {
			return err
		}
		return storageError(err)
	}
	return nil
}

func (r *Registry) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.repository.GetParticipant(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case goerrors.Is(err, errors.ErrParticipantNotFound):
		return false, nil
	default:
		return false, storageError(err)
	}
}

// List returns a snapshot of the participants in join order.
func (r *Registry) List(ctx context.Context) ([]domain.Participant, error) {
	participants, err := r.repository.ListParticipants(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return lo.Map(participants, func(item repositories.DiskParticipant, _ int) domain.Participant {
		return toParticipant(item)
	}), nil
}

// EvictStaleOlderThan removes every participant idle for longer than d and
// returns the evicted names. onEvict runs for each name before the lock is
// released, so a departure is always recorded ahead of a new Register of the
// same name. onEvict must not call back into the Registry.
func (r *Registry) EvictStaleOlderThan(ctx context.Context, d time.Duration, onEvict contract.EvictFunc) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants, err := r.repository.ListParticipants(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	cutoff := r.now().Add(-d)
	stale := lo.FilterMap(participants, func(item repositories.DiskParticipant, _ int) (string, bool) {
		return item.Name, toParticipant(item).IsStale(cutoff)
	})
	if len(stale) == 0 {
		return nil, nil
	}
	if err := r.repository.DeleteParticipants(ctx, stale...); err != nil {
		return nil, storageError(err)
	}
	r.log.Debug("Stale participants evicted", "names", stale)
	if onEvict != nil {
		for _, name := range stale {
			onEvict(name)
		}
	}
	return stale, nil
}

func toParticipant(p repositories.DiskParticipant) domain.Participant {
	return domain.Participant{Name: p.Name, LastSeen: p.LastSeen, JoinedAt: p.JoinedAt}
}

func storageError(err error) error {
	return fmt.Errorf("%w: %v", errors.ErrStorage, err)
}
