package runtime

import (
	"batepapo-uol-api/domain"
	"batepapo-uol-api/repositories"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MessageLog is the append-only ordered history of chat events.
// Appends are serialised so the stamped time never goes backwards relative to
// the order key. Reads do not take the lock and may miss concurrent appends.
type MessageLog struct {
	mu         sync.Mutex
	log        *slog.Logger
	repository repositories.IMessageRepository
	now        Clock
}

func NewMessageLog(log *slog.Logger, repository repositories.IMessageRepository, clock Clock) *MessageLog {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &MessageLog{log: log, repository: repository, now: clock}
}

// Append stores the event and returns it with its id, order key and time.
// Caller supplied ID, Seq and Time are ignored.
func (m *MessageLog) Append(ctx context.Context, e domain.Event) (domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.repository.StoreMessage(ctx, repositories.DiskMessage{
		ID:   uuid.New(),
		From: e.From,
		To:   e.To,
		Text: e.Text,
		Kind: string(e.Kind),
		At:   m.now(),
	})
	if err != nil {
		m.log.Error("Failed to append event", "from", e.From, "kind", e.Kind, "error", err)
		return domain.Event{}, storageError(err)
	}
	return toEvent(stored), nil
}

func (m *MessageLog) ReadAll(ctx context.Context) ([]domain.Event, error) {
	messages, err := m.repository.GetMessages(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return lo.Map(messages, func(item repositories.DiskMessage, _ int) domain.Event {
		return toEvent(item)
	}), nil
}

func (m *MessageLog) Len(ctx context.Context) (int, error) {
	count, err := m.repository.CountMessages(ctx)
	if err != nil {
		return 0, storageError(err)
	}
	return count, nil
}

func toEvent(m repositories.DiskMessage) domain.Event {
	return domain.Event{
		ID:   m.ID,
		Seq:  m.Seq,
		From: m.From,
		To:   m.To,
		Text: m.Text,
		Kind: domain.Kind(m.Kind),
		Time: m.At,
	}
}
