// Package projection builds per-reader views of the message log.
// It never writes to the log or the registry.
package projection

import (
	"batepapo-uol-api/contract"
	"batepapo-uol-api/domain"
	"context"

	"github.com/samber/lo"
)

type VisibilityFilter struct {
	reader contract.IEventReader
}

func NewVisibilityFilter(reader contract.IEventReader) *VisibilityFilter {
	return &VisibilityFilter{reader: reader}
}

// MessagesVisibleTo scans the full history and keeps what the requester may read.
// A positive limit keeps only the most recent matches, still in log order.
func (f *VisibilityFilter) MessagesVisibleTo(ctx context.Context, requester string, limit int) ([]domain.Event, error) {
	events, err := f.reader.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	visible := lo.Filter(events, func(e domain.Event, _ int) bool {
		return e.VisibleTo(requester)
	})
	return lastN(visible, limit), nil
}

func lastN(events []domain.Event, limit int) []domain.Event {
	if limit <= 0 || limit >= len(events) {
		return events
	}
	return events[len(events)-limit:]
}
