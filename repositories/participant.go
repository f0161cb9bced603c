//go:generate go run go.uber.org/mock/mockgen -source=participant.go -destination=../mocks/mock_participant_repository.go -package=mocks
package repositories

import (
	"batepapo-uol-api/errors"
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const ParticipantPrefix = "participant:"

type IParticipantRepository interface {
	CreateParticipant(ctx context.Context, participant DiskParticipant) error
	GetParticipant(ctx context.Context, name string) (DiskParticipant, error)
	UpdateLastSeen(ctx context.Context, name string, at time.Time) error
	ListParticipants(ctx context.Context) ([]DiskParticipant, error)
	DeleteParticipants(ctx context.Context, names ...string) error
}

type ParticipantRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewParticipantRepository(db *badger.DB, log *slog.Logger) ParticipantRepository {
	return ParticipantRepository{db: db, log: log}
}

type DiskParticipant struct {
	Name     string    `json:"name"`
	LastSeen time.Time `json:"last_seen"`
	JoinedAt time.Time `json:"joined_at"`
}

func participantKey(name string) []byte {
	return []byte(ParticipantPrefix + name)
}

// CreateParticipant persists a new participant.
// The existence check and the write share one transaction, so two concurrent
// creations of the same name cannot both succeed.
func (r ParticipantRepository) CreateParticipant(ctx context.Context, participant DiskParticipant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(participant)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := participantKey(participant.Name)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrParticipantAlreadyExists
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (r ParticipantRepository) GetParticipant(ctx context.Context, name string) (DiskParticipant, error) {
	if err := ctx.Err(); err != nil {
		return DiskParticipant{}, err
	}
	var participant DiskParticipant
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(participantKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &participant)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return DiskParticipant{}, errors.ErrParticipantNotFound
	}
	return participant, err
}

func (r ParticipantRepository) UpdateLastSeen(ctx context.Context, name string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(participantKey(name))
		if err != nil {
			return err
		}
		var participant DiskParticipant
		if err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &participant)
		}); err != nil {
			return err
		}
		participant.LastSeen = at
		data, err := json.Marshal(participant)
		if err != nil {
			return err
		}
		return txn.Set(participantKey(name), data)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrParticipantNotFound
	}
	return err
}

// ListParticipants scans the participant prefix and returns the entries in join order.
// Badger iterates in key order, so the join timestamp restores insertion order.
func (r ParticipantRepository) ListParticipants(ctx context.Context) ([]DiskParticipant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var participants []DiskParticipant
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(ParticipantPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var participant DiskParticipant
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &participant)
			})
			if err != nil {
				return err
			}
			participants = append(participants, participant)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
	return participants, nil
}

func (r ParticipantRepository) DeleteParticipants(ctx context.Context, names ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	return r.db.Update(func(txn *badger.Txn) error {
		for _, name := range names {
			if err := txn.Delete(participantKey(name)); err != nil {
				return err
			}
		}
		r.log.Debug("Participants deleted", "count", len(names))
		return nil
	})
}
