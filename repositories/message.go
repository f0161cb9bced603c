//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	MessagePrefix   = "msg:"
	messageSequence = "seq:messages"
	// Number of sequence values leased from badger at once.
	sequenceBandwidth = 100
)

type IMessageRepository interface {
	StoreMessage(ctx context.Context, message DiskMessage) (DiskMessage, error)
	GetMessages(ctx context.Context) ([]DiskMessage, error)
	CountMessages(ctx context.Context) (int, error)
}

type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	sequence *badger.Sequence
}

// NewMessageRepository leases a persistent sequence used as the append order key.
// Close must be called to hand unused sequence values back to badger.
func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequence), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, sequence: seq}, nil
}

type DiskMessage struct {
	Seq  uint64    `json:"seq"`
	ID   uuid.UUID `json:"id"`
	From string    `json:"from"`
	To   string    `json:"to"`
	Text string    `json:"text"`
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
}

// StoreMessage persists a message in BadgerDB under "msg:{seq_padded}".
// The 20-digit zero padding keeps the lexicographical key order equal to the
// append order, and the sequence guarantees two writers never share a key.
func (m *MessageRepository) StoreMessage(ctx context.Context, message DiskMessage) (DiskMessage, error) {
	if err := ctx.Err(); err != nil {
		return DiskMessage{}, err
	}
	next, err := m.sequence.Next()
	if err != nil {
		return DiskMessage{}, err
	}
	// Sequences start at zero; the log is 1-based.
	message.Seq = next + 1
	bytes, err := json.Marshal(message)
	if err != nil {
		return DiskMessage{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.Seq), bytes)
	})
	if err != nil {
		return DiskMessage{}, err
	}
	return message, nil
}

// GetMessages returns the whole history using a prefix scan.
// Thanks to the padded sequence in the key, messages come back in append order.
func (m *MessageRepository) GetMessages(ctx context.Context) ([]DiskMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var diskMessages []DiskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(MessagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message DiskMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &message)
			})
			if err != nil {
				return err
			}
			diskMessages = append(diskMessages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return diskMessages, nil
}

func (m *MessageRepository) CountMessages(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(MessagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close releases the leased sequence range.
func (m *MessageRepository) Close() error {
	if err := m.sequence.Release(); err != nil {
		m.log.Warn("Failed to release message sequence", "error", err)
		return err
	}
	return nil
}

func messageKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", MessagePrefix, seq))
}
