// Package badgerstore stores the message log in an embedded BadgerDB.
package badgerstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/vovakirdan/wirerelay/internal/store"
)

const (
	directPrefix    = "dm:"
	broadcastPrefix = "bc:"
	sequenceKey     = "seq:messages"
)

// BadgerStore implements store.Store on top of BadgerDB.
//
// Keys embed a zero padded timestamp and the message sequence number, so a
// prefix scan yields messages in chronological order with insertion order as
// the tie breaker:
//
//	dm:{hex(min user)}:{hex(max user)}:{ts}:{seq}
//	bc:{ts}:{seq}
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

type record struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient,omitempty"`
	Body      string `json:"body"`
	At        int64  `json:"at"`
}

// New opens (or creates) a Badger database in dir.
func New(dir string) (*BadgerStore, error) {
	return Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
}

// NewInMemory opens a Badger database that lives only in memory.
func NewInMemory() (*BadgerStore, error) {
	return Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

// Open opens a Badger database with explicit options.
func Open(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), 128)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("get sequence: %w", err)
	}

	return &BadgerStore{db: db, seq: seq}, nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.db.Close()
		return fmt.Errorf("release sequence: %w", err)
	}
	return s.db.Close()
}

// SaveMessage persists a message to storage.
func (s *BadgerStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	id := int64(next) + 1

	data, err := json.Marshal(record{
		ID:        id,
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Body:      msg.Body,
		At:        msg.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	var prefix string
	if msg.Recipient == "" {
		prefix = broadcastPrefix
	} else {
		prefix = conversationPrefix(msg.Sender, msg.Recipient)
	}
	key := fmt.Sprintf("%s%019d:%020d", prefix, msg.CreatedAt.UnixNano(), id)

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	msg.ID = id
	return nil
}

// ListConversation retrieves the direct messages between two users.
func (s *BadgerStore) ListConversation(ctx context.Context, user1, user2 string, limit int) ([]*store.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.scan(conversationPrefix(user1, user2), limit)
}

// ListBroadcasts retrieves the most recent broadcast messages.
func (s *BadgerStore) ListBroadcasts(ctx context.Context, limit int) ([]*store.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*store.Message{}, nil
	}
	return s.scan(broadcastPrefix, limit)
}

// scan returns messages under prefix in chronological order. With a positive
// limit only the newest limit entries are read, walking the keys backwards.
func (s *BadgerStore) scan(prefix string, limit int) ([]*store.Message, error) {
	p := []byte(prefix)
	messages := make([]*store.Message, 0)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = p
		opts.Reverse = limit > 0

		it := txn.NewIterator(opts)
		defer it.Close()

		seek := p
		if opts.Reverse {
			seek = append(append([]byte{}, p...), 0xFF)
		}

		for it.Seek(seek); it.ValidForPrefix(p); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			err := it.Item().Value(func(v []byte) error {
				var rec record
				if err := json.Unmarshal(v, &rec); err != nil {
					return fmt.Errorf("decode message: %w", err)
				}
				messages = append(messages, &store.Message{
					ID:        rec.ID,
					Sender:    rec.Sender,
					Recipient: rec.Recipient,
					Body:      rec.Body,
					CreatedAt: time.Unix(0, rec.At).UTC(),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	if limit > 0 {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}
	return messages, nil
}

// conversationPrefix is identical for (a, b) and (b, a).
func conversationPrefix(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return directPrefix + hex.EncodeToString([]byte(a)) + ":" + hex.EncodeToString([]byte(b)) + ":"
}

// Ensure BadgerStore implements store.Store
var _ store.Store = (*BadgerStore)(nil)
