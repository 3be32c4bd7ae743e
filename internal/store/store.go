// Package store persists what the host keeps across restarts: the exported
// moderation settings and an audit archive of emitted actions.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v4"

	"github.com/lessucettes/chatmod/internal/chat"
	"github.com/lessucettes/chatmod/internal/config"
)

const (
	settingsKey   = "settings:current"
	actionPrefix  = "action:"
	actionTimeFmt = "20060102T150405.000000000"
)

// Store is the generic interface for all storage types.
type Store interface {
	// LoadSettings returns nil data when nothing was saved yet.
	LoadSettings(ctx context.Context) ([]byte, error)
	SaveSettings(ctx context.Context, data []byte) error
	ArchiveAction(ctx context.Context, a chat.Action, ttl time.Duration) error
	ArchivedActions(ctx context.Context) ([]chat.Action, error)
	Close() error
}

type BadgerStore struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to be used as a logger for BadgerDB.
type badgerLogger struct {
	*slog.Logger
}

func (l *badgerLogger) Warningf(f string, v ...any) { l.Warn(fmt.Sprintf(f, v...)) }
func (l *badgerLogger) Errorf(f string, v ...any)   { l.Error(fmt.Sprintf(f, v...)) }
func (l *badgerLogger) Infof(f string, v ...any)    {}
func (l *badgerLogger) Debugf(f string, v ...any)   {}

func NewBadgerStore(cfg *config.DBConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.ValueThreshold = 1024
	opts.Logger = &badgerLogger{slog.Default()}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) LoadSettings(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingsKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return data, nil
}

func (s *BadgerStore) SaveSettings(ctx context.Context, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingsKey), bytes.Clone(data))
	})
}

func actionKey(a chat.Action) []byte {
	return []byte(actionPrefix + a.Timestamp.UTC().Format(actionTimeFmt) + ":" + a.ID)
}

// ArchiveAction stores a with a TTL. Keys sort by timestamp.
func (s *BadgerStore) ArchiveAction(ctx context.Context, a chat.Action, ttl time.Duration) error {
	val, err := sonic.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode action %s: %w", a.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(actionKey(a), val).WithTTL(ttl))
	})
}

// ArchivedActions returns the unexpired archive, oldest first.
func (s *BadgerStore) ArchivedActions(ctx context.Context) ([]chat.Action, error) {
	var out []chat.Action
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(actionPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var a chat.Action
				if err := sonic.Unmarshal(val, &a); err != nil {
					return err
				}
				out = append(out, a)
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to decode archived action %s: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
	return out, err
}
