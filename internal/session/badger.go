// NextStream - Media Discovery and Social Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextstream

package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/nextstream/internal/models"
)

const memoryKeyPrefix = "reco_session:"

// BadgerStore persists session memory in BadgerDB. Entries carry a native
// badger TTL, and ExpiresAt is checked on read as well.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
	now func() time.Time
}

// OpenBadgerStore opens (or creates) a badger database at path. An empty
// path opens an in-memory database.
func OpenBadgerStore(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return NewBadgerStore(db, ttl), nil
}

// NewBadgerStore wraps an open badger database.
func NewBadgerStore(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl, now: time.Now}
}

func memoryKey(userID int64) []byte {
	return []byte(memoryKeyPrefix + strconv.FormatInt(userID, 10))
}

// load reads a memory inside txn. A missing or expired memory yields nil.
func (s *BadgerStore) load(txn *badger.Txn, userID int64) (*Memory, error) {
	item, err := txn.Get(memoryKey(userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session memory: %w", err)
	}

	var m Memory
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal session memory: %w", err)
	}
	if m.IsExpired(s.now()) {
		return nil, nil
	}
	return &m, nil
}

// Displayed implements Store.
func (s *BadgerStore) Displayed(ctx context.Context, userID int64) (map[models.MediaKey]bool, error) {
	var m *Memory
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		m, err = s.load(txn, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return map[models.MediaKey]bool{}, nil
	}
	return toSet(m.Displayed), nil
}

// Record implements Store.
func (s *BadgerStore) Record(ctx context.Context, userID int64, keys []models.MediaKey) error {
	return s.db.Update(func(txn *badger.Txn) error {
		m, err := s.load(txn, userID)
		if err != nil {
			return err
		}
		if m == nil {
			m = &Memory{UserID: userID}
		}
		now := s.now()
		m.Displayed = merge(m.Displayed, keys)
		m.UpdatedAt = now
		m.ExpiresAt = now.Add(s.ttl)

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal session memory: %w", err)
		}
		return txn.SetEntry(badger.NewEntry(memoryKey(userID), data).WithTTL(s.ttl))
	})
}

// Reset implements Store.
func (s *BadgerStore) Reset(ctx context.Context, userID int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(memoryKey(userID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete session memory: %w", err)
		}
		return nil
	})
}

// CleanupExpired implements Store. Badger drops expired entries on its own;
// this catches memories whose ExpiresAt passed before the native TTL.
func (s *BadgerStore) CleanupExpired(ctx context.Context) (int, error) {
	var expired [][]byte
	now := s.now()

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(memoryKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var m Memory
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				continue
			}
			if m.IsExpired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan session memories: %w", err)
	}

	count := 0
	for _, key := range expired {
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		}); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
