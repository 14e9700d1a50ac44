// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/AleutianAI/actor-core/services/actor/storage/badger"
	"github.com/AleutianAI/actor-core/services/actor/types"
)

// keyPrefix namespaces snapshot entries inside the shared database.
const keyPrefix = "snap:"

// BadgerCache is the far tier: snapshots CBOR-encoded into an embedded
// BadgerDB. Entry TTLs are enforced by Badger itself.
type BadgerCache struct {
	db         *badger.DB
	defaultTTL time.Duration

	hits        int64
	misses      int64
	expirations int64
}

// NewBadgerCache wraps an open database as a far tier. The caller
// retains ownership of db and must Close it after the cache is done.
func NewBadgerCache(db *badger.DB, defaultTTL time.Duration) *BadgerCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &BadgerCache{db: db, defaultTTL: defaultTTL}
}

// Get implements Cache.
func (c *BadgerCache) Get(ctx context.Context, key string) (*types.Snapshot, bool, error) {
	var snap *types.Snapshot

	err := c.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var s types.Snapshot
			if err := cbor.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("%w: %v", ErrCodec, err)
			}
			snap = &s
			return nil
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		atomic.AddInt64(&c.misses, 1)
		recordMiss(ctx, "far")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("far tier get %q: %w", key, err)
	}

	atomic.AddInt64(&c.hits, 1)
	recordHit(ctx, "far")
	return snap, true, nil
}

// Set implements Cache.
func (c *BadgerCache) Set(ctx context.Context, key string, snap *types.Snapshot, ttl time.Duration) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if key == "" || ttl < 0 {
		return types.ErrInvalidInput
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	payload, err := cbor.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCodec, err)
	}

	return c.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry([]byte(keyPrefix+key), payload).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
}

// Delete implements Cache.
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	err := c.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Clear implements Cache. Only snapshot-prefixed keys are dropped, so
// other tenants of the database are untouched.
func (c *BadgerCache) Clear(ctx context.Context) error {
	return c.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.IteratorOptions{
			Prefix:         []byte(keyPrefix),
			PrefetchValues: false,
		})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetMany implements Cache with a single read transaction.
func (c *BadgerCache) GetMany(ctx context.Context, keys []string) (map[string]*types.Snapshot, error) {
	out := make(map[string]*types.Snapshot, len(keys))

	err := c.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(keyPrefix + key))
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				atomic.AddInt64(&c.misses, 1)
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				var s types.Snapshot
				if err := cbor.Unmarshal(val, &s); err != nil {
					return fmt.Errorf("%w: %v", ErrCodec, err)
				}
				out[key] = &s
				return nil
			})
			if err != nil {
				return err
			}
			atomic.AddInt64(&c.hits, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetMany implements Cache with a single write transaction.
func (c *BadgerCache) SetMany(ctx context.Context, entries map[string]*types.Snapshot, ttl time.Duration) error {
	if ttl < 0 {
		return types.ErrInvalidInput
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	return c.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		for key, snap := range entries {
			if snap == nil {
				return ErrNilSnapshot
			}
			payload, err := cbor.Marshal(snap)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCodec, err)
			}
			entry := badgerdb.NewEntry([]byte(keyPrefix+key), payload).WithTTL(ttl)
			if err := txn.SetEntry(entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats implements Cache. Size counts live prefixed keys, which needs
// an iteration; call sparingly on large databases.
func (c *BadgerCache) Stats() Stats {
	var size int
	_ = c.db.WithReadTxn(context.Background(), func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.IteratorOptions{
			Prefix:         []byte(keyPrefix),
			PrefetchValues: false,
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			size++
		}
		return nil
	})

	return Stats{
		Size:        size,
		Hits:        atomic.LoadInt64(&c.hits),
		Misses:      atomic.LoadInt64(&c.misses),
		Expirations: atomic.LoadInt64(&c.expirations),
	}
}
