package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/store"
)

func poolSetPrefix(key domain.PoolKey) string {
	return poolPrefix + key.String() + ":"
}

func poolEntryKey(key domain.PoolKey, albumID string) []byte {
	return []byte(poolSetPrefix(key) + albumID)
}

// AddPoolEntry adds an album to a pool set.
// Returns ErrDuplicateItem when the album is already pooled; the existing
// entry and its authorship are kept. Two concurrent adds of the same album
// conflict in Badger, and the retried loser sees the winner's row.
func (s *Store) AddPoolEntry(ctx context.Context, key domain.PoolKey, entry domain.PoolEntry) error {
	if entry.AlbumID() == "" {
		return domainerrors.Validation("album id is required")
	}
	k := poolEntryKey(key, entry.AlbumID())

	return s.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		if err == nil {
			return domainerrors.DuplicateItemf("album %s is already in the pool", entry.AlbumID())
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check pool entry: %w", err)
		}
		return setInTxn(txn, k, entry)
	})
}

// RemovePoolEntry deletes an album from a pool set.
func (s *Store) RemovePoolEntry(ctx context.Context, key domain.PoolKey, albumID string) error {
	k := poolEntryKey(key, albumID)

	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(k); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrPoolEntryNotFound
			}
			return err
		}
		return txn.Delete(k)
	})
}

// ListPool returns every entry of a pool set in key order.
func (s *Store) ListPool(ctx context.Context, key domain.PoolKey) ([]domain.PoolEntry, error) {
	entries, err := scanPrefix[domain.PoolEntry](ctx, s, poolSetPrefix(key))
	if err != nil {
		return nil, fmt.Errorf("list pool %s: %w", key, err)
	}
	if entries == nil {
		entries = []domain.PoolEntry{}
	}
	return entries, nil
}

// DeletePoolScope removes every category of a pool scope.
func (s *Store) DeletePoolScope(ctx context.Context, poolID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return deletePrefixInTxn(txn, []byte(poolPrefix+poolID+":"))
	})
}
