package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// initUsers initializes the Users entity on the store.
// Uses case-insensitive email indexing via normalizeEmail transformation.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, userPrefix).
		WithNotFound(store.ErrUserNotFound).
		WithIndexTransform("email",
			func(u *domain.User) []string {
				return []string{normalizeEmail(u.Email)}
			},
			normalizeEmail, // Transform lookups to be case-insensitive
		)
}

// CreateUser creates a new user account.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.Users.Create(ctx, user.ID, user)
	if errors.Is(err, store.ErrAlreadyExists) {
		return store.ErrEmailExists
	}
	return err
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.Users.Get(ctx, id)
}

// GetUsersByIDs retrieves users by ID, skipping any that no longer exist.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.Users.Get(ctx, id)
		if errors.Is(err, store.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "email", email)
}

// UpdateUser updates an existing user.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	err := s.Users.Update(ctx, user.ID, user)
	if errors.Is(err, store.ErrAlreadyExists) {
		return store.ErrEmailExists
	}
	return err
}

// CreateSession creates a new auth session with its refresh token index.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	key := []byte(sessionPrefix + session.ID)
	tokenKey := []byte(sessionByTokenPrefix + session.RefreshTokenHash)

	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return store.ErrAlreadyExists
		}
		if err := setInTxn(txn, key, session); err != nil {
			return err
		}
		return txn.Set(tokenKey, []byte(session.ID))
	})
}

// GetSessionByRefreshToken retrieves a session by its refresh token hash.
// This is used during token refresh flow.
func (s *Store) GetSessionByRefreshToken(_ context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionByTokenPrefix + tokenHash))
		if err != nil {
			return err
		}
		sessionID, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getInTxn(txn, []byte(sessionPrefix+string(sessionID)), &session)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session by token: %w", err)
	}

	if session.IsExpired() {
		return nil, store.ErrSessionExpired
	}
	return &session, nil
}

// UpdateSession updates an existing session (used for token rotation and last seen).
func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	key := []byte(sessionPrefix + session.ID)

	return s.update(ctx, func(txn *badger.Txn) error {
		var old domain.Session
		if err := getInTxn(txn, key, &old); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrSessionNotFound
			}
			return err
		}

		if err := setInTxn(txn, key, session); err != nil {
			return err
		}

		// Update token index if token changed (rotation)
		if old.RefreshTokenHash != session.RefreshTokenHash {
			if err := txn.Delete([]byte(sessionByTokenPrefix + old.RefreshTokenHash)); err != nil {
				return err
			}
			return txn.Set([]byte(sessionByTokenPrefix+session.RefreshTokenHash), []byte(session.ID))
		}
		return nil
	})
}

// DeleteSession deletes a session (logout). Missing sessions are not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	key := []byte(sessionPrefix + id)

	return s.update(ctx, func(txn *badger.Txn) error {
		var session domain.Session
		if err := getInTxn(txn, key, &session); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil // Already gone
			}
			return fmt.Errorf("get session for deletion: %w", err)
		}

		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete([]byte(sessionByTokenPrefix + session.RefreshTokenHash))
	})
}
