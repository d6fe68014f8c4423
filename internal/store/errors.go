package store

import (
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

// Sentinel errors. They are domain errors, so errors.Is matches them by code
// across layers: ErrUserNotFound is also an ErrNotFound.
var (
	ErrNotFound      = domainerrors.ErrNotFound
	ErrAlreadyExists = domainerrors.ErrAlreadyExists

	// ErrDuplicateItem is returned when an album is already in a pool set.
	ErrDuplicateItem = domainerrors.ErrDuplicateItem
	// ErrDuplicateRank is returned when a replaced sequence repeats an album.
	ErrDuplicateRank = domainerrors.ErrDuplicateRank

	// ErrUserNotFound is returned when a user cannot be found by ID or email.
	ErrUserNotFound = domainerrors.NotFound("user not found")
	// ErrEmailExists is returned when attempting to create a user with an email that's already in use.
	ErrEmailExists = domainerrors.AlreadyExists("email already in use")
	// ErrSessionNotFound is returned when a session cannot be found.
	ErrSessionNotFound = domainerrors.NotFound("session not found")
	// ErrSessionExpired is returned when attempting to use an expired session.
	ErrSessionExpired = domainerrors.TokenExpired("session expired")
	// ErrGroupNotFound is returned when a group cannot be found by ID or code.
	ErrGroupNotFound = domainerrors.NotFound("group not found")
	// ErrCodeTaken is returned when a join code collides with an existing group.
	ErrCodeTaken = domainerrors.AlreadyExists("join code already in use")
	// ErrPoolEntryNotFound is returned when removing an album that is not pooled.
	ErrPoolEntryNotFound = domainerrors.NotFound("pool entry not found")
)
