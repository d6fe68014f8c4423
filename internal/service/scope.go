package service

import (
	"context"
	"fmt"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/store"
	"github.com/listenupapp/yearlist-server/internal/validation"
)

// validate is the shared request validator.
var validate = validation.New()

// requireUser refuses anonymous callers.
func requireUser(userID string) error {
	if userID == "" {
		return domainerrors.ErrNoScope
	}
	return nil
}

// resolveScope returns the scope userID acts in: solo when groupID is
// empty, otherwise the member scope of a group the user belongs to.
func resolveScope(ctx context.Context, s store.Store, userID, groupID string) (domain.Scope, *domain.Group, error) {
	if err := requireUser(userID); err != nil {
		return domain.Scope{}, nil, err
	}
	if groupID == "" {
		return domain.SoloScope(userID), nil, nil
	}

	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return domain.Scope{}, nil, fmt.Errorf("get group: %w", err)
	}
	if !group.HasMember(userID) {
		return domain.Scope{}, nil, domainerrors.Forbidden("not a member of this group")
	}
	return domain.GroupScope(groupID, userID), group, nil
}

// poolRecipients lists who should hear about changes to a pool.
func poolRecipients(scope domain.Scope, group *domain.Group) []string {
	if group != nil {
		return group.MemberIDs
	}
	return []string{scope.UserID}
}
