package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/id"
	"github.com/listenupapp/yearlist-server/internal/ranking"
	"github.com/listenupapp/yearlist-server/internal/sse"
	"github.com/listenupapp/yearlist-server/internal/store"
)

// maxCodeAttempts bounds join code generation retries on collision.
const maxCodeAttempts = 5

// GroupService manages collaborative groups and their membership.
type GroupService struct {
	store    store.Store
	registry *ranking.Registry
	events   *sse.Manager
	logger   *slog.Logger
}

// NewGroupService creates a new group service.
func NewGroupService(s store.Store, registry *ranking.Registry, events *sse.Manager, logger *slog.Logger) *GroupService {
	return &GroupService{
		store:    s,
		registry: registry,
		events:   events,
		logger:   logger,
	}
}

// CreateGroupRequest names a new group.
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

// JoinGroupRequest carries a join code. Codes are case-insensitive.
type JoinGroupRequest struct {
	Code string `json:"code" validate:"required,len=6,alphanum"`
}

// GroupMember is a member as shown in a group's detail view.
type GroupMember struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	AvatarColor string `json:"avatar_color,omitempty"`
	IsOwner     bool   `json:"is_owner"`
}

// GroupDetail is a group with its members resolved.
type GroupDetail struct {
	*domain.Group
	Members []GroupMember `json:"members"`
}

// CreateGroup creates a group owned by userID with a fresh join code.
// The creator is the first member.
func (s *GroupService) CreateGroup(ctx context.Context, userID string, req CreateGroupRequest) (*domain.Group, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	groupID, err := id.Generate("group")
	if err != nil {
		return nil, fmt.Errorf("generate group ID: %w", err)
	}

	for range maxCodeAttempts {
		code, err := id.GenerateCode()
		if err != nil {
			return nil, err
		}

		now := time.Now()
		group := &domain.Group{
			ID:        groupID,
			Name:      strings.TrimSpace(req.Name),
			Code:      code,
			OwnerID:   userID,
			MemberIDs: []string{userID},
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = s.store.CreateGroup(ctx, group)
		if errors.Is(err, store.ErrCodeTaken) {
			s.logger.Debug("join code collision, retrying", "code", code)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create group: %w", err)
		}

		s.logger.Info("group created", "group_id", groupID, "owner_id", userID)
		return group, nil
	}

	return nil, domainerrors.Conflict("could not allocate a unique join code")
}

// JoinGroup adds userID to the group with code. Joining a group the user
// already belongs to returns it unchanged.
func (s *GroupService) JoinGroup(ctx context.Context, userID string, req JoinGroupRequest) (*domain.Group, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	group, err := s.store.GetGroupByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("no group with this code")
		}
		return nil, fmt.Errorf("find group: %w", err)
	}

	if !group.AddMember(userID) {
		return group, nil
	}
	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("update group: %w", err)
	}

	var displayName string
	if user, err := s.store.GetUser(ctx, userID); err == nil {
		displayName = user.Name()
	}
	s.events.EmitToUsers(group.MemberIDs, sse.NewGroupMemberJoinedEvent(group.ID, userID, displayName))

	s.logger.Info("user joined group", "group_id", group.ID, "user_id", userID)
	return group, nil
}

// LeaveGroup removes userID from a group. The member's rankings are kept.
// The owner cannot leave; deleting the group is the way out.
func (s *GroupService) LeaveGroup(ctx context.Context, userID, groupID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}
	if group.IsOwner(userID) {
		return domainerrors.Forbidden("the owner cannot leave the group, delete it instead")
	}
	if !group.RemoveMember(userID) {
		return nil
	}
	if err := s.store.UpdateGroup(ctx, group); err != nil {
		return fmt.Errorf("update group: %w", err)
	}

	s.registry.CloseScope(domain.GroupScope(groupID, userID))
	s.events.EmitToUsers(append(slices.Clone(group.MemberIDs), userID), sse.NewGroupMemberLeftEvent(groupID, userID))

	s.logger.Info("user left group", "group_id", groupID, "user_id", userID)
	return nil
}

// ListGroups returns the groups userID belongs to.
func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]*domain.Group, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// GetGroup returns a group with its members. Only members may read it.
func (s *GroupService) GetGroup(ctx context.Context, userID, groupID string) (*GroupDetail, error) {
	_, group, err := resolveScope(ctx, s.store, userID, groupID)
	if err != nil {
		return nil, err
	}

	users, err := s.store.GetUsersByIDs(ctx, group.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	members := make([]GroupMember, 0, len(users))
	for _, u := range users {
		members = append(members, GroupMember{
			UserID:      u.ID,
			DisplayName: u.Name(),
			AvatarURL:   u.AvatarURL,
			AvatarColor: u.AvatarColor,
			IsOwner:     group.IsOwner(u.ID),
		})
	}
	return &GroupDetail{Group: group, Members: members}, nil
}

// DeleteGroup tears down a group with its shared pool and every member
// ranking. Only the owner may delete.
func (s *GroupService) DeleteGroup(ctx context.Context, userID, groupID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}
	if !group.IsOwner(userID) {
		return domainerrors.Forbidden("only the owner can delete the group")
	}

	// Close sessions first so their pending writes land before the teardown.
	closed := s.registry.CloseGroup(groupID)

	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	s.events.EmitToUsers(group.MemberIDs, sse.NewGroupDeletedEvent(groupID))
	s.logger.Info("group deleted", "group_id", groupID, "sessions_closed", closed)
	return nil
}
