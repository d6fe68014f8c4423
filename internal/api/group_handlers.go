package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/yearlist-server/internal/domain"
	"github.com/listenupapp/yearlist-server/internal/service"
)

func (s *Server) registerGroupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGroups",
		Method:      http.MethodGet,
		Path:        "/api/v1/groups",
		Summary:     "List groups",
		Description: "Returns the groups the current user belongs to",
		Tags:        []string{"Groups"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListGroups)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createGroup",
		Method:        http.MethodPost,
		Path:          "/api/v1/groups",
		Summary:       "Create group",
		Description:   "Creates a group with a fresh join code. The creator becomes its owner.",
		Tags:          []string{"Groups"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateGroup)

	huma.Register(s.api, huma.Operation{
		OperationID: "joinGroup",
		Method:      http.MethodPost,
		Path:        "/api/v1/groups/join",
		Summary:     "Join group",
		Description: "Joins a group by its join code. Joining twice is a no-op.",
		Tags:        []string{"Groups"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleJoinGroup)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGroup",
		Method:      http.MethodGet,
		Path:        "/api/v1/groups/{id}",
		Summary:     "Get group",
		Description: "Returns a group with its members",
		Tags:        []string{"Groups"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetGroup)

	huma.Register(s.api, huma.Operation{
		OperationID: "leaveGroup",
		Method:      http.MethodPost,
		Path:        "/api/v1/groups/{id}/leave",
		Summary:     "Leave group",
		Description: "Leaves a group. The owner cannot leave and must delete it instead.",
		Tags:        []string{"Groups"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLeaveGroup)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteGroup",
		Method:      http.MethodDelete,
		Path:        "/api/v1/groups/{id}",
		Summary:     "Delete group",
		Description: "Deletes a group with its pools and rankings. Owner only.",
		Tags:        []string{"Groups"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteGroup)
}

// === DTOs ===

// GroupIDInput contains the group ID path parameter.
type GroupIDInput struct {
	ID string `path:"id" doc:"Group ID"`
}

// CreateGroupRequest is the request body for creating a group.
type CreateGroupRequest struct {
	Name string `json:"name" doc:"Group name"`
}

// CreateGroupInput wraps the create group request for Huma.
type CreateGroupInput struct {
	Body CreateGroupRequest
}

// JoinGroupRequest is the request body for joining a group.
type JoinGroupRequest struct {
	Code string `json:"code" doc:"Six character join code"`
}

// JoinGroupInput wraps the join group request for Huma.
type JoinGroupInput struct {
	Body JoinGroupRequest
}

// GroupOutput wraps a group for Huma.
type GroupOutput struct {
	Body *domain.Group
}

// GroupDetailOutput wraps a group with members for Huma.
type GroupDetailOutput struct {
	Body *service.GroupDetail
}

// ListGroupsResponse contains the user's groups.
type ListGroupsResponse struct {
	Groups []*domain.Group `json:"groups" doc:"Groups"`
}

// ListGroupsOutput wraps the list groups response for Huma.
type ListGroupsOutput struct {
	Body ListGroupsResponse
}

// === Handlers ===

func (s *Server) handleListGroups(ctx context.Context, _ *struct{}) (*ListGroupsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.services.Groups.ListGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []*domain.Group{}
	}
	return &ListGroupsOutput{Body: ListGroupsResponse{Groups: groups}}, nil
}

func (s *Server) handleCreateGroup(ctx context.Context, input *CreateGroupInput) (*GroupOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.services.Groups.CreateGroup(ctx, userID, service.CreateGroupRequest{Name: input.Body.Name})
	if err != nil {
		return nil, err
	}
	return &GroupOutput{Body: group}, nil
}

func (s *Server) handleJoinGroup(ctx context.Context, input *JoinGroupInput) (*GroupOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.services.Groups.JoinGroup(ctx, userID, service.JoinGroupRequest{Code: input.Body.Code})
	if err != nil {
		return nil, err
	}
	return &GroupOutput{Body: group}, nil
}

func (s *Server) handleGetGroup(ctx context.Context, input *GroupIDInput) (*GroupDetailOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := s.services.Groups.GetGroup(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &GroupDetailOutput{Body: detail}, nil
}

func (s *Server) handleLeaveGroup(ctx context.Context, input *GroupIDInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Groups.LeaveGroup(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Left group"}}, nil
}

func (s *Server) handleDeleteGroup(ctx context.Context, input *GroupIDInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Groups.DeleteGroup(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Group deleted"}}, nil
}
