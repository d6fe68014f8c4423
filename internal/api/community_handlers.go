package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/yearlist-server/internal/service"
)

func (s *Server) registerCommunityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCommunityYear",
		Method:      http.MethodGet,
		Path:        "/api/v1/community/years/{year}",
		Summary:     "Community rankings",
		Description: "Returns every user's personal rankings for a year, most recently updated first",
		Tags:        []string{"Community"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCommunityYear)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGroupCommunity",
		Method:      http.MethodGet,
		Path:        "/api/v1/groups/{id}/community",
		Summary:     "Group rankings",
		Description: "Returns every member's rankings inside a group for a year",
		Tags:        []string{"Community"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGroupCommunity)
}

// CommunityYearInput contains the year path parameter.
type CommunityYearInput struct {
	Year int `path:"year" doc:"Ranking year"`
}

// GroupCommunityInput addresses a group's rankings for a year.
type GroupCommunityInput struct {
	ID   string `path:"id" doc:"Group ID"`
	Year int    `query:"year" doc:"Ranking year, defaults to the current ranking year"`
}

// CommunityResponse lists the rankings of several users.
type CommunityResponse struct {
	Year     int                        `json:"year" doc:"Ranking year"`
	Rankings []service.CommunityRanking `json:"rankings" doc:"Rankings, most recently updated first"`
}

// CommunityOutput wraps the community response for Huma.
type CommunityOutput struct {
	Body CommunityResponse
}

func (s *Server) handleCommunityYear(ctx context.Context, input *CommunityYearInput) (*CommunityOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	rankings, err := s.services.Community.YearRankings(ctx, userID, input.Year)
	if err != nil {
		return nil, err
	}
	return communityOutput(input.Year, rankings), nil
}

func (s *Server) handleGroupCommunity(ctx context.Context, input *GroupCommunityInput) (*CommunityOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	year := input.Year
	if year == 0 {
		year = s.defaultYear
	}

	rankings, err := s.services.Community.GroupRankings(ctx, userID, input.ID, year)
	if err != nil {
		return nil, err
	}
	return communityOutput(year, rankings), nil
}

func communityOutput(year int, rankings []service.CommunityRanking) *CommunityOutput {
	if rankings == nil {
		rankings = []service.CommunityRanking{}
	}
	return &CommunityOutput{Body: CommunityResponse{Year: year, Rankings: rankings}}
}
