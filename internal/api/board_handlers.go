package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
	"github.com/listenupapp/yearlist-server/internal/ranking"
	"github.com/listenupapp/yearlist-server/internal/service"
)

// soloScope is the scope path segment for the caller's own rankings.
const soloScope = "me"

const boardPath = "/api/v1/scopes/{scope}/years/{year}/categories/{category}"

func (s *Server) registerBoardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getBoard",
		Method:      http.MethodGet,
		Path:        boardPath,
		Summary:     "Get board",
		Description: "Returns the ranked list and the unranked pool of one category",
		Tags:        []string{"Rankings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBoard)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addToPool",
		Method:        http.MethodPost,
		Path:          boardPath + "/pool",
		Summary:       "Add album to pool",
		Description:   "Contributes an album to the pool. Each album can be pooled once per category.",
		Tags:          []string{"Pool"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleAddToPool)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeFromPool",
		Method:      http.MethodDelete,
		Path:        boardPath + "/pool/{albumId}",
		Summary:     "Remove album from pool",
		Description: "Deletes the pool row of an album. A ranked entry for the album is kept.",
		Tags:        []string{"Pool"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveFromPool)

	huma.Register(s.api, huma.Operation{
		OperationID: "promoteAlbum",
		Method:      http.MethodPost,
		Path:        boardPath + "/ranked/promote",
		Summary:     "Promote album",
		Description: "Appends a pooled album to the end of the ranked list",
		Tags:        []string{"Rankings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.commandHandler(ranking.CmdPromote))

	huma.Register(s.api, huma.Operation{
		OperationID: "insertAlbum",
		Method:      http.MethodPost,
		Path:        boardPath + "/ranked/insert",
		Summary:     "Insert album",
		Description: "Ranks a pooled album at a zero-based position, clamped to the list bounds",
		Tags:        []string{"Rankings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.commandHandler(ranking.CmdInsertFromPool))

	huma.Register(s.api, huma.Operation{
		OperationID: "demoteAlbum",
		Method:      http.MethodPost,
		Path:        boardPath + "/ranked/demote",
		Summary:     "Demote album",
		Description: "Moves a ranked album back to the pool",
		Tags:        []string{"Rankings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.commandHandler(ranking.CmdDemote))

	huma.Register(s.api, huma.Operation{
		OperationID: "reorderAlbum",
		Method:      http.MethodPost,
		Path:        boardPath + "/ranked/reorder",
		Summary:     "Reorder album",
		Description: "Moves a ranked album to a zero-based position",
		Tags:        []string{"Rankings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.commandHandler(ranking.CmdReorder))

	huma.Register(s.api, huma.Operation{
		OperationID: "moveAlbum",
		Method:      http.MethodPost,
		Path:        boardPath + "/ranked/move",
		Summary:     "Move album",
		Description: "Swaps a ranked album with its neighbour",
		Tags:        []string{"Rankings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.commandHandler(ranking.CmdMoveRanked))

	huma.Register(s.api, huma.Operation{
		OperationID: "removeRankedAlbum",
		Method:      http.MethodDelete,
		Path:        boardPath + "/ranked/{albumId}",
		Summary:     "Remove ranked album",
		Description: "Deletes an album from the ranked list without touching the pool",
		Tags:        []string{"Rankings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveRanked)
}

// === DTOs ===

// BoardInput addresses one category of a ranking document.
type BoardInput struct {
	Scope    string `path:"scope" doc:"'me' for personal rankings, otherwise a group ID"`
	Year     int    `path:"year" doc:"Ranking year"`
	Category string `path:"category" doc:"french or international"`
}

// ref resolves the path into a document reference and category.
func (in BoardInput) ref() (service.DocumentRef, domain.Category, error) {
	category, err := domain.ParseCategory(in.Category)
	if err != nil {
		return service.DocumentRef{}, "", domainerrors.Validation(err.Error())
	}
	ref := service.DocumentRef{Year: in.Year}
	if in.Scope != soloScope {
		ref.GroupID = in.Scope
	}
	return ref, category, nil
}

// BoardResponse is the state of one category of a document.
type BoardResponse struct {
	Document  string               `json:"document" doc:"Document key"`
	Year      int                  `json:"year" doc:"Ranking year"`
	Category  domain.Category      `json:"category" doc:"Category"`
	Ranked    []domain.RankedEntry `json:"ranked" doc:"Ranked albums in order"`
	Pool      []domain.PoolEntry   `json:"pool" doc:"Pooled albums that are not ranked"`
	Revision  uint64               `json:"revision" doc:"Document revision"`
	UpdatedAt time.Time            `json:"updated_at,omitzero" doc:"Last change"`
}

// BoardOutput wraps the board response for Huma.
type BoardOutput struct {
	Body BoardResponse
}

// AlbumRequest is an album picked from the catalog.
type AlbumRequest struct {
	ID          string `json:"id" doc:"Catalog album ID"`
	Title       string `json:"title" doc:"Album title"`
	Artist      string `json:"artist" doc:"Album artist"`
	ReleaseYear int    `json:"release_year,omitempty" doc:"Release year"`
	CoverURL    string `json:"cover_url,omitempty" doc:"Artwork URL"`
}

// AddToPoolInput wraps the add to pool request for Huma.
type AddToPoolInput struct {
	BoardInput
	Body struct {
		Album AlbumRequest `json:"album" doc:"Album to pool"`
	}
}

// PoolEntryOutput wraps a pool entry for Huma.
type PoolEntryOutput struct {
	Body domain.PoolEntry
}

// AlbumPathInput addresses one album of a board.
type AlbumPathInput struct {
	BoardInput
	AlbumID string `path:"albumId" doc:"Album ID"`
}

// CommandRequest is the body of a ranked list action.
type CommandRequest struct {
	AlbumID   string `json:"album_id" minLength:"1" doc:"Album to act on"`
	Target    int    `json:"target,omitempty" doc:"Zero-based position for insert and reorder; values outside the list are clamped"`
	Direction string `json:"direction,omitempty" enum:"up,down" doc:"Neighbour to swap with for move"`
}

// CommandInput wraps a ranked list action for Huma.
type CommandInput struct {
	BoardInput
	Body CommandRequest
}

// === Handlers ===

func (s *Server) handleGetBoard(ctx context.Context, input *BoardInput) (*BoardOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	ref, category, err := input.ref()
	if err != nil {
		return nil, err
	}

	snap, err := s.services.Rankings.Board(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	return &BoardOutput{Body: boardResponse(snap, category)}, nil
}

func (s *Server) handleAddToPool(ctx context.Context, input *AddToPoolInput) (*PoolEntryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	ref, category, err := input.ref()
	if err != nil {
		return nil, err
	}

	album := input.Body.Album
	entry, err := s.services.Pools.AddToPool(ctx, userID, service.AddToPoolRequest{
		GroupID:  ref.GroupID,
		Year:     ref.Year,
		Category: category,
		Album: service.AlbumInput{
			ID:          album.ID,
			Title:       album.Title,
			Artist:      album.Artist,
			ReleaseYear: album.ReleaseYear,
			CoverURL:    album.CoverURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &PoolEntryOutput{Body: *entry}, nil
}

func (s *Server) handleRemoveFromPool(ctx context.Context, input *AlbumPathInput) (*BoardOutput, error) {
	return s.apply(ctx, input.BoardInput, ranking.Command{Kind: ranking.CmdRemovePooled, AlbumID: input.AlbumID})
}

func (s *Server) handleRemoveRanked(ctx context.Context, input *AlbumPathInput) (*BoardOutput, error) {
	return s.apply(ctx, input.BoardInput, ranking.Command{Kind: ranking.CmdRemoveRanked, AlbumID: input.AlbumID})
}

// commandHandler returns the handler of a body-driven ranked list action.
func (s *Server) commandHandler(kind ranking.CommandKind) func(context.Context, *CommandInput) (*BoardOutput, error) {
	return func(ctx context.Context, input *CommandInput) (*BoardOutput, error) {
		return s.apply(ctx, input.BoardInput, ranking.Command{
			Kind:      kind,
			AlbumID:   input.Body.AlbumID,
			Target:    input.Body.Target,
			Direction: ranking.Direction(input.Body.Direction),
		})
	}
}

func (s *Server) apply(ctx context.Context, input BoardInput, cmd ranking.Command) (*BoardOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	ref, category, err := input.ref()
	if err != nil {
		return nil, err
	}
	if cmd.Kind == ranking.CmdMoveRanked && cmd.Direction != ranking.Up && cmd.Direction != ranking.Down {
		return nil, domainerrors.Validation("direction must be up or down")
	}
	cmd.Category = category

	snap, err := s.services.Rankings.Apply(ctx, userID, ref, cmd)
	if err != nil {
		return nil, err
	}
	return &BoardOutput{Body: boardResponse(snap, category)}, nil
}

func boardResponse(snap *ranking.Snapshot, category domain.Category) BoardResponse {
	board := snap.Board(category)
	ranked := board.Ranked
	if ranked == nil {
		ranked = []domain.RankedEntry{}
	}
	return BoardResponse{
		Document:  snap.Key.String(),
		Year:      snap.Key.Year,
		Category:  category,
		Ranked:    ranked,
		Pool:      board.VisiblePool(),
		Revision:  snap.Revision,
		UpdatedAt: snap.UpdatedAt,
	}
}
