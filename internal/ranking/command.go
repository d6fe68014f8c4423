package ranking

import (
	"slices"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

// CommandKind names an engine operation.
type CommandKind string

// Engine operations accepted by Apply.
const (
	CmdPromote        CommandKind = "promote"
	CmdDemote         CommandKind = "demote"
	CmdReorder        CommandKind = "reorder"
	CmdInsertFromPool CommandKind = "insert"
	CmdMoveRanked     CommandKind = "move"
	CmdRemoveRanked   CommandKind = "remove_ranked"
	CmdRemovePooled   CommandKind = "remove_pooled"
)

// Command is a local user action against one category of a document.
type Command struct {
	Kind      CommandKind     `json:"kind"`
	Category  domain.Category `json:"category"`
	AlbumID   string          `json:"album_id"`
	Target    int             `json:"target,omitempty"`
	Direction Direction       `json:"direction,omitempty"`
}

// Outcome is the result of applying a command to a board.
type Outcome struct {
	Board Board
	// RankedChanged is false for no-ops such as reordering to the current index.
	RankedChanged bool
	// RemovedFromPool is set when the command deleted a pool row.
	RemovedFromPool string
}

// Changed reports whether the command produced anything to persist.
func (o Outcome) Changed() bool {
	return o.RankedChanged || o.RemovedFromPool != ""
}

// Apply dispatches a command to the matching engine operation.
func Apply(b Board, cmd Command) (Outcome, error) {
	var (
		next Board
		err  error
	)

	switch cmd.Kind {
	case CmdPromote:
		next, err = Promote(b, cmd.AlbumID)
	case CmdDemote:
		next, err = Demote(b, cmd.AlbumID)
	case CmdReorder:
		next, err = Reorder(b, cmd.AlbumID, cmd.Target)
	case CmdInsertFromPool:
		next, err = InsertFromPool(b, cmd.AlbumID, cmd.Target)
	case CmdMoveRanked:
		next, err = MoveRanked(b, cmd.AlbumID, cmd.Direction)
	case CmdRemoveRanked:
		next, err = RemoveRanked(b, cmd.AlbumID)
	case CmdRemovePooled:
		next, err = RemovePooled(b, cmd.AlbumID)
	default:
		return Outcome{Board: b}, domainerrors.Validationf("unknown command %q", cmd.Kind)
	}
	if err != nil {
		return Outcome{Board: b}, err
	}

	out := Outcome{
		Board:         next,
		RankedChanged: !slices.Equal(b.Ranked, next.Ranked),
	}
	if cmd.Kind == CmdRemovePooled {
		out.RemovedFromPool = cmd.AlbumID
	}
	return out, nil
}
