package store

import (
	"slices"
	"strings"

	"github.com/listenupapp/yearlist-server/internal/domain"
	domainerrors "github.com/listenupapp/yearlist-server/internal/errors"
)

// PrepareRanking returns a copy of seq with ranks re-derived as 1..N from
// order. Incoming rank values are ignored. A repeated album fails with
// ErrDuplicateRank.
func PrepareRanking(seq []domain.RankedEntry) ([]domain.RankedEntry, error) {
	out := slices.Clone(seq)
	if out == nil {
		out = []domain.RankedEntry{}
	}

	seen := make(map[string]struct{}, len(out))
	for i := range out {
		if _, dup := seen[out[i].AlbumID]; dup {
			return nil, domainerrors.DuplicateRankf("album %s appears more than once", out[i].AlbumID)
		}
		seen[out[i].AlbumID] = struct{}{}
		out[i].Rank = i + 1
	}
	return out, nil
}

// IsMemberRanking reports whether a ranking ID belongs to a group member.
func IsMemberRanking(rankingID, groupID string) bool {
	return strings.HasPrefix(rankingID, GroupRankingPrefix(groupID))
}

// GroupRankingPrefix is the ranking ID prefix shared by all members of a group.
func GroupRankingPrefix(groupID string) string {
	return domain.GroupScope(groupID, "").RankingID()
}

