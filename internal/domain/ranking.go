package domain

import (
	"strconv"
	"time"
)

// RankedEntry is a denormalized snapshot of an album's display fields taken
// when it was ranked. Rank is 1-based and always derived from sequence order.
type RankedEntry struct {
	AlbumID     string `json:"album_id"`
	Rank        int    `json:"rank"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	ReleaseYear int    `json:"release_year"`
	CoverURL    string `json:"cover_url,omitempty"`
}

// NewRankedEntry copies the display fields of a pool entry into a ranked entry.
// Rank is left at zero for the caller to renumber.
func NewRankedEntry(e PoolEntry) RankedEntry {
	return RankedEntry{
		AlbumID:     e.Album.ID,
		Title:       e.Album.Title,
		Artist:      e.Album.Artist,
		ReleaseYear: e.Album.ReleaseYear,
		CoverURL:    e.Album.CoverURL,
	}
}

// RankingKey addresses one ranked sequence.
// The year is always explicit so sequences for different years never collapse.
type RankingKey struct {
	RankingID string   `json:"ranking_id"`
	Category  Category `json:"category"`
	Year      int      `json:"year"`
}

// String renders the key as a store path.
func (k RankingKey) String() string {
	return k.RankingID + ":" + strconv.Itoa(k.Year) + ":" + string(k.Category)
}

// RankingScope is the metadata of the document holding one scope's
// rankings for a year. Community views read it to label rankings.
type RankingScope struct {
	RankingID   string    `json:"ranking_id"`
	OwnerID     string    `json:"owner_id"`
	GroupID     string    `json:"group_id,omitempty"`
	Year        int       `json:"year"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	UpdatedBy   string    `json:"updated_by"`

	// Writer identity and revision of the last merged update.
	Origin   string `json:"origin,omitempty"`
	Revision uint64 `json:"revision"`
}
