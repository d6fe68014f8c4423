package domain

import "time"

// PoolEntry is an unranked candidate contributed to a pool.
// Entries are never mutated after creation; the first contributor keeps authorship.
type PoolEntry struct {
	Album   Album     `json:"album"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// AlbumID returns the identity key of the entry.
func (e PoolEntry) AlbumID() string {
	return e.Album.ID
}

// PoolKey addresses one pool set: a pool scope partitioned by category.
type PoolKey struct {
	PoolID   string   `json:"pool_id"`
	Category Category `json:"category"`
}

// String renders the key as a store path.
func (k PoolKey) String() string {
	return k.PoolID + ":" + string(k.Category)
}
