package domain

import "time"

// Syncable carries the identity and timestamps shared by stored records.
// UpdatedAt drives client cache invalidation for profiles.
type Syncable struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
}

// Touch marks the record as modified now.
func (s *Syncable) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// InitTimestamps stamps a new record. Both times are equal.
func (s *Syncable) InitTimestamps() {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
}
