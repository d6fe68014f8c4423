package domain

import (
	"slices"
	"time"
)

// Group is a collaborative space whose members share one pool per category
// while each keeps a personal ranking.
type Group struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`     // Join code, unique across groups
	OwnerID   string    `json:"owner_id"` // Creator; only the owner may delete
	MemberIDs []string  `json:"member_ids"`
}

// AddMember adds a user to the group.
// Returns false if the user is already a member.
func (g *Group) AddMember(userID string) bool {
	if slices.Contains(g.MemberIDs, userID) {
		return false
	}
	g.MemberIDs = append(g.MemberIDs, userID)
	g.UpdatedAt = time.Now()
	return true
}

// RemoveMember removes a user from the group.
// Returns false if the user was not a member.
func (g *Group) RemoveMember(userID string) bool {
	for i, id := range g.MemberIDs {
		if id == userID {
			g.MemberIDs = append(g.MemberIDs[:i], g.MemberIDs[i+1:]...)
			g.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// HasMember checks if a user belongs to the group.
func (g *Group) HasMember(userID string) bool {
	return slices.Contains(g.MemberIDs, userID)
}

// IsOwner checks if a user created the group.
func (g *Group) IsOwner(userID string) bool {
	return g.OwnerID == userID
}
