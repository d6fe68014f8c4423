package domain

import "strconv"

// Scope identifies whose pool and ranking an operation targets.
// A scope without a GroupID is solo: the user's own pool for a single year.
// Inside a group the pool is shared by all members across years, while each
// member keeps a separate ranking.
type Scope struct {
	GroupID string `json:"group_id,omitempty"`
	UserID  string `json:"user_id"`
}

// SoloScope returns the personal scope of a user.
func SoloScope(userID string) Scope {
	return Scope{UserID: userID}
}

// GroupScope returns a member's scope inside a group.
func GroupScope(groupID, userID string) Scope {
	return Scope{GroupID: groupID, UserID: userID}
}

// IsSolo reports whether the scope is a personal one.
func (s Scope) IsSolo() bool {
	return s.GroupID == ""
}

// PoolID returns the pool scope identifier for a year.
// Group pools ignore the year.
func (s Scope) PoolID(year int) string {
	if s.IsSolo() {
		return "user:" + s.UserID + ":" + strconv.Itoa(year)
	}
	return "group:" + s.GroupID
}

// RankingID returns the ranking scope identifier.
func (s Scope) RankingID() string {
	if s.IsSolo() {
		return "user:" + s.UserID
	}
	return "group:" + s.GroupID + ":member:" + s.UserID
}

// PoolKey returns the pool set for a category in a year.
func (s Scope) PoolKey(year int, category Category) PoolKey {
	return PoolKey{PoolID: s.PoolID(year), Category: category}
}

// RankingKey returns the ranked sequence for a category in a year.
func (s Scope) RankingKey(year int, category Category) RankingKey {
	return RankingKey{RankingID: s.RankingID(), Category: category, Year: year}
}

// DocumentKey identifies the document holding both categories of a scope for a year.
type DocumentKey struct {
	Scope Scope `json:"scope"`
	Year  int   `json:"year"`
}

// String renders the document key.
func (k DocumentKey) String() string {
	return k.Scope.RankingID() + "@" + strconv.Itoa(k.Year)
}
