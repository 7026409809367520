package models

// UserGroup is a single broadcast target registered by a user. Rows are
// ordered by the autoincrement ID, which doubles as insertion order for
// the cap-eviction policy.
type UserGroup struct {
	ID        int64
	UserID    int64
	GroupLink string
}
