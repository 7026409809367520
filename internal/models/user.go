package models

import (
	"database/sql"
	"time"
)

// User is one panel account, keyed by the Telegram user ID of the person
// talking to the ads bot.
type User struct {
	UserID          int64
	Username        sql.NullString
	AdMessage       sql.NullString
	IntervalMinutes int
	JoinedOK        bool
	LastSentAt      sql.NullString // ISO-8601 text, UTC
	Plan            string
}

// GroupCap returns how many broadcast targets the user's plan allows.
func (u *User) GroupCap() int {
	if u != nil && u.Plan == PlanPremium {
		return PremiumGroupCap
	}
	return FreeGroupCap
}

// HasAd reports whether a non-empty ad message is configured.
func (u *User) HasAd() bool {
	return u != nil && u.AdMessage.Valid && u.AdMessage.String != ""
}

// LastSentTime parses the stored last_sent_at value. The zero time and
// false are returned when the column is NULL or unparsable.
func (u *User) LastSentTime() (time.Time, bool) {
	if u == nil || !u.LastSentAt.Valid {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, u.LastSentAt.String)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
