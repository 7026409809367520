package models

// UserSession holds the credentials of the user's secondary (worker)
// account, one row per user. SessionString is stored encrypted at rest;
// the plaintext only exists in memory after SessionService decrypts it.
type UserSession struct {
	UserID        int64
	APIID         int
	APIHash       string
	SessionString string
}

// SessionView is the redacted form safe to serialize in API responses.
type SessionView struct {
	UserID int64 `json:"user_id"`
	APIID  int   `json:"api_id"`
	Bound  bool  `json:"bound"`
}

// View strips the secrets from a session.
func (s *UserSession) View() SessionView {
	return SessionView{UserID: s.UserID, APIID: s.APIID, Bound: true}
}
