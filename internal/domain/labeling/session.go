package labeling

import (
	"context"
	"time"
)

// PrintSession holds an assembled print document until the print window
// fetches it or the session expires
type PrintSession struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Title     string    `json:"title"`
	HTML      []byte    `json:"html"`
	Pages     int       `json:"pages"`
	Labels    int       `json:"labels"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now
func (s *PrintSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionStore keeps print sessions for a limited time
type SessionStore interface {
	// Open stores the session for ttl
	Open(ctx context.Context, session *PrintSession, ttl time.Duration) error
	// Get returns the session, or a NOT_FOUND domain error when it is missing or expired
	Get(ctx context.Context, id string) (*PrintSession, error)
	// Close discards the session. Closing an unknown session is not an error.
	Close(ctx context.Context, id string) error
}
