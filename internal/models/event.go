package models

import "time"

// EventKind distinguishes the two attendance protocols. Lectures accept any
// student enrolled in the course; seminars only accept students pre-listed on
// the event roster.
type EventKind string

const (
	EventKindLecture EventKind = "lecture"
	EventKindSeminar EventKind = "seminar"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	return k == EventKindLecture || k == EventKindSeminar
}

// AttendanceEvent is one lecture or seminar occurrence collecting attendance.
type AttendanceEvent struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Semester  int       `json:"semester"`
	Kind      EventKind `json:"kind"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// EventToken is the single live token for an event, replaced on every
// rotation. A token is fresh only within a small window of IssuedAt; the QR
// display re-issues continuously while attendance is open.
type EventToken struct {
	EventID  string    `json:"event_id"`
	Value    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// Fresh reports whether the token was issued within the freshness window as
// of now.
func (t *EventToken) Fresh(now time.Time, window time.Duration) bool {
	return now.Sub(t.IssuedAt) <= window
}

// ClaimSession is the short validity window granted to a browser that proved
// it saw a live token. It survives token rotation and is extended by the
// client re-claiming while the credential form is open. Expired rows are
// ignored by comparison and swept later; there is no explicit delete on use.
type ClaimSession struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry as of now.
func (s *ClaimSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
