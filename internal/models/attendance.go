package models

import "time"

// AttendanceStatus is the state of one (event, student) roster entry.
type AttendanceStatus string

const (
	// StatusExpected marks a pre-listed seminar attendee who has not
	// submitted yet.
	StatusExpected AttendanceStatus = "expected"
	// StatusPresent is terminal; this subsystem never reverts it.
	StatusPresent AttendanceStatus = "present"
)

// AttendanceRecord is the durable fact that a student is present for an
// event. At most one record exists per (event, student).
type AttendanceRecord struct {
	EventID   string           `json:"event_id"`
	StudentID string           `json:"student_id"`
	Status    AttendanceStatus `json:"status"`
	MarkedAt  *time.Time       `json:"marked_at,omitempty"`
}

// Student is the identity resolved by the credential verifier.
type Student struct {
	ID        string    `json:"id"`
	RegNo     string    `json:"reg_no"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
}
