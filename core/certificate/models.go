package certificate

import (
	"time"

	"github.com/trezcool/masomo-credentials/core/course"
)

// Status is the state of a learner's certificate for a course run.
type Status string

const (
	StatusUnavailable  Status = "unavailable"
	StatusGenerating   Status = "generating"
	StatusDownloadable Status = "downloadable"
	StatusNotPassing   Status = "notpassing"
	StatusRestricted   Status = "restricted"
	StatusUnverified   Status = "unverified"
	StatusDeleted      Status = "deleted"
	StatusError        Status = "error"
)

var AllStatuses = []Status{
	StatusUnavailable, StatusGenerating, StatusDownloadable, StatusNotPassing,
	StatusRestricted, StatusUnverified, StatusDeleted, StatusError,
}

func (s Status) Valid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsPassing reports whether the status counts towards program completion.
func (s Status) IsPassing() bool {
	return s == StatusDownloadable
}

// IsInteresting reports whether the Credentials service should hear about the status.
func (s Status) IsInteresting() bool {
	return s == StatusDownloadable || s == StatusNotPassing
}

// Record is a learner's certificate for one course run, unique by (LearnerID, CourseKey).
type Record struct {
	LearnerID   int64       `json:"user_id"`
	CourseKey   string      `json:"course_key"`
	Status      Status      `json:"status"`
	Mode        course.Mode `json:"mode"`
	Grade       string      `json:"grade"`
	ErrorReason string      `json:"error_reason,omitempty"`
	// DateOverride, when set, replaces the computed available date.
	DateOverride *time.Time `json:"date_override,omitempty"`
	// NotifiedStatus is the last status announced with a certificate event.
	NotifiedStatus Status    `json:"notified_status,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	ModifiedAt     time.Time `json:"modified_at"`
}

// CurrentStatus treats a record that was never saved as unavailable.
func (r Record) CurrentStatus() Status {
	if r.Status == "" {
		return StatusUnavailable
	}
	return r.Status
}

// AnnouncedStatus is the status the rest of the system last heard about; unavailable if none.
func (r Record) AnnouncedStatus() Status {
	if r.NotifiedStatus == "" {
		return StatusUnavailable
	}
	return r.NotifiedStatus
}

type GradeResult struct {
	LetterGrade  string     `json:"letter_grade"`
	PercentGrade float64    `json:"percent"`
	Passing      bool       `json:"passed"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
}

type AllowlistEntry struct {
	LearnerID int64     `json:"user_id"`
	CourseKey string    `json:"course_key"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type Invalidation struct {
	ID        int64     `json:"id"`
	LearnerID int64     `json:"user_id"`
	CourseKey string    `json:"course_key"`
	Reason    string    `json:"reason"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
