package certificate

import (
	"time"

	"github.com/trezcool/masomo-credentials/core/course"
)

// Eligibility gathers everything DecideStatus needs about a learner in a course run.
type Eligibility struct {
	Mode        course.Mode
	Enrolled    bool
	Grade       *GradeResult // nil when the grading service has no grade
	Allowlisted bool
	Invalidated bool
	Restricted  bool
	IDVerified  bool
}

// DecideStatus maps a learner's eligibility to the certificate status it deserves.
// Precedence: restriction, invalidation, enrollment track, allowlist, then grade.
func DecideStatus(e Eligibility) Status {
	switch {
	case e.Restricted:
		return StatusRestricted
	case e.Invalidated:
		return StatusUnavailable
	case !e.Enrolled || !e.Mode.IsCertificateRelevant():
		return StatusUnavailable
	case e.Allowlisted:
		return passingStatus(e)
	case e.Grade == nil:
		return StatusUnavailable
	case e.Grade.Passing:
		return passingStatus(e)
	default:
		return StatusNotPassing
	}
}

func passingStatus(e Eligibility) Status {
	if e.Mode.RequiresIDVerification() && !e.IDVerified {
		return StatusUnverified
	}
	return StatusDownloadable
}

// AvailableDate is the date a certificate becomes visible to the learner:
// the record's override when set; for instructor-paced runs, the configured certificate available date
// (end_with_date) or the run end (end); otherwise the date the certificate was earned.
func AvailableDate(o course.Overview, rec Record) time.Time {
	if rec.DateOverride != nil {
		return rec.DateOverride.UTC()
	}
	if !o.SelfPaced {
		switch o.DisplayBehavior {
		case course.DisplayEndWithDate:
			if o.CertificateAvailableDate != nil {
				return o.CertificateAvailableDate.UTC()
			}
		case course.DisplayEnd:
			if o.End != nil {
				return o.End.UTC()
			}
		}
	}
	return rec.ModifiedAt.UTC()
}
