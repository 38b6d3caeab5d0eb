// Package events carries the domain events of the certificate pipeline and the bus delivering them.
package events

// Type names an event kind.
type Type string

const (
	TypeCertificateAwarded             Type = "certificate.awarded"
	TypeCertificateChanged             Type = "certificate.changed"
	TypeCertificateRevoked             Type = "certificate.revoked"
	TypeExamAttemptRejected            Type = "exam_attempt.rejected"
	TypeCourseCertificateConfigChanged Type = "course.certificate_config_changed"
)

type Event interface {
	EventType() Type
}

// Certificate identifies the certificate a certificate event is about.
type Certificate struct {
	LearnerID int64  `json:"user_id"`
	Username  string `json:"username"`
	CourseKey string `json:"course_key"`
	Mode      string `json:"mode"`
	Status    string `json:"status"`
}

// CertificateAwarded is published when a certificate enters a passing status.
type CertificateAwarded struct {
	Certificate
}

// CertificateChanged is published on any other interesting status change.
type CertificateChanged struct {
	Certificate
	PreviousStatus string `json:"previous_status"`
}

// CertificateRevoked is published when a certificate leaves a passing status.
type CertificateRevoked struct {
	Certificate
	PreviousStatus string `json:"previous_status"`
}

// ExamAttemptRejected is an integrity signal from the proctoring service.
type ExamAttemptRejected struct {
	Username  string `json:"username" validate:"required,username"`
	CourseKey string `json:"course_id" validate:"required,coursekey"`
	AttemptID string `json:"attempt_id"`
	Reason    string `json:"reason"`
}

// CourseCertificateConfigChanged is published when a run's pacing, dates or modes change.
type CourseCertificateConfigChanged struct {
	CourseKey string `json:"course_id" validate:"required,coursekey"`
}

func (CertificateAwarded) EventType() Type             { return TypeCertificateAwarded }
func (CertificateChanged) EventType() Type             { return TypeCertificateChanged }
func (CertificateRevoked) EventType() Type             { return TypeCertificateRevoked }
func (ExamAttemptRejected) EventType() Type            { return TypeExamAttemptRejected }
func (CourseCertificateConfigChanged) EventType() Type { return TypeCourseCertificateConfigChanged }
