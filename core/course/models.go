package course

import "time"

// Mode is an enrollment track.
type Mode string

const (
	ModeHonor              Mode = "honor"
	ModeVerified           Mode = "verified"
	ModeAudit              Mode = "audit"
	ModeProfessional       Mode = "professional"
	ModeNoIDProfessional   Mode = "no-id-professional"
	ModeCreditMode         Mode = "credit"
	ModeMasters            Mode = "masters"
	ModeExecutiveEducation Mode = "executive-education"
)

// CertificateRelevantModes are the tracks for which certificates are issued.
var CertificateRelevantModes = []Mode{
	ModeHonor, ModeVerified, ModeProfessional, ModeNoIDProfessional,
	ModeCreditMode, ModeMasters, ModeExecutiveEducation,
}

func (m Mode) Valid() bool {
	if m == ModeAudit {
		return true
	}
	return m.IsCertificateRelevant()
}

func (m Mode) IsCertificateRelevant() bool {
	for _, rm := range CertificateRelevantModes {
		if m == rm {
			return true
		}
	}
	return false
}

// RequiresIDVerification reports whether a certificate in this mode needs a verified identity.
func (m Mode) RequiresIDVerification() bool {
	switch m {
	case ModeVerified, ModeProfessional, ModeCreditMode, ModeExecutiveEducation:
		return true
	}
	return false
}

// DisplayBehavior tells when an instructor-paced course shows its certificates.
type DisplayBehavior string

const (
	DisplayEarlyNoInfo DisplayBehavior = "early_no_info"
	DisplayEnd         DisplayBehavior = "end"
	DisplayEndWithDate DisplayBehavior = "end_with_date"
)

func (b DisplayBehavior) Valid() bool {
	switch b {
	case DisplayEarlyNoInfo, DisplayEnd, DisplayEndWithDate:
		return true
	}
	return false
}

// Overview is the certificate-related metadata of a course run.
type Overview struct {
	Key                      string          `json:"course_key" validate:"required,coursekey"`
	DisplayName              string          `json:"display_name"`
	SelfPaced                bool            `json:"self_paced"`
	Start                    *time.Time      `json:"start,omitempty"`
	End                      *time.Time      `json:"end,omitempty"`
	CertificateAvailableDate *time.Time      `json:"certificate_available_date,omitempty"`
	DisplayBehavior          DisplayBehavior `json:"certificates_display_behavior"`
	// CertificateModes are the modes offered by the run that issue certificates.
	CertificateModes []Mode   `json:"certificate_modes"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Normalize enforces the write-time invariants of an Overview:
// self-paced runs never carry a certificate available date, and only certificate-relevant modes are kept.
func (o *Overview) Normalize() {
	if o.SelfPaced {
		o.CertificateAvailableDate = nil
	}
	if !o.DisplayBehavior.Valid() {
		o.DisplayBehavior = DisplayEarlyNoInfo
	}
	modes := make([]Mode, 0, len(o.CertificateModes))
	for _, m := range o.CertificateModes {
		if m.IsCertificateRelevant() && !containsMode(modes, m) {
			modes = append(modes, m)
		}
	}
	o.CertificateModes = modes
}

// IssuesCertificatesFor reports whether the run issues certificates in mode m.
// Runs with no configured modes accept every certificate-relevant mode.
func (o Overview) IssuesCertificatesFor(m Mode) bool {
	if !m.IsCertificateRelevant() {
		return false
	}
	if len(o.CertificateModes) == 0 {
		return true
	}
	return containsMode(o.CertificateModes, m)
}

// AvailableDateForConfig is the date to publish with the run's certificate configuration.
func (o Overview) AvailableDateForConfig() *time.Time {
	if o.SelfPaced {
		return nil
	}
	return o.CertificateAvailableDate
}

type Enrollment struct {
	LearnerID int64     `json:"user_id" db:"user_id"`
	CourseKey string    `json:"course_key" db:"course_key"`
	Mode      Mode      `json:"mode" db:"mode"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func containsMode(modes []Mode, m Mode) bool {
	for _, mm := range modes {
		if mm == m {
			return true
		}
	}
	return false
}
