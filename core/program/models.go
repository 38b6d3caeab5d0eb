package program

import (
	"context"

	"github.com/trezcool/masomo-credentials/core/course"
)

type (
	// Unit is one course run of a program, with the modes that count towards completion.
	Unit struct {
		CourseKey string `json:"course_run_key" yaml:"course_run_key"`
		// CourseUUID identifies the catalog course the run belongs to.
		CourseUUID string        `json:"course_uuid,omitempty" yaml:"course_uuid,omitempty"`
		Modes      []course.Mode `json:"modes,omitempty" yaml:"modes,omitempty"`
	}

	Definition struct {
		UUID  string `json:"uuid" yaml:"uuid"`
		Title string `json:"title" yaml:"title"`
		Units []Unit `json:"units" yaml:"units"`
	}

	// CourseRun is a catalog course run.
	CourseRun struct {
		Key         string        `json:"key" yaml:"key"`
		Title       string        `json:"title" yaml:"title"`
		SelfPaced   bool          `json:"self_paced" yaml:"self_paced"`
		Start       string        `json:"start,omitempty" yaml:"start,omitempty"`
		End         string        `json:"end,omitempty" yaml:"end,omitempty"`
		Modes       []course.Mode `json:"modes" yaml:"modes"`
		Certificate struct {
			AvailableDate   string                 `json:"available_date,omitempty" yaml:"available_date,omitempty"`
			DisplayBehavior course.DisplayBehavior `json:"display_behavior,omitempty" yaml:"display_behavior,omitempty"`
		} `json:"certificate" yaml:"certificate"`
	}

	// Catalog reads program and course run definitions from the catalog service.
	Catalog interface {
		Programs(ctx context.Context) ([]Definition, error)
		CourseRunsForCourse(ctx context.Context, courseUUID string) ([]CourseRun, error)
	}
)

// Accepts reports whether a certificate in mode m counts for the unit.
// Units without explicit modes accept any certificate-relevant mode.
func (u Unit) Accepts(m course.Mode) bool {
	if !m.IsCertificateRelevant() {
		return false
	}
	if len(u.Modes) == 0 {
		return true
	}
	for _, um := range u.Modes {
		if um == m {
			return true
		}
	}
	return false
}

func (d Definition) Contains(courseKey string) bool {
	for _, u := range d.Units {
		if u.CourseKey == courseKey {
			return true
		}
	}
	return false
}

func (d Definition) CourseKeys() []string {
	keys := make([]string, 0, len(d.Units))
	for _, u := range d.Units {
		keys = append(keys, u.CourseKey)
	}
	return keys
}
