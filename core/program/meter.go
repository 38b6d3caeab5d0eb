package program

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/course"
)

// Meter computes the programs a learner has completed.
type Meter struct {
	catalog Catalog
	certs   certificate.Repository
	courses course.Repository
}

func NewMeter(catalog Catalog, certs certificate.Repository, courses course.Repository) *Meter {
	return &Meter{catalog: catalog, certs: certs, courses: courses}
}

// Completed returns {program_uuid: visible_date} for every program the learner has completed.
func (m *Meter) Completed(ctx context.Context, learnerID int64) (map[string]time.Time, error) {
	programs, err := m.catalog.Programs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting programs")
	}
	recs, err := m.certs.ListByLearner(ctx, learnerID)
	if err != nil {
		return nil, errors.Wrap(err, "listing certificates")
	}

	passing := make(map[string]certificate.Record, len(recs))
	keys := make([]string, 0, len(recs))
	for _, rec := range recs {
		if rec.Status.IsPassing() {
			passing[rec.CourseKey] = rec
			keys = append(keys, rec.CourseKey)
		}
	}
	if len(passing) == 0 {
		return map[string]time.Time{}, nil
	}

	overviews, err := m.courses.GetOverviews(ctx, keys...)
	if err != nil {
		return nil, errors.Wrap(err, "getting course overviews")
	}
	return CompletedPrograms(programs, passing, overviews), nil
}

// Programs returns the catalog's program definitions.
func (m *Meter) Programs(ctx context.Context) ([]Definition, error) {
	return m.catalog.Programs(ctx)
}

// CompletedPrograms is the pure completion rule: a program is complete when every unit has a passing
// record in a mode the unit accepts; its visible date is the latest of its units' available dates.
// records are indexed by course key. A unit whose overview is missing uses the record's own dates.
func CompletedPrograms(programs []Definition, records map[string]certificate.Record, overviews map[string]course.Overview) map[string]time.Time {
	completed := make(map[string]time.Time)
programs:
	for _, p := range programs {
		if len(p.Units) == 0 {
			continue
		}
		var visible time.Time
		for _, u := range p.Units {
			rec, ok := records[u.CourseKey]
			if !ok || !rec.Status.IsPassing() || !u.Accepts(rec.Mode) {
				continue programs
			}
			if d := certificate.AvailableDate(overviews[u.CourseKey], rec); d.After(visible) {
				visible = d
			}
		}
		completed[p.UUID] = visible
	}
	return completed
}

// ContainingCourse returns the UUIDs of the programs that include courseKey, sorted.
func ContainingCourse(programs []Definition, courseKey string) []string {
	uuids := make([]string, 0)
	for _, p := range programs {
		if p.Contains(courseKey) {
			uuids = append(uuids, p.UUID)
		}
	}
	sort.Strings(uuids)
	return uuids
}
