package program

import (
	"context"
	"errors"
	"sort"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core/course"
)

var ErrCourseNotInCatalog = errors.New("course run not in catalog")

// Overview converts the catalog run into a normalized course overview.
func (r CourseRun) Overview() (course.Overview, error) {
	o := course.Overview{
		Key:              r.Key,
		DisplayName:      r.Title,
		SelfPaced:        r.SelfPaced,
		DisplayBehavior:  r.Certificate.DisplayBehavior,
		CertificateModes: r.Modes,
	}
	var err error
	if o.Start, err = parseDate(r.Start); err != nil {
		return course.Overview{}, pkgerrors.Wrapf(err, "parsing start of %s", r.Key)
	}
	if o.End, err = parseDate(r.End); err != nil {
		return course.Overview{}, pkgerrors.Wrapf(err, "parsing end of %s", r.Key)
	}
	if o.CertificateAvailableDate, err = parseDate(r.Certificate.AvailableDate); err != nil {
		return course.Overview{}, pkgerrors.Wrapf(err, "parsing certificate available date of %s", r.Key)
	}
	o.Normalize()
	return o, nil
}

// SyncCourse refreshes the stored overview of the course run from the catalog.
// It returns ErrCourseNotInCatalog when no program unit leads to the run.
func (m *Meter) SyncCourse(ctx context.Context, courseKey string) (course.Overview, error) {
	programs, err := m.catalog.Programs(ctx)
	if err != nil {
		return course.Overview{}, pkgerrors.Wrap(err, "getting programs")
	}
	courseUUID := ""
	for _, p := range programs {
		for _, u := range p.Units {
			if u.CourseKey == courseKey && u.CourseUUID != "" {
				courseUUID = u.CourseUUID
			}
		}
	}
	if courseUUID == "" {
		return course.Overview{}, ErrCourseNotInCatalog
	}

	runs, err := m.catalog.CourseRunsForCourse(ctx, courseUUID)
	if err != nil {
		return course.Overview{}, pkgerrors.Wrapf(err, "getting course runs of %s", courseUUID)
	}
	for _, run := range runs {
		if run.Key == courseKey {
			return m.saveRun(ctx, run)
		}
	}
	return course.Overview{}, ErrCourseNotInCatalog
}

// SyncCourses refreshes the stored overviews of every run of the courses found in programs.
// It returns the number of overviews saved.
func (m *Meter) SyncCourses(ctx context.Context) (int, error) {
	programs, err := m.catalog.Programs(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "getting programs")
	}
	uuids := make(map[string]struct{})
	for _, p := range programs {
		for _, u := range p.Units {
			if u.CourseUUID != "" {
				uuids[u.CourseUUID] = struct{}{}
			}
		}
	}
	sorted := make([]string, 0, len(uuids))
	for uuid := range uuids {
		sorted = append(sorted, uuid)
	}
	sort.Strings(sorted)

	var n int
	for _, uuid := range sorted {
		runs, err := m.catalog.CourseRunsForCourse(ctx, uuid)
		if err != nil {
			return n, pkgerrors.Wrapf(err, "getting course runs of %s", uuid)
		}
		for _, run := range runs {
			if _, err := m.saveRun(ctx, run); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (m *Meter) saveRun(ctx context.Context, run CourseRun) (course.Overview, error) {
	o, err := run.Overview()
	if err != nil {
		return course.Overview{}, err
	}
	saved, err := m.courses.UpsertOverview(ctx, o)
	if err != nil {
		return course.Overview{}, pkgerrors.Wrapf(err, "saving course %s", run.Key)
	}
	return saved, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
