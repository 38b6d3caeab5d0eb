package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/course"
)

const overviewColumns = "course_key, display_name, self_paced, start_date, end_date, certificate_available_date, display_behavior, certificate_modes, updated_at"

type (
	overviewRow struct {
		CourseKey                string    `db:"course_key"`
		DisplayName              string    `db:"display_name"`
		SelfPaced                bool      `db:"self_paced"`
		StartDate                null.Time `db:"start_date"`
		EndDate                  null.Time `db:"end_date"`
		CertificateAvailableDate null.Time `db:"certificate_available_date"`
		DisplayBehavior          string    `db:"display_behavior"`
		CertificateModes         string    `db:"certificate_modes"`
		UpdatedAt                time.Time `db:"updated_at"`
	}

	courseRepository struct {
		db core.DBExecutor
	}
)

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db core.DBExecutor) course.Repository {
	return &courseRepository{db: db}
}

func (r overviewRow) toOverview() course.Overview {
	modes := make([]course.Mode, 0)
	for _, m := range core.SplitList(r.CertificateModes) {
		modes = append(modes, course.Mode(m))
	}
	return course.Overview{
		Key:                      r.CourseKey,
		DisplayName:              r.DisplayName,
		SelfPaced:                r.SelfPaced,
		Start:                    r.StartDate.Ptr(),
		End:                      r.EndDate.Ptr(),
		CertificateAvailableDate: r.CertificateAvailableDate.Ptr(),
		DisplayBehavior:          course.DisplayBehavior(r.DisplayBehavior),
		CertificateModes:         modes,
		UpdatedAt:                r.UpdatedAt,
	}
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func joinModes(modes []course.Mode) string {
	ss := make([]string, 0, len(modes))
	for _, m := range modes {
		ss = append(ss, string(m))
	}
	return strings.Join(ss, ",")
}

func (repo *courseRepository) GetOverview(ctx context.Context, key string) (course.Overview, error) {
	var row overviewRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+overviewColumns+" FROM course_overviews WHERE course_key = $1", key)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Overview{}, course.ErrNotFound
		}
		return course.Overview{}, errors.Wrap(err, "selecting course overview")
	}
	return row.toOverview(), nil
}

func (repo *courseRepository) GetOverviews(ctx context.Context, keys ...string) (map[string]course.Overview, error) {
	overviews := make(map[string]course.Overview, len(keys))
	if len(keys) == 0 {
		return overviews, nil
	}
	var rows []overviewRow
	if err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+overviewColumns+" FROM course_overviews WHERE course_key = ANY($1)", pq.Array(keys)); err != nil {
		return nil, errors.Wrap(err, "selecting course overviews")
	}
	for _, row := range rows {
		overviews[row.CourseKey] = row.toOverview()
	}
	return overviews, nil
}

func (repo *courseRepository) UpsertOverview(ctx context.Context, o course.Overview) (course.Overview, error) {
	o.Normalize()
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}
	var row overviewRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO course_overviews (`+overviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (course_key) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			self_paced = EXCLUDED.self_paced,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			certificate_available_date = EXCLUDED.certificate_available_date,
			display_behavior = EXCLUDED.display_behavior,
			certificate_modes = EXCLUDED.certificate_modes,
			updated_at = EXCLUDED.updated_at
		RETURNING `+overviewColumns,
		o.Key, o.DisplayName, o.SelfPaced, nullTime(o.Start), nullTime(o.End), nullTime(o.CertificateAvailableDate),
		string(o.DisplayBehavior), joinModes(o.CertificateModes), o.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Overview{}, errors.Wrap(err, "upserting course overview")
	}
	return row.toOverview(), nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, learnerID int64, courseKey string) (course.Enrollment, error) {
	var e course.Enrollment
	err := repo.db.GetContext(ctx, &e,
		"SELECT user_id, course_key, mode, is_active, created_at FROM course_enrollments WHERE user_id = $1 AND course_key = $2",
		learnerID, courseKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "selecting enrollment")
	}
	return e, nil
}

func (repo *courseRepository) UpsertEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	var saved course.Enrollment
	err := repo.db.GetContext(ctx, &saved, `
		INSERT INTO course_enrollments (user_id, course_key, mode, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, course_key) DO UPDATE SET mode = EXCLUDED.mode, is_active = EXCLUDED.is_active
		RETURNING user_id, course_key, mode, is_active, created_at`,
		e.LearnerID, e.CourseKey, string(e.Mode), e.IsActive, e.CreatedAt.UTC(),
	)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "upserting enrollment")
	}
	return saved, nil
}
