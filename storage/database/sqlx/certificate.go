package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/course"
)

const (
	certificateColumns  = "user_id, course_key, status, mode, grade, error_reason, date_override, notified_status, created_at, modified_at"
	certificateOrdering = " ORDER BY modified_at, user_id, course_key"
)

type (
	certificateRow struct {
		LearnerID      int64       `db:"user_id"`
		CourseKey      string      `db:"course_key"`
		Status         string      `db:"status"`
		Mode           string      `db:"mode"`
		Grade          string      `db:"grade"`
		ErrorReason    null.String `db:"error_reason"`
		DateOverride   null.Time   `db:"date_override"`
		NotifiedStatus string      `db:"notified_status"`
		CreatedAt      time.Time   `db:"created_at"`
		ModifiedAt     time.Time   `db:"modified_at"`
	}

	certificateRepository struct {
		db core.DBExecutor
	}
)

var _ certificate.Repository = (*certificateRepository)(nil)

func NewCertificateRepository(db core.DBExecutor) certificate.Repository {
	return &certificateRepository{db: db}
}

func (r certificateRow) toRecord() certificate.Record {
	return certificate.Record{
		LearnerID:      r.LearnerID,
		CourseKey:      r.CourseKey,
		Status:         certificate.Status(r.Status),
		Mode:           course.Mode(r.Mode),
		Grade:          r.Grade,
		ErrorReason:    r.ErrorReason.String,
		DateOverride:   r.DateOverride.Ptr(),
		NotifiedStatus: certificate.Status(r.NotifiedStatus),
		CreatedAt:      r.CreatedAt,
		ModifiedAt:     r.ModifiedAt,
	}
}

func toRecords(rows []certificateRow) []certificate.Record {
	recs := make([]certificate.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toRecord())
	}
	return recs
}

func statusArray(statuses []certificate.Status) interface{} {
	ss := make([]string, 0, len(statuses))
	for _, s := range statuses {
		ss = append(ss, string(s))
	}
	return pq.Array(ss)
}

func (repo *certificateRepository) Get(ctx context.Context, learnerID int64, courseKey string) (certificate.Record, error) {
	var row certificateRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT "+certificateColumns+" FROM certificates WHERE user_id = $1 AND course_key = $2", learnerID, courseKey)
	if err != nil {
		if err == sql.ErrNoRows {
			return certificate.Record{}, certificate.ErrNotFound
		}
		return certificate.Record{}, errors.Wrap(err, "selecting certificate")
	}
	return row.toRecord(), nil
}

func (repo *certificateRepository) Upsert(ctx context.Context, rec certificate.Record) (certificate.Record, error) {
	var row certificateRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, course_key) DO UPDATE SET
			status = EXCLUDED.status,
			mode = EXCLUDED.mode,
			grade = EXCLUDED.grade,
			error_reason = EXCLUDED.error_reason,
			date_override = EXCLUDED.date_override,
			modified_at = EXCLUDED.modified_at
		RETURNING `+certificateColumns,
		rec.LearnerID, rec.CourseKey, string(rec.Status), string(rec.Mode), rec.Grade,
		null.NewString(rec.ErrorReason, rec.ErrorReason != ""), nullTime(rec.DateOverride),
		string(rec.AnnouncedStatus()), rec.CreatedAt.UTC(), rec.ModifiedAt.UTC(),
	)
	if err != nil {
		return certificate.Record{}, errors.Wrap(err, "upserting certificate")
	}
	return row.toRecord(), nil
}

func (repo *certificateRepository) ListByLearner(ctx context.Context, learnerID int64) ([]certificate.Record, error) {
	var rows []certificateRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+certificateColumns+" FROM certificates WHERE user_id = $1"+certificateOrdering, learnerID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting certificates")
	}
	return toRecords(rows), nil
}

func (repo *certificateRepository) ListByCourse(ctx context.Context, courseKey string, statuses ...certificate.Status) ([]certificate.Record, error) {
	q := "SELECT " + certificateColumns + " FROM certificates WHERE course_key = $1"
	args := []interface{}{courseKey}
	if len(statuses) > 0 {
		q += " AND status = ANY($2)"
		args = append(args, statusArray(statuses))
	}
	var rows []certificateRow
	if err := repo.db.SelectContext(ctx, &rows, q+certificateOrdering, args...); err != nil {
		return nil, errors.Wrap(err, "selecting certificates")
	}
	return toRecords(rows), nil
}

func (repo *certificateRepository) ListModifiedSince(ctx context.Context, since time.Time, statuses ...certificate.Status) ([]certificate.Record, error) {
	q := "SELECT " + certificateColumns + " FROM certificates WHERE modified_at >= $1"
	args := []interface{}{since.UTC()}
	if len(statuses) > 0 {
		q += " AND status = ANY($2)"
		args = append(args, statusArray(statuses))
	}
	var rows []certificateRow
	if err := repo.db.SelectContext(ctx, &rows, q+certificateOrdering, args...); err != nil {
		return nil, errors.Wrap(err, "selecting certificates")
	}
	return toRecords(rows), nil
}

func (repo *certificateRepository) MarkNotified(ctx context.Context, learnerID int64, courseKey string, status certificate.Status) error {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE certificates SET notified_status = $3 WHERE user_id = $1 AND course_key = $2", learnerID, courseKey, string(status))
	if err != nil {
		return errors.Wrap(err, "marking certificate notified")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return certificate.ErrNotFound
	}
	return nil
}

func (repo *certificateRepository) IsAllowlisted(ctx context.Context, learnerID int64, courseKey string) (bool, error) {
	var ok bool
	err := repo.db.GetContext(ctx, &ok,
		"SELECT EXISTS(SELECT 1 FROM certificate_allowlist WHERE user_id = $1 AND course_key = $2)", learnerID, courseKey)
	return ok, errors.Wrap(err, "checking allowlist")
}

func (repo *certificateRepository) AddToAllowlist(ctx context.Context, entry certificate.AllowlistEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO certificate_allowlist (user_id, course_key, notes, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, course_key) DO UPDATE SET notes = EXCLUDED.notes`,
		entry.LearnerID, entry.CourseKey, entry.Notes, entry.CreatedAt.UTC(),
	)
	return errors.Wrap(err, "adding to allowlist")
}

func (repo *certificateRepository) IsInvalidated(ctx context.Context, learnerID int64, courseKey string) (bool, error) {
	var ok bool
	err := repo.db.GetContext(ctx, &ok,
		"SELECT EXISTS(SELECT 1 FROM certificate_invalidations WHERE user_id = $1 AND course_key = $2 AND active)", learnerID, courseKey)
	return ok, errors.Wrap(err, "checking invalidations")
}

func (repo *certificateRepository) CreateInvalidation(ctx context.Context, inv certificate.Invalidation) (certificate.Invalidation, error) {
	err := repo.db.GetContext(ctx, &inv.ID, `
		INSERT INTO certificate_invalidations (user_id, course_key, reason, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		inv.LearnerID, inv.CourseKey, inv.Reason, inv.Active, inv.CreatedAt.UTC(),
	)
	if err != nil {
		return certificate.Invalidation{}, errors.Wrap(err, "creating invalidation")
	}
	return inv, nil
}
