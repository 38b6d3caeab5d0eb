package certificate

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("certificate not found")

type Repository interface {
	Get(ctx context.Context, learnerID int64, courseKey string) (Record, error)
	// Upsert saves the record by (LearnerID, CourseKey); CreatedAt is kept on update.
	Upsert(ctx context.Context, rec Record) (Record, error)
	ListByLearner(ctx context.Context, learnerID int64) ([]Record, error)
	// ListByCourse returns the run's records, filtered by status when any is given, oldest change first.
	ListByCourse(ctx context.Context, courseKey string, statuses ...Status) ([]Record, error)
	// ListModifiedSince returns records changed at or after since, filtered by status when any is given.
	ListModifiedSince(ctx context.Context, since time.Time, statuses ...Status) ([]Record, error)
	// MarkNotified sets the record's NotifiedStatus without touching ModifiedAt.
	MarkNotified(ctx context.Context, learnerID int64, courseKey string, status Status) error

	IsAllowlisted(ctx context.Context, learnerID int64, courseKey string) (bool, error)
	AddToAllowlist(ctx context.Context, entry AllowlistEntry) error
	IsInvalidated(ctx context.Context, learnerID int64, courseKey string) (bool, error)
	CreateInvalidation(ctx context.Context, inv Invalidation) (Invalidation, error)
}
