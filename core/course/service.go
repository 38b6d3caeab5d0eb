package course

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

type Repository interface {
	GetOverview(ctx context.Context, key string) (Overview, error)
	// GetOverviews returns the overviews found for the keys, indexed by key; missing keys are omitted.
	GetOverviews(ctx context.Context, keys ...string) (map[string]Overview, error)
	// UpsertOverview normalizes then saves the overview.
	UpsertOverview(ctx context.Context, o Overview) (Overview, error)
	GetEnrollment(ctx context.Context, learnerID int64, courseKey string) (Enrollment, error)
	UpsertEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
}
