package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-credentials/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) GetOverview(ctx context.Context, key string) (course.Overview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if o, ok := repo.db.overviews[key]; ok {
		return o, nil
	}
	return course.Overview{}, course.ErrNotFound
}

func (repo *courseRepository) GetOverviews(ctx context.Context, keys ...string) (map[string]course.Overview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	found := make(map[string]course.Overview, len(keys))
	for _, k := range keys {
		if o, ok := repo.db.overviews[k]; ok {
			found[k] = o
		}
	}
	return found, nil
}

func (repo *courseRepository) UpsertOverview(ctx context.Context, o course.Overview) (course.Overview, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	o.Normalize()
	repo.db.overviews[o.Key] = o
	return o, nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, learnerID int64, courseKey string) (course.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if e, ok := repo.db.enrollments[enrollmentKey{learnerID, courseKey}]; ok {
		return e, nil
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) UpsertEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	k := enrollmentKey{e.LearnerID, e.CourseKey}
	if prev, ok := repo.db.enrollments[k]; ok {
		e.CreatedAt = prev.CreatedAt
	}
	repo.db.enrollments[k] = e
	return e, nil
}
