package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/masomo-credentials/core/certificate"
)

type certificateRepository struct {
	db *certificateTable
}

var _ certificate.Repository = (*certificateRepository)(nil)

func NewCertificateRepository(db *DB) certificate.Repository {
	return &certificateRepository{db: db.certificate}
}

func (repo *certificateRepository) Get(ctx context.Context, learnerID int64, courseKey string) (certificate.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.records[enrollmentKey{learnerID, courseKey}]; ok {
		return rec, nil
	}
	return certificate.Record{}, certificate.ErrNotFound
}

func (repo *certificateRepository) Upsert(ctx context.Context, rec certificate.Record) (certificate.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	k := enrollmentKey{rec.LearnerID, rec.CourseKey}
	if prev, ok := repo.db.records[k]; ok {
		rec.CreatedAt = prev.CreatedAt
		rec.NotifiedStatus = prev.NotifiedStatus
	}
	repo.db.records[k] = rec
	return rec, nil
}

func (repo *certificateRepository) MarkNotified(ctx context.Context, learnerID int64, courseKey string, status certificate.Status) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	k := enrollmentKey{learnerID, courseKey}
	rec, ok := repo.db.records[k]
	if !ok {
		return certificate.ErrNotFound
	}
	rec.NotifiedStatus = status
	repo.db.records[k] = rec
	return nil
}

func (repo *certificateRepository) filter(keep func(certificate.Record) bool) []certificate.Record {
	recs := make([]certificate.Record, 0)
	for _, rec := range repo.db.records {
		if keep(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].ModifiedAt.Equal(recs[j].ModifiedAt) {
			if recs[i].LearnerID == recs[j].LearnerID {
				return recs[i].CourseKey < recs[j].CourseKey
			}
			return recs[i].LearnerID < recs[j].LearnerID
		}
		return recs[i].ModifiedAt.Before(recs[j].ModifiedAt)
	})
	return recs
}

func (repo *certificateRepository) ListByLearner(ctx context.Context, learnerID int64) ([]certificate.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.filter(func(rec certificate.Record) bool { return rec.LearnerID == learnerID }), nil
}

func (repo *certificateRepository) ListByCourse(ctx context.Context, courseKey string, statuses ...certificate.Status) ([]certificate.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.filter(func(rec certificate.Record) bool {
		return rec.CourseKey == courseKey && hasStatus(rec, statuses)
	}), nil
}

func (repo *certificateRepository) ListModifiedSince(ctx context.Context, since time.Time, statuses ...certificate.Status) ([]certificate.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.filter(func(rec certificate.Record) bool {
		return !rec.ModifiedAt.Before(since) && hasStatus(rec, statuses)
	}), nil
}

func (repo *certificateRepository) IsAllowlisted(ctx context.Context, learnerID int64, courseKey string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	_, ok := repo.db.allowlist[enrollmentKey{learnerID, courseKey}]
	return ok, nil
}

func (repo *certificateRepository) AddToAllowlist(ctx context.Context, entry certificate.AllowlistEntry) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.allowlist[enrollmentKey{entry.LearnerID, entry.CourseKey}] = entry
	return nil
}

func (repo *certificateRepository) IsInvalidated(ctx context.Context, learnerID int64, courseKey string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, inv := range repo.db.invalidations {
		if inv.Active && inv.LearnerID == learnerID && inv.CourseKey == courseKey {
			return true, nil
		}
	}
	return false, nil
}

func (repo *certificateRepository) CreateInvalidation(ctx context.Context, inv certificate.Invalidation) (certificate.Invalidation, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	inv.ID = int64(len(repo.db.invalidations) + 1)
	repo.db.invalidations = append(repo.db.invalidations, inv)
	return inv, nil
}

func hasStatus(rec certificate.Record, statuses []certificate.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if rec.Status == s {
			return true
		}
	}
	return false
}
