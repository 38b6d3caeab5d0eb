package certificate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/course"
	"github.com/trezcool/masomo-credentials/core/events"
	"github.com/trezcool/masomo-credentials/core/user"
)

var NowFunc = time.Now // mockable

type (
	// Grader computes a learner's grade in a course run. A nil result means no grade exists yet.
	Grader interface {
		Grade(ctx context.Context, learner user.User, courseKey string, insecure bool) (*GradeResult, error)
	}

	GenerateOptions struct {
		// ForcedGrade replaces the computed grade and counts as passing.
		ForcedGrade string
		// Insecure is forwarded to the grading service.
		Insecure bool
	}

	// Evaluator decides and saves the certificate status of one learner in one course run.
	Evaluator struct {
		certs     Repository
		courses   course.Repository
		grader    Grader
		publisher events.Publisher
		logger    core.Logger
	}
)

func NewEvaluator(
	certs Repository,
	courses course.Repository,
	grader Grader,
	publisher events.Publisher,
	logger core.Logger,
) *Evaluator {
	return &Evaluator{
		certs:     certs,
		courses:   courses,
		grader:    grader,
		publisher: publisher,
		logger:    logger,
	}
}

// Generate (re)evaluates the learner's certificate for the course run.
// The record goes through StatusGenerating before its final status is saved.
// Grading errors leave the record in StatusError and are returned.
// A status change is announced until publishing succeeds, so calling Generate again after a
// publish failure publishes the event again.
func (ev *Evaluator) Generate(ctx context.Context, learner user.User, courseKey string, opts GenerateOptions) (Record, error) {
	if _, err := ev.courses.GetOverview(ctx, courseKey); err != nil {
		return Record{}, errors.Wrap(err, "getting course overview")
	}

	elig := Eligibility{
		IDVerified: learner.IDVerified,
		Restricted: learner.IsRestricted,
	}
	enrollment, err := ev.courses.GetEnrollment(ctx, learner.ID, courseKey)
	switch err {
	case nil:
		elig.Mode = enrollment.Mode
		elig.Enrolled = enrollment.IsActive
	case course.ErrEnrollmentNotFound:
	default:
		return Record{}, errors.Wrap(err, "getting enrollment")
	}

	if elig.Allowlisted, err = ev.certs.IsAllowlisted(ctx, learner.ID, courseKey); err != nil {
		return Record{}, errors.Wrap(err, "checking allowlist")
	}
	if elig.Invalidated, err = ev.certs.IsInvalidated(ctx, learner.ID, courseKey); err != nil {
		return Record{}, errors.Wrap(err, "checking invalidations")
	}

	prev, err := ev.certs.Get(ctx, learner.ID, courseKey)
	if err != nil && err != ErrNotFound {
		return Record{}, errors.Wrap(err, "getting certificate")
	}
	rec := prev
	rec.LearnerID = learner.ID
	rec.CourseKey = courseKey
	if elig.Mode != "" {
		rec.Mode = elig.Mode
	}

	rec.Status = StatusGenerating
	if rec, err = ev.save(ctx, rec); err != nil {
		return Record{}, err
	}

	if opts.ForcedGrade != "" {
		elig.Grade = &GradeResult{LetterGrade: opts.ForcedGrade, Passing: true}
	} else if elig.Enrolled || elig.Allowlisted {
		grade, err := ev.grader.Grade(ctx, learner, courseKey, opts.Insecure)
		if err != nil {
			rec.Status = StatusError
			rec.ErrorReason = err.Error()
			if _, sErr := ev.save(ctx, rec); sErr != nil {
				ev.logger.Error(fmt.Sprintf("saving certificate error state: %v", sErr), sErr)
			}
			return rec, errors.Wrap(err, "computing grade")
		}
		elig.Grade = grade
	}

	rec.Status = DecideStatus(elig)
	rec.Grade = ""
	if rec.Status != StatusUnavailable {
		rec.Grade = gradeString(elig.Grade)
	}
	rec.ErrorReason = ""
	if rec, err = ev.save(ctx, rec); err != nil {
		return Record{}, err
	}
	return ev.publish(ctx, learner, rec)
}

// Invalidate records an invalidation, unless one is active already, and makes the learner's certificate unavailable.
func (ev *Evaluator) Invalidate(ctx context.Context, learner user.User, courseKey, reason string) (Record, error) {
	invalidated, err := ev.certs.IsInvalidated(ctx, learner.ID, courseKey)
	if err != nil {
		return Record{}, errors.Wrap(err, "checking invalidations")
	}
	if !invalidated {
		if _, err := ev.certs.CreateInvalidation(ctx, Invalidation{
			LearnerID: learner.ID,
			CourseKey: courseKey,
			Reason:    reason,
			Active:    true,
			CreatedAt: NowFunc().UTC(),
		}); err != nil {
			return Record{}, errors.Wrap(err, "creating invalidation")
		}
	}

	rec, err := ev.certs.Get(ctx, learner.ID, courseKey)
	if err != nil {
		if err == ErrNotFound {
			return Record{}, nil // nothing issued yet
		}
		return Record{}, errors.Wrap(err, "getting certificate")
	}
	if rec.CurrentStatus() != StatusUnavailable {
		rec.Status = StatusUnavailable
		rec.Grade = ""
		if rec, err = ev.save(ctx, rec); err != nil {
			return Record{}, err
		}
	}
	return ev.publish(ctx, learner, rec)
}

func (ev *Evaluator) save(ctx context.Context, rec Record) (Record, error) {
	now := NowFunc().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.ModifiedAt = now
	saved, err := ev.certs.Upsert(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrapf(err, "saving certificate (%s)", rec.Status)
	}
	return saved, nil
}

// publish announces the change from the record's last announced status, then marks it announced.
func (ev *Evaluator) publish(ctx context.Context, learner user.User, rec Record) (Record, error) {
	e := TransitionEvent(learner, rec.AnnouncedStatus(), rec)
	if e == nil {
		return rec, nil
	}
	if err := ev.publisher.Publish(ctx, e); err != nil {
		return rec, errors.Wrap(err, "publishing certificate event")
	}
	if err := ev.certs.MarkNotified(ctx, rec.LearnerID, rec.CourseKey, rec.CurrentStatus()); err != nil {
		return rec, errors.Wrap(err, "marking certificate notified")
	}
	rec.NotifiedStatus = rec.CurrentStatus()
	return rec, nil
}

// TransitionEvent returns the event describing a status change from prev to rec.Status, if any:
// entering the passing status is an award, leaving it a revocation,
// and any other change into an interesting status is a change.
func TransitionEvent(learner user.User, prev Status, rec Record) events.Event {
	curr := rec.CurrentStatus()
	if prev == curr {
		return nil
	}
	cert := events.Certificate{
		LearnerID: learner.ID,
		Username:  learner.Username,
		CourseKey: rec.CourseKey,
		Mode:      string(rec.Mode),
		Status:    string(curr),
	}
	switch {
	case curr.IsPassing():
		return events.CertificateAwarded{Certificate: cert}
	case prev.IsPassing():
		return events.CertificateRevoked{Certificate: cert, PreviousStatus: string(prev)}
	case curr.IsInteresting():
		return events.CertificateChanged{Certificate: cert, PreviousStatus: string(prev)}
	}
	return nil
}

func gradeString(g *GradeResult) string {
	if g == nil {
		return ""
	}
	if g.LetterGrade != "" {
		return g.LetterGrade
	}
	return strconv.FormatFloat(g.PercentGrade, 'f', 2, 64)
}
