// Package award sequences the award and revocation of course and program credentials.
// Every operation returns an explicit task.Result; the queue turns it into retries.
package award

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/course"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/program"
	"github.com/trezcool/masomo-credentials/core/task"
	"github.com/trezcool/masomo-credentials/core/user"
)

type (
	Settings struct {
		ProgramCertificatesEnabled  bool
		ProgramsWithoutCertificates []string
		RateLimitDelay              time.Duration
	}

	CompletionMeter interface {
		Completed(ctx context.Context, learnerID int64) (map[string]time.Time, error)
		Programs(ctx context.Context) ([]program.Definition, error)
		SyncCourse(ctx context.Context, courseKey string) (course.Overview, error)
	}

	CertificateEvaluator interface {
		Generate(ctx context.Context, learner user.User, courseKey string, opts certificate.GenerateOptions) (certificate.Record, error)
		Invalidate(ctx context.Context, learner user.User, courseKey, reason string) (certificate.Record, error)
	}

	Orchestrator struct {
		users     user.Repository
		certs     certificate.Repository
		courses   course.Repository
		meter     CompletionMeter
		evaluator CertificateEvaluator
		gateways  credentials.GatewayFactory
		queue     task.Queue
		settings  Settings
		logger    core.Logger
	}
)

func NewOrchestrator(
	users user.Repository,
	certs certificate.Repository,
	courses course.Repository,
	meter CompletionMeter,
	evaluator CertificateEvaluator,
	gateways credentials.GatewayFactory,
	queue task.Queue,
	settings Settings,
	logger core.Logger,
) *Orchestrator {
	if settings.RateLimitDelay <= 0 {
		settings.RateLimitDelay = time.Minute
	}
	return &Orchestrator{
		users:     users,
		certs:     certs,
		courses:   courses,
		meter:     meter,
		evaluator: evaluator,
		gateways:  gateways,
		queue:     queue,
		settings:  settings,
		logger:    logger,
	}
}

// AwardProgramCertificates awards the credentials of every program the learner completed
// and does not hold yet, in program UUID order.
func (o *Orchestrator) AwardProgramCertificates(ctx context.Context, conf credentials.APIConfig, args LearnerArgs, attempt int) task.Result {
	if res, ok := o.checkIssuance(conf, attempt); !ok {
		return res
	}
	learner, res, ok := o.getLearner(ctx, args.Username, attempt)
	if !ok {
		return res
	}

	completed, err := o.meter.Completed(ctx, learner.ID)
	if err != nil {
		return o.retry(attempt, fmt.Sprintf("computing completed programs for %s: %v", learner.Username, err))
	}
	if len(completed) == 0 {
		o.logger.Info(fmt.Sprintf("no completed programs for %s", learner.Username))
		return task.Success()
	}

	gw := o.gateways.For(conf)
	awarded, err := gw.AwardedProgramUUIDs(ctx, learner)
	if err != nil {
		return o.retryCall(attempt, fmt.Sprintf("listing awarded programs for %s: %v", learner.Username, err), err)
	}
	excluded := toSet(awarded, o.settings.ProgramsWithoutCertificates)

	newPrograms := make([]string, 0, len(completed))
	for uuid := range completed {
		if _, ok := excluded[uuid]; !ok {
			newPrograms = append(newPrograms, uuid)
		}
	}
	sort.Strings(newPrograms)

	var failed []string
	for _, uuid := range newPrograms {
		err := gw.AwardProgramCredential(ctx, learner, uuid, completed[uuid])
		switch {
		case err == nil:
			o.logger.Info(fmt.Sprintf("awarded program %s to %s", uuid, learner.Username))
		case credentials.IsNotFound(err):
			o.logger.Warn(fmt.Sprintf("program %s has no credential configuration, skipping %s", uuid, learner.Username), err)
		case credentials.IsRateLimited(err):
			o.logger.Warn(fmt.Sprintf("rate limited awarding program %s to %s", uuid, learner.Username), err)
			return task.RetryAfter(o.settings.RateLimitDelay, "rate limited by credentials service")
		default:
			o.logger.Warn(fmt.Sprintf("failed to award program %s to %s: %v", uuid, learner.Username, err), err)
			failed = append(failed, uuid)
		}
	}

	if len(failed) > 0 {
		return task.RetryAfter(task.Backoff(attempt), fmt.Sprintf("failed to award %d program(s) to %s", len(failed), learner.Username), failed...)
	}
	return task.Success()
}

// RevokeProgramCertificates revokes the learner's awarded credentials of every program containing the course run.
func (o *Orchestrator) RevokeProgramCertificates(ctx context.Context, conf credentials.APIConfig, args CourseArgs, attempt int) task.Result {
	if res, ok := o.checkIssuance(conf, attempt); !ok {
		return res
	}
	learner, res, ok := o.getLearner(ctx, args.Username, attempt)
	if !ok {
		return res
	}

	programs, err := o.meter.Programs(ctx)
	if err != nil {
		return o.retry(attempt, fmt.Sprintf("getting programs: %v", err))
	}
	containing := program.ContainingCourse(programs, args.CourseKey)
	if len(containing) == 0 {
		return task.Success()
	}

	gw := o.gateways.For(conf)
	awarded, err := gw.AwardedProgramUUIDs(ctx, learner)
	if err != nil {
		return o.retryCall(attempt, fmt.Sprintf("listing awarded programs for %s: %v", learner.Username, err), err)
	}
	held := toSet(awarded)

	var failed []string
	for _, uuid := range containing {
		if _, ok := held[uuid]; !ok {
			continue
		}
		err := gw.RevokeProgramCredential(ctx, learner, uuid)
		switch {
		case err == nil:
			o.logger.Info(fmt.Sprintf("revoked program %s from %s", uuid, learner.Username))
		case credentials.IsNotFound(err):
			o.logger.Warn(fmt.Sprintf("program %s has no credential configuration, skipping %s", uuid, learner.Username), err)
		case credentials.IsRateLimited(err):
			o.logger.Warn(fmt.Sprintf("rate limited revoking program %s from %s", uuid, learner.Username), err)
			return task.RetryAfter(o.settings.RateLimitDelay, "rate limited by credentials service")
		default:
			o.logger.Warn(fmt.Sprintf("failed to revoke program %s from %s: %v", uuid, learner.Username, err), err)
			failed = append(failed, uuid)
		}
	}

	if len(failed) > 0 {
		return task.RetryAfter(task.Backoff(attempt), fmt.Sprintf("failed to revoke %d program(s) from %s", len(failed), learner.Username), failed...)
	}
	return task.Success()
}

// AwardCourseCertificate syncs the learner's course certificate with the Credentials service.
// The record is read at execution time: queued tasks carry no certificate state.
func (o *Orchestrator) AwardCourseCertificate(ctx context.Context, conf credentials.APIConfig, args CourseArgs, attempt int) task.Result {
	if res, ok := o.checkIssuance(conf, attempt); !ok {
		return res
	}
	learner, res, ok := o.getLearner(ctx, args.Username, attempt)
	if !ok {
		return res
	}

	rec, err := o.certs.Get(ctx, learner.ID, args.CourseKey)
	if err != nil {
		if err == certificate.ErrNotFound {
			return task.Abort(fmt.Sprintf("no certificate for %s in %s", learner.Username, args.CourseKey))
		}
		return o.retry(attempt, fmt.Sprintf("getting certificate: %v", err))
	}
	overview, err := o.overview(ctx, args.CourseKey)
	if err != nil {
		if err == course.ErrNotFound {
			return task.Abort(fmt.Sprintf("course %s not found", args.CourseKey))
		}
		return o.retry(attempt, fmt.Sprintf("getting course overview: %v", err))
	}
	if !overview.IssuesCertificatesFor(rec.Mode) {
		o.logger.Info(fmt.Sprintf("skipping %s certificate of %s in %s: mode not certificate-relevant", rec.Mode, learner.Username, args.CourseKey))
		return task.Success()
	}

	award := credentials.CourseAward{
		CourseKey:    rec.CourseKey,
		Mode:         rec.Mode,
		Status:       credentials.StatusRevoked,
		VisibleDate:  certificate.AvailableDate(overview, rec),
		DateOverride: rec.DateOverride,
	}
	if rec.Status.IsPassing() {
		award.Status = credentials.StatusAwarded
	}

	err = o.gateways.For(conf).AwardCourseCredential(ctx, learner, award)
	switch {
	case err == nil:
		o.logger.Info(fmt.Sprintf("posted %s course credential %s for %s", award.Status, args.CourseKey, learner.Username))
	case credentials.IsNotFound(err):
		o.logger.Warn(fmt.Sprintf("course %s has no credential configuration, skipping %s", args.CourseKey, learner.Username), err)
	default:
		return o.retryCall(attempt, fmt.Sprintf("posting course credential %s for %s: %v", args.CourseKey, learner.Username, err), err, args.CourseKey)
	}
	return task.Success()
}

// UpdateCourseCertificateConfig refreshes the run's overview from the catalog, publishes its certificate
// configuration for each certificate mode, then refreshes the course credentials of the learners holding
// a passing certificate. Runs the catalog does not know keep their stored overview.
func (o *Orchestrator) UpdateCourseCertificateConfig(ctx context.Context, conf credentials.APIConfig, args CourseConfigArgs, attempt int) task.Result {
	if !conf.Enabled {
		o.logger.Info("credentials api disabled, deferring course certificate configuration")
		return task.RetryAfter(task.Backoff(attempt), "credentials api disabled")
	}

	overview, err := o.meter.SyncCourse(ctx, args.CourseKey)
	if err != nil {
		if err != program.ErrCourseNotInCatalog {
			o.logger.Warn(fmt.Sprintf("refreshing course %s from the catalog: %v", args.CourseKey, err), err)
		}
		overview, err = o.courses.GetOverview(ctx, args.CourseKey)
	}
	if err != nil {
		if err == course.ErrNotFound {
			return task.Abort(fmt.Sprintf("course %s not found", args.CourseKey))
		}
		return o.retry(attempt, fmt.Sprintf("getting course overview: %v", err))
	}
	if len(overview.CertificateModes) == 0 {
		o.logger.Info(fmt.Sprintf("course %s has no certificate modes", args.CourseKey))
		return task.Success()
	}

	gw := o.gateways.For(conf)
	availableDate := overview.AvailableDateForConfig()
	var failed []string
	for _, mode := range overview.CertificateModes {
		err := gw.UpsertCourseCertificateConfiguration(ctx, overview.Key, mode, availableDate)
		switch {
		case err == nil:
		case credentials.IsNotFound(err):
			o.logger.Warn(fmt.Sprintf("credentials service has no %s configuration for %s", mode, overview.Key), err)
		case credentials.IsRateLimited(err):
			return task.RetryAfter(o.settings.RateLimitDelay, "rate limited by credentials service")
		default:
			o.logger.Warn(fmt.Sprintf("failed to configure %s certificates of %s: %v", mode, overview.Key, err), err)
			failed = append(failed, string(mode))
		}
	}
	if len(failed) > 0 {
		return task.RetryAfter(task.Backoff(attempt), fmt.Sprintf("failed to configure %d mode(s) of %s", len(failed), overview.Key), failed...)
	}

	recs, err := o.certs.ListByCourse(ctx, overview.Key, certificate.StatusDownloadable)
	if err != nil {
		return o.retry(attempt, fmt.Sprintf("listing certificates of %s: %v", overview.Key, err))
	}
	for _, rec := range recs {
		learner, err := o.users.GetByID(ctx, rec.LearnerID)
		if err != nil {
			if err == user.ErrNotFound {
				continue
			}
			return o.retry(attempt, fmt.Sprintf("getting learner %d: %v", rec.LearnerID, err))
		}
		d := task.Descriptor{Name: TaskAwardCourseCertificate, Args: CourseArgs{Username: learner.Username, CourseKey: rec.CourseKey}}
		if err := o.queue.Enqueue(ctx, d); err != nil {
			return o.retry(attempt, fmt.Sprintf("enqueueing %s: %v", d.Name, err))
		}
	}
	return task.Success()
}

// InvalidateCertificate invalidates the learner's certificate; the evaluator publishes the resulting revocation.
func (o *Orchestrator) InvalidateCertificate(ctx context.Context, args InvalidateArgs, attempt int) task.Result {
	learner, res, ok := o.getLearner(ctx, args.Username, attempt)
	if !ok {
		return res
	}
	reason := args.Reason
	if args.AttemptID != "" {
		reason = fmt.Sprintf("exam attempt %s rejected: %s", args.AttemptID, args.Reason)
	}
	if _, err := o.evaluator.Invalidate(ctx, learner, args.CourseKey, reason); err != nil {
		return o.retry(attempt, fmt.Sprintf("invalidating certificate of %s in %s: %v", learner.Username, args.CourseKey, err))
	}
	return task.Success()
}

// GenerateCertificate runs the evaluator for the learner; grading failures are retried.
func (o *Orchestrator) GenerateCertificate(ctx context.Context, args GenerateArgs, attempt int) task.Result {
	learner, res, ok := o.getLearner(ctx, args.Username, attempt)
	if !ok {
		return res
	}
	if _, err := o.overview(ctx, args.CourseKey); err != nil {
		if err == course.ErrNotFound {
			return task.Abort(fmt.Sprintf("course %s not found", args.CourseKey))
		}
		return o.retry(attempt, fmt.Sprintf("getting course overview: %v", err))
	}
	opts := certificate.GenerateOptions{ForcedGrade: args.ForcedGrade, Insecure: args.Insecure}
	if _, err := o.evaluator.Generate(ctx, learner, args.CourseKey, opts); err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return task.Abort(fmt.Sprintf("course %s not found", args.CourseKey))
		}
		return o.retry(attempt, fmt.Sprintf("generating certificate of %s in %s: %v", learner.Username, args.CourseKey, err))
	}
	return task.Success()
}

// NotifyLearner enqueues the sync of every interesting course certificate of the learner,
// followed by a program award.
func (o *Orchestrator) NotifyLearner(ctx context.Context, learner user.User) error {
	recs, err := o.certs.ListByLearner(ctx, learner.ID)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if !rec.Status.IsInteresting() {
			continue
		}
		d := task.Descriptor{Name: TaskAwardCourseCertificate, Args: CourseArgs{Username: learner.Username, CourseKey: rec.CourseKey}}
		if err := o.queue.Enqueue(ctx, d); err != nil {
			return err
		}
	}
	if !o.settings.ProgramCertificatesEnabled {
		return nil
	}
	return o.queue.Enqueue(ctx, task.Descriptor{Name: TaskAwardProgramCertificates, Args: LearnerArgs{Username: learner.Username}})
}

// Backfill enqueues program awards for learners whose passing certificates changed since the given time.
// It returns the number of learners enqueued.
func (o *Orchestrator) Backfill(ctx context.Context, since time.Time) (int, error) {
	if !o.settings.ProgramCertificatesEnabled {
		return 0, nil
	}
	recs, err := o.certs.ListModifiedSince(ctx, since, certificate.StatusDownloadable)
	if err != nil {
		return 0, err
	}
	seen := make(map[int64]struct{}, len(recs))
	var n int
	for _, rec := range recs {
		if _, ok := seen[rec.LearnerID]; ok {
			continue
		}
		seen[rec.LearnerID] = struct{}{}

		learner, err := o.users.GetByID(ctx, rec.LearnerID)
		if err != nil {
			if err == user.ErrNotFound {
				continue
			}
			return n, err
		}
		d := task.Descriptor{Name: TaskAwardProgramCertificates, Args: LearnerArgs{Username: learner.Username}}
		if err := o.queue.Enqueue(ctx, d); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// overview returns the stored course overview, fetching unknown runs from the catalog.
func (o *Orchestrator) overview(ctx context.Context, courseKey string) (course.Overview, error) {
	ov, err := o.courses.GetOverview(ctx, courseKey)
	if err != course.ErrNotFound {
		return ov, err
	}
	ov, err = o.meter.SyncCourse(ctx, courseKey)
	if err == program.ErrCourseNotInCatalog {
		return course.Overview{}, course.ErrNotFound
	}
	return ov, err
}

func (o *Orchestrator) checkIssuance(conf credentials.APIConfig, attempt int) (task.Result, bool) {
	if conf.IsLearnerIssuanceEnabled() {
		return task.Result{}, true
	}
	o.logger.Info("learner credential issuance disabled, deferring")
	return task.RetryAfter(task.Backoff(attempt), "learner credential issuance disabled"), false
}

func (o *Orchestrator) getLearner(ctx context.Context, username string, attempt int) (user.User, task.Result, bool) {
	learner, err := o.users.GetByUsername(ctx, username)
	if err != nil {
		if err == user.ErrNotFound {
			o.logger.Error(fmt.Sprintf("learner %q not found", username), err)
			return user.User{}, task.Abort(fmt.Sprintf("learner %q not found", username)), false
		}
		return user.User{}, o.retry(attempt, fmt.Sprintf("getting learner %q: %v", username, err)), false
	}
	return learner, task.Result{}, true
}

func (o *Orchestrator) retry(attempt int, reason string, failed ...string) task.Result {
	o.logger.Warn(reason)
	return task.RetryAfter(task.Backoff(attempt), reason, failed...)
}

// retryCall retries a failed gateway call, honoring rate limiting.
func (o *Orchestrator) retryCall(attempt int, reason string, err error, failed ...string) task.Result {
	if credentials.IsRateLimited(err) {
		o.logger.Warn(reason, err)
		return task.RetryAfter(o.settings.RateLimitDelay, "rate limited by credentials service", failed...)
	}
	return o.retry(attempt, reason, failed...)
}

func toSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, l := range lists {
		for _, s := range l {
			set[s] = struct{}{}
		}
	}
	return set
}
