package testutil

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/course"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/program"
	"github.com/trezcool/masomo-credentials/core/user"
	"github.com/trezcool/masomo-credentials/services/logger"
)

func NewLogger() core.Logger {
	return logsvc.NewDiscardLogger()
}

func CreateUser(t *testing.T, repo user.Repository, username string, opts ...func(*user.User)) user.User {
	tstamp := time.Now().UTC()
	usr := user.User{
		Username:   username,
		Email:      username + "@example.com",
		IsActive:   true,
		IDVerified: true,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	for _, opt := range opts {
		opt(&usr)
	}
	usr, err := repo.UpdateOrCreate(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, key string, opts ...func(*course.Overview)) course.Overview {
	o := course.Overview{
		Key:             key,
		DisplayName:     key,
		DisplayBehavior: course.DisplayEnd,
		UpdatedAt:       time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	o, err := repo.UpsertOverview(context.Background(), o)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return o
}

func Enroll(t *testing.T, repo course.Repository, learner user.User, key string, mode course.Mode) course.Enrollment {
	e, err := repo.UpsertEnrollment(context.Background(), course.Enrollment{
		LearnerID: learner.ID,
		CourseKey: key,
		Mode:      mode,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}

func CreateCertificate(
	t *testing.T,
	repo certificate.Repository,
	learner user.User,
	key string,
	mode course.Mode,
	status certificate.Status,
	modifiedAt ...time.Time,
) certificate.Record {
	tstamp := time.Now().UTC()
	if len(modifiedAt) > 0 {
		tstamp = modifiedAt[0].UTC()
	}
	rec := certificate.Record{
		LearnerID:  learner.ID,
		CourseKey:  key,
		Status:     status,
		Mode:       mode,
		CreatedAt:  tstamp,
		ModifiedAt: tstamp,
	}
	if status.IsInteresting() {
		rec.NotifiedStatus = status // already announced
	}
	rec, err := repo.Upsert(context.Background(), rec)
	if err != nil {
		t.Fatalf("CreateCertificate() failed: %v", err)
	}
	return rec
}

// HTTPStatus returns the error of a Credentials service answering with code.
func HTTPStatus(code int) error {
	return &credentials.HTTPError{Method: http.MethodPost, URL: "http://credentials.test", StatusCode: code, Body: http.StatusText(code)}
}

// GatewayCall is one call received by a FakeGateway.
type GatewayCall struct {
	Method   string
	Username string
	Target   string // program uuid or course run key
	Status   credentials.Status
	Mode     course.Mode
}

// FakeGateway is an in-memory Credentials service.
// Errors queued in the *Errs fields are returned, one per call, before calls succeed again.
type FakeGateway struct {
	mu sync.Mutex

	Calls    []GatewayCall
	Configs  []credentials.APIConfig
	Awarded  map[string]map[string]bool // {username: {program uuid}}
	Courses  map[string]credentials.CourseAward
	ListErrs []error

	AwardErrs  map[string][]error // {program uuid: errors}
	RevokeErrs map[string][]error
	CourseErrs []error
	ConfigErrs []error
}

var (
	_ credentials.Gateway        = (*FakeGateway)(nil)
	_ credentials.GatewayFactory = (*FakeGateway)(nil)
)

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Awarded:    make(map[string]map[string]bool),
		Courses:    make(map[string]credentials.CourseAward),
		AwardErrs:  make(map[string][]error),
		RevokeErrs: make(map[string][]error),
	}
}

func (gw *FakeGateway) For(conf credentials.APIConfig) credentials.Gateway {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.Configs = append(gw.Configs, conf)
	return gw
}

func pop(errs []error) (error, []error) {
	if len(errs) == 0 {
		return nil, errs
	}
	return errs[0], errs[1:]
}

func (gw *FakeGateway) AwardProgramCredential(ctx context.Context, learner user.User, programUUID string, visibleDate time.Time) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.Calls = append(gw.Calls, GatewayCall{Method: "award_program", Username: learner.Username, Target: programUUID, Status: credentials.StatusAwarded})

	var err error
	if err, gw.AwardErrs[programUUID] = pop(gw.AwardErrs[programUUID]); err != nil {
		return err
	}
	if gw.Awarded[learner.Username] == nil {
		gw.Awarded[learner.Username] = make(map[string]bool)
	}
	gw.Awarded[learner.Username][programUUID] = true
	return nil
}

func (gw *FakeGateway) RevokeProgramCredential(ctx context.Context, learner user.User, programUUID string) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.Calls = append(gw.Calls, GatewayCall{Method: "revoke_program", Username: learner.Username, Target: programUUID, Status: credentials.StatusRevoked})

	var err error
	if err, gw.RevokeErrs[programUUID] = pop(gw.RevokeErrs[programUUID]); err != nil {
		return err
	}
	delete(gw.Awarded[learner.Username], programUUID)
	return nil
}

func (gw *FakeGateway) AwardCourseCredential(ctx context.Context, learner user.User, award credentials.CourseAward) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.Calls = append(gw.Calls, GatewayCall{Method: "award_course", Username: learner.Username, Target: award.CourseKey, Status: award.Status, Mode: award.Mode})

	var err error
	if err, gw.CourseErrs = pop(gw.CourseErrs); err != nil {
		return err
	}
	gw.Courses[learner.Username+"|"+award.CourseKey] = award
	return nil
}

func (gw *FakeGateway) UpsertCourseCertificateConfiguration(ctx context.Context, courseKey string, mode course.Mode, availableDate *time.Time) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.Calls = append(gw.Calls, GatewayCall{Method: "course_config", Target: courseKey, Mode: mode})

	var err error
	err, gw.ConfigErrs = pop(gw.ConfigErrs)
	return err
}

func (gw *FakeGateway) AwardedProgramUUIDs(ctx context.Context, learner user.User) ([]string, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.Calls = append(gw.Calls, GatewayCall{Method: "list_awarded", Username: learner.Username})

	var err error
	if err, gw.ListErrs = pop(gw.ListErrs); err != nil {
		return nil, err
	}
	uuids := make([]string, 0, len(gw.Awarded[learner.Username]))
	for uuid := range gw.Awarded[learner.Username] {
		uuids = append(uuids, uuid)
	}
	return uuids, nil
}

// CallsTo returns the targets of the calls to method, in call order.
func (gw *FakeGateway) CallsTo(method string) []string {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	var targets []string
	for _, c := range gw.Calls {
		if c.Method == method {
			targets = append(targets, c.Target)
		}
	}
	return targets
}

func (gw *FakeGateway) Reset() {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.Calls = nil
}

// FakeCatalog serves fixed program definitions.
type FakeCatalog struct {
	Defs  []program.Definition
	Runs  map[string][]program.CourseRun
	Err   error
	Calls int
}

var _ program.Catalog = (*FakeCatalog)(nil)

func (c *FakeCatalog) Programs(ctx context.Context) ([]program.Definition, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Defs, nil
}

func (c *FakeCatalog) CourseRunsForCourse(ctx context.Context, courseUUID string) ([]program.CourseRun, error) {
	c.Calls++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Runs[courseUUID], nil
}
