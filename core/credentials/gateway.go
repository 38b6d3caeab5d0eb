package credentials

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core/course"
	"github.com/trezcool/masomo-credentials/core/user"
)

// Status is the status of a credential in the Credentials service.
type Status string

const (
	StatusAwarded Status = "awarded"
	StatusRevoked Status = "revoked"
)

type (
	CourseAward struct {
		CourseKey    string
		Mode         course.Mode
		Status       Status
		VisibleDate  time.Time
		DateOverride *time.Time
	}

	// Gateway posts credential state to the Credentials service. It never retries.
	// Failed calls return an *HTTPError when the service answered.
	Gateway interface {
		AwardProgramCredential(ctx context.Context, learner user.User, programUUID string, visibleDate time.Time) error
		AwardCourseCredential(ctx context.Context, learner user.User, award CourseAward) error
		RevokeProgramCredential(ctx context.Context, learner user.User, programUUID string) error
		UpsertCourseCertificateConfiguration(ctx context.Context, courseKey string, mode course.Mode, availableDate *time.Time) error
		// AwardedProgramUUIDs lists the programs the learner holds an awarded credential for.
		AwardedProgramUUIDs(ctx context.Context, learner user.User) ([]string, error)
	}

	// GatewayFactory builds a Gateway for the given config.
	GatewayFactory interface {
		For(conf APIConfig) Gateway
	}

	// TokenIssuer issues the bearer token proving the identity of the calling service.
	TokenIssuer interface {
		IssueServiceToken(ctx context.Context, subject user.User, scopes []string) (string, error)
	}

	// TokenSource returns the bearer token of the next outbound call.
	TokenSource func(ctx context.Context) (string, error)
)

// HTTPError is a non-2xx answer of the Credentials service.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func statusCode(err error) int {
	if herr, ok := errors.Cause(err).(*HTTPError); ok {
		return herr.StatusCode
	}
	return 0
}

// IsNotFound reports a 404: the credential's configuration is missing on the service.
func IsNotFound(err error) bool {
	return statusCode(err) == http.StatusNotFound
}

// IsRateLimited reports a 429.
func IsRateLimited(err error) bool {
	return statusCode(err) == http.StatusTooManyRequests
}
