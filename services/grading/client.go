package gradingsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/certificate"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/user"
)

type (
	gradeResponse struct {
		Username    string     `json:"username"`
		CourseID    string     `json:"course_id"`
		Passed      bool       `json:"passed"`
		Percent     float64    `json:"percent"`
		LetterGrade string     `json:"letter_grade"`
		LastUpdated *time.Time `json:"last_updated"`
	}

	// Client reads course grades from the grades REST API.
	Client struct {
		http    *resty.Client
		baseURL string
		tokens  credentials.TokenSource
	}
)

// Scopes requested for the service user's token.
var Scopes = []string{"grades:read"}

var _ certificate.Grader = (*Client)(nil)

func NewClient(conf *core.Config, tokens credentials.TokenSource) *Client {
	http := resty.New().
		SetTimeout(conf.Credentials.RequestTimeout).
		SetHeader("Accept", "application/json")
	return &Client{http: http, baseURL: strings.TrimRight(conf.Grading.URL, "/"), tokens: tokens}
}

// Grade returns the learner's course grade, or nil when none was computed yet.
// insecure is not supported by the grades API and is ignored.
func (c *Client) Grade(ctx context.Context, learner user.User, courseKey string, insecure bool) (*certificate.GradeResult, error) {
	u := c.baseURL + "/api/grades/v1/courses/" + url.PathEscape(courseKey) + "/"
	token, err := c.tokens(ctx)
	if err != nil {
		return nil, err
	}
	var grades []gradeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("username", learner.Username).
		SetResult(&grades).
		Get(u)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", u)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("GET %s: %d %s", u, resp.StatusCode(), resp.String())
	}
	for _, g := range grades {
		if g.Username == learner.Username {
			return &certificate.GradeResult{
				LetterGrade:  g.LetterGrade,
				PercentGrade: g.Percent,
				Passing:      g.Passed,
				LastUpdated:  g.LastUpdated,
			}, nil
		}
	}
	return nil, nil
}
