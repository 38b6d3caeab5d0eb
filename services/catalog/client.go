package catalogsvc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/program"
)

const maxPages = 500

type (
	programPage struct {
		Next    *string              `json:"next"`
		Results []program.Definition `json:"results"`
	}

	courseResponse struct {
		UUID       string              `json:"uuid"`
		CourseRuns []program.CourseRun `json:"course_runs"`
	}

	// Client reads the catalog service's REST API.
	Client struct {
		http    *resty.Client
		baseURL string
		tokens  credentials.TokenSource
	}
)

// Scopes requested for the service user's token.
var Scopes = []string{"catalog:read"}

var _ program.Catalog = (*Client)(nil)

func NewClient(conf *core.Config, tokens credentials.TokenSource) *Client {
	http := resty.New().
		SetTimeout(conf.Credentials.RequestTimeout).
		SetHeader("Accept", "application/json")
	return &Client{http: http, baseURL: strings.TrimRight(conf.Catalog.URL, "/"), tokens: tokens}
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token, err := c.tokens(ctx)
	if err != nil {
		return nil, err
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token), nil
}

// Programs returns every active program, following pagination.
func (c *Client) Programs(ctx context.Context) ([]program.Definition, error) {
	next := c.baseURL + "/api/v1/programs/?status=active&page_size=100"
	programs := make([]program.Definition, 0)
	for page := 1; next != ""; page++ {
		if page > maxPages {
			return nil, errors.New("listing programs: too many pages")
		}
		req, err := c.request(ctx)
		if err != nil {
			return nil, err
		}
		var body programPage
		resp, err := req.SetResult(&body).Get(next)
		if err != nil {
			return nil, errors.Wrapf(err, "GET %s", next)
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("GET %s: %d %s", next, resp.StatusCode(), resp.String())
		}
		programs = append(programs, body.Results...)
		next = ""
		if body.Next != nil {
			next = *body.Next
		}
	}
	return programs, nil
}

func (c *Client) CourseRunsForCourse(ctx context.Context, courseUUID string) ([]program.CourseRun, error) {
	u := c.baseURL + "/api/v1/courses/" + url.PathEscape(courseUUID) + "/"
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var body courseResponse
	resp, err := req.SetResult(&body).Get(u)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", u)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("GET %s: %d %s", u, resp.StatusCode(), resp.String())
	}
	return body.CourseRuns, nil
}
