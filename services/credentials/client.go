package credentialssvc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/course"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/user"
)

const (
	credentialTypeProgram   = "program"
	credentialTypeCourseRun = "course-run"
	attrVisibleDate         = "visible_date"
	dateFormat              = time.RFC3339
)

// Scopes requested for the service user's token.
var Scopes = []string{"credentials:write", "credentials:read"}

type (
	credentialSpec struct {
		Type         string      `json:"type"`
		ProgramUUID  string      `json:"program_uuid,omitempty"`
		CourseRunKey string      `json:"course_run_key,omitempty"`
		Mode         course.Mode `json:"mode,omitempty"`
	}

	attribute struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}

	dateOverride struct {
		Date string `json:"date"`
	}

	credentialPayload struct {
		Username     string             `json:"username"`
		LMSUserID    int64              `json:"lms_user_id,omitempty"`
		Status       credentials.Status `json:"status,omitempty"`
		Credential   credentialSpec     `json:"credential"`
		Attributes   []attribute        `json:"attributes"`
		DateOverride *dateOverride      `json:"date_override,omitempty"`
	}

	courseCertificatePayload struct {
		CourseID                 string      `json:"course_id"`
		CertificateType          course.Mode `json:"certificate_type"`
		CertificateAvailableDate *string     `json:"certificate_available_date"`
		IsActive                 bool        `json:"is_active"`
	}

	credentialPage struct {
		Next    *string `json:"next"`
		Results []struct {
			Status     credentials.Status `json:"status"`
			Credential struct {
				Type        string `json:"type"`
				ProgramUUID string `json:"program_uuid"`
			} `json:"credential"`
		} `json:"results"`
	}

	// ServiceUserFunc returns the user the service acts as.
	ServiceUserFunc func(ctx context.Context) (user.User, error)

	// Client calls the Credentials REST API. It does not retry: the task queue does.
	Client struct {
		http        *resty.Client
		baseURL     string
		tokens      credentials.TokenIssuer
		serviceUser ServiceUserFunc
	}

	// Factory builds a Client for each API config.
	Factory struct {
		http        *resty.Client
		tokens      credentials.TokenIssuer
		serviceUser ServiceUserFunc
	}
)

var (
	_ credentials.Gateway        = (*Client)(nil)
	_ credentials.GatewayFactory = (*Factory)(nil)
)

func NewFactory(conf *core.Config, tokens credentials.TokenIssuer, serviceUser ServiceUserFunc) *Factory {
	client := resty.New().
		SetTimeout(conf.Credentials.RequestTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", conf.AppName+"/"+conf.Build)
	return &Factory{http: client, tokens: tokens, serviceUser: serviceUser}
}

// ServiceUserByUsername resolves the service user from the user repository on each call.
func ServiceUserByUsername(repo user.Repository, username string) ServiceUserFunc {
	return func(ctx context.Context) (user.User, error) {
		usr, err := repo.GetByUsername(ctx, username)
		return usr, errors.Wrapf(err, "getting service user %q", username)
	}
}

// ServiceTokens issues a token with scopes for the service user, on each call.
func ServiceTokens(tokens credentials.TokenIssuer, serviceUser ServiceUserFunc, scopes []string) credentials.TokenSource {
	return func(ctx context.Context) (string, error) {
		svcUser, err := serviceUser(ctx)
		if err != nil {
			return "", err
		}
		token, err := tokens.IssueServiceToken(ctx, svcUser, scopes)
		return token, errors.Wrap(err, "issuing service token")
	}
}

func (f *Factory) For(conf credentials.APIConfig) credentials.Gateway {
	return f.Client(conf)
}

func (f *Factory) Client(conf credentials.APIConfig) *Client {
	return &Client{
		http:        f.http,
		baseURL:     conf.InternalAPIURL(),
		tokens:      f.tokens,
		serviceUser: f.serviceUser,
	}
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token, err := ServiceTokens(c.tokens, c.serviceUser, Scopes)(ctx)
	if err != nil {
		return nil, err
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token), nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	u := c.baseURL + path
	resp, err := req.SetBody(body).Post(u)
	if err != nil {
		return errors.Wrapf(err, "POST %s", u)
	}
	return checkResponse(resp)
}

func checkResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return &credentials.HTTPError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode(),
		Body:       truncate(resp.String(), 512),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (c *Client) AwardProgramCredential(ctx context.Context, learner user.User, programUUID string, visibleDate time.Time) error {
	return c.post(ctx, "/credentials/", credentialPayload{
		Username:   learner.Username,
		LMSUserID:  learner.ID,
		Status:     credentials.StatusAwarded,
		Credential: credentialSpec{Type: credentialTypeProgram, ProgramUUID: programUUID},
		Attributes: []attribute{{Name: attrVisibleDate, Value: visibleDate.UTC().Format(dateFormat)}},
	})
}

func (c *Client) RevokeProgramCredential(ctx context.Context, learner user.User, programUUID string) error {
	return c.post(ctx, "/credentials/", credentialPayload{
		Username:   learner.Username,
		LMSUserID:  learner.ID,
		Status:     credentials.StatusRevoked,
		Credential: credentialSpec{Type: credentialTypeProgram, ProgramUUID: programUUID},
		Attributes: []attribute{},
	})
}

func (c *Client) AwardCourseCredential(ctx context.Context, learner user.User, award credentials.CourseAward) error {
	payload := credentialPayload{
		Username:   learner.Username,
		LMSUserID:  learner.ID,
		Status:     award.Status,
		Credential: credentialSpec{Type: credentialTypeCourseRun, CourseRunKey: award.CourseKey, Mode: award.Mode},
		Attributes: []attribute{{Name: attrVisibleDate, Value: award.VisibleDate.UTC().Format(dateFormat)}},
	}
	if award.DateOverride != nil {
		payload.DateOverride = &dateOverride{Date: award.DateOverride.UTC().Format(dateFormat)}
	}
	return c.post(ctx, "/credentials/", payload)
}

func (c *Client) UpsertCourseCertificateConfiguration(ctx context.Context, courseKey string, mode course.Mode, availableDate *time.Time) error {
	payload := courseCertificatePayload{CourseID: courseKey, CertificateType: mode, IsActive: true}
	if availableDate != nil {
		d := availableDate.UTC().Format(dateFormat)
		payload.CertificateAvailableDate = &d
	}
	return c.post(ctx, "/course_certificates/", payload)
}

// AwardedProgramUUIDs follows the pagination of the credentials listing.
func (c *Client) AwardedProgramUUIDs(ctx context.Context, learner user.User) ([]string, error) {
	q := url.Values{}
	q.Set("username", learner.Username)
	q.Set("status", string(credentials.StatusAwarded))
	q.Set("type", credentialTypeProgram)
	next := c.baseURL + "/credentials/?" + q.Encode()

	uuids := make([]string, 0)
	for page := 1; next != ""; page++ {
		if page > 100 {
			return nil, fmt.Errorf("listing credentials of %s: too many pages", learner.Username)
		}
		req, err := c.request(ctx)
		if err != nil {
			return nil, err
		}
		var body credentialPage
		resp, err := req.SetResult(&body).Get(next)
		if err != nil {
			return nil, errors.Wrapf(err, "GET %s", next)
		}
		if err := checkResponse(resp); err != nil {
			return nil, err
		}
		for _, r := range body.Results {
			if r.Status == credentials.StatusAwarded && r.Credential.ProgramUUID != "" {
				uuids = append(uuids, r.Credential.ProgramUUID)
			}
		}
		next = ""
		if body.Next != nil {
			next = *body.Next
		}
	}
	return uuids, nil
}

// Ping checks the service answers; used by the admin CLI.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	u := c.baseURL + "/credentials/?page_size=1"
	resp, err := req.Get(u)
	if err != nil {
		return errors.Wrapf(err, "GET %s", u)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	return checkResponse(resp)
}
