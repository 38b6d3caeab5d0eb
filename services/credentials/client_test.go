package credentialssvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/course"
	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/user"
	"github.com/trezcool/masomo-credentials/services/token"
)

var (
	learner = user.User{ID: 42, Username: "awe"}
	svcUser = user.User{ID: 1, Username: "credentials_worker", IsService: true}
)

type received struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]interface{}
}

type fakeService struct {
	mu       sync.Mutex
	requests []received
	status   int
	pages    []string
}

func (s *fakeService) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		rec := received{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if r.Method == http.MethodPost {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rec.body))
		}
		s.requests = append(s.requests, rec)

		w.Header().Set("Content-Type", "application/json")
		if s.status != 0 {
			w.WriteHeader(s.status)
			_, _ = w.Write([]byte(`{"detail":"nope"}`))
			return
		}
		if r.Method == http.MethodGet && len(s.pages) > 0 {
			page := s.pages[0]
			s.pages = s.pages[1:]
			_, _ = w.Write([]byte(page))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}
}

func setup(t *testing.T) (*Client, *fakeService, *tokensvc.Issuer, string) {
	svc := &fakeService{}
	server := httptest.NewServer(svc.handler(t))
	t.Cleanup(server.Close)

	conf := &core.Config{AppName: "credentials-test", Build: "test", SecretKey: strings.Repeat("k", 32)}
	conf.Credentials.RequestTimeout = 5 * time.Second
	conf.Credentials.TokenExpiration = time.Hour
	issuer := tokensvc.NewIssuer(conf)
	factory := NewFactory(conf, issuer, func(ctx context.Context) (user.User, error) { return svcUser, nil })

	client := factory.Client(credentials.APIConfig{Enabled: true, InternalServiceURL: server.URL + "/"})
	return client, svc, issuer, server.URL
}

func TestClient_AwardProgramCredential(t *testing.T) {
	client, svc, issuer, _ := setup(t)
	visible := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("EAT", 3*3600))

	require.NoError(t, client.AwardProgramCredential(context.Background(), learner, "p-uuid", visible))
	require.Len(t, svc.requests, 1)

	req := svc.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/v2/credentials/", req.path)
	require.True(t, strings.HasPrefix(req.auth, "Bearer "))
	claims, err := issuer.Parse(strings.TrimPrefix(req.auth, "Bearer "))
	require.NoError(t, err)
	assert.Equal(t, "credentials_worker", claims.Username)

	want := map[string]interface{}{
		"username":    "awe",
		"lms_user_id": float64(42),
		"status":      "awarded",
		"credential":  map[string]interface{}{"type": "program", "program_uuid": "p-uuid"},
		"attributes":  []interface{}{map[string]interface{}{"name": "visible_date", "value": "2024-03-01T09:00:00Z"}},
	}
	assert.Equal(t, want, req.body)
}

func TestClient_AwardCourseCredential(t *testing.T) {
	client, svc, _, _ := setup(t)
	visible := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	override := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	err := client.AwardCourseCredential(context.Background(), learner, credentials.CourseAward{
		CourseKey:    "course-v1:edX+X+2024",
		Mode:         course.ModeVerified,
		Status:       credentials.StatusRevoked,
		VisibleDate:  visible,
		DateOverride: &override,
	})
	require.NoError(t, err)

	body := svc.requests[0].body
	assert.Equal(t, "revoked", body["status"])
	assert.Equal(t, map[string]interface{}{"type": "course-run", "course_run_key": "course-v1:edX+X+2024", "mode": "verified"}, body["credential"])
	assert.Equal(t, map[string]interface{}{"date": "2024-04-01T00:00:00Z"}, body["date_override"])
}

func TestClient_UpsertCourseCertificateConfiguration(t *testing.T) {
	client, svc, _, _ := setup(t)
	ctx := context.Background()
	cad := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, client.UpsertCourseCertificateConfiguration(ctx, "course-v1:edX+X+2024", course.ModeHonor, &cad))
	require.NoError(t, client.UpsertCourseCertificateConfiguration(ctx, "course-v1:edX+Y+2024", course.ModeVerified, nil))

	assert.Equal(t, "/api/v2/course_certificates/", svc.requests[0].path)
	assert.Equal(t, map[string]interface{}{
		"course_id":                  "course-v1:edX+X+2024",
		"certificate_type":           "honor",
		"certificate_available_date": "2024-06-01T00:00:00Z",
		"is_active":                  true,
	}, svc.requests[0].body)

	v, ok := svc.requests[1].body["certificate_available_date"]
	assert.True(t, ok, "certificate_available_date must be sent")
	assert.Nil(t, v)
}

func TestClient_AwardedProgramUUIDs(t *testing.T) {
	client, svc, _, baseURL := setup(t)
	svc.pages = []string{
		`{"next":"` + baseURL + `/api/v2/credentials/?page=2","results":[` +
			`{"status":"awarded","credential":{"type":"program","program_uuid":"p1"}},` +
			`{"status":"revoked","credential":{"type":"program","program_uuid":"p2"}}]}`,
		`{"next":null,"results":[{"status":"awarded","credential":{"type":"program","program_uuid":"p3"}}]}`,
	}

	uuids, err := client.AwardedProgramUUIDs(context.Background(), learner)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, uuids)

	require.Len(t, svc.requests, 2)
	assert.Contains(t, svc.requests[0].query, "username=awe")
	assert.Contains(t, svc.requests[0].query, "type=program")
	assert.Contains(t, svc.requests[0].query, "status=awarded")
	assert.Equal(t, "page=2", svc.requests[1].query)
}

func TestClient_HTTPErrors(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		wantNotFound    bool
		wantRateLimited bool
	}{
		{"not found", http.StatusNotFound, true, false},
		{"rate limited", http.StatusTooManyRequests, false, true},
		{"server error", http.StatusInternalServerError, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, svc, _, _ := setup(t)
			svc.status = tt.status

			err := client.AwardProgramCredential(context.Background(), learner, "p1", time.Now())
			require.Error(t, err)
			assert.Equal(t, tt.wantNotFound, credentials.IsNotFound(err))
			assert.Equal(t, tt.wantRateLimited, credentials.IsRateLimited(err))

			herr, ok := err.(*credentials.HTTPError)
			require.True(t, ok, "error is %T", err)
			assert.Equal(t, tt.status, herr.StatusCode)
			assert.Contains(t, herr.Body, "nope")
		})
	}
}

func TestClient_ServiceUserError(t *testing.T) {
	client, svc, _, _ := setup(t)
	client.serviceUser = func(ctx context.Context) (user.User, error) { return user.User{}, user.ErrNotFound }

	err := client.AwardProgramCredential(context.Background(), learner, "p1", time.Now())
	assert.Error(t, err)
	assert.Empty(t, svc.requests)
}
