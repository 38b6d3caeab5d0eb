package echoapi

import (
	"net/http"
	"testing"

	"github.com/trezcool/masomo-credentials/core/award"
	"github.com/trezcool/masomo-credentials/core/events"
	"github.com/trezcool/masomo-credentials/core/user"
)

const courseKey = "course-v1:edX+DemoX+2024"

func TestServer_home(t *testing.T) {
	f := setup(t)
	req, rec := newAuthRequest(http.MethodGet, "/", "")
	f.app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET / code = %v, want %v", rec.Code, http.StatusOK)
	}
}

func TestServer_auth(t *testing.T) {
	f := setup(t)
	service := f.token(t, user.User{ID: 1, Username: "lms_worker", IsService: true})
	learner := f.token(t, user.User{ID: 2, Username: "awe"})
	body := marchallObj(t, events.CourseCertificateConfigChanged{CourseKey: courseKey})

	tests := []httpTest{
		{
			name:     "no token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "missing or malformed jwt"}),
		},
		{
			name:     "garbage token",
			token:    "lol",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name:     "not a service account",
			token:    learner,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "service account", token: service, wantCode: http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/events/course-certificate-config", tt.token, body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestServer_events(t *testing.T) {
	f := setup(t)
	token := f.token(t, user.User{ID: 1, Username: "lms_worker", IsService: true})
	accepted := marchallObj(t, acceptedResponse{Status: "accepted"})

	tests := []httpTest{
		{
			name:     "exam attempt rejected",
			path:     "/v1/events/exam-attempt-rejected",
			body:     []byte(`{"username": "awe", "course_id": "` + courseKey + `", "attempt_id": "42", "reason": "suspicious"}`),
			wantCode: http.StatusAccepted,
			wantData: accepted,
			extra:    events.ExamAttemptRejected{Username: "awe", CourseKey: courseKey, AttemptID: "42", Reason: "suspicious"},
		},
		{
			name:     "exam attempt rejected: missing fields",
			path:     "/v1/events/exam-attempt-rejected",
			body:     []byte(`{"attempt_id": "42"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username":  "username is required",
				"course_id": "course_id is required",
			}),
		},
		{
			name:     "config changed: bad course key",
			path:     "/v1/events/course-certificate-config",
			body:     []byte(`{"course_id": "DemoX"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"course_id": "course_id must be a course run key (course-v1:ORG+COURSE+RUN)",
			}),
		},
		{
			name:     "config changed",
			path:     "/v1/events/course-certificate-config",
			body:     []byte(`{"course_id": "` + courseKey + `"}`),
			wantCode: http.StatusAccepted,
			wantData: accepted,
			extra:    events.CourseCertificateConfigChanged{CourseKey: courseKey},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.events.events = nil
			req, rec := newAuthRequest(http.MethodPost, tt.path, token, tt.body)
			f.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.extra == nil {
				if len(f.events.events) != 0 {
					t.Errorf("published %v, want nothing", f.events.events)
				}
				return
			}
			if len(f.events.events) != 1 || f.events.events[0] != tt.extra {
				t.Errorf("published %v, want %v", f.events.events, tt.extra)
			}
		})
	}
}

func TestServer_generateCertificate(t *testing.T) {
	f := setup(t)
	token := f.token(t, user.User{ID: 1, Username: "lms_worker", IsService: true})

	req, rec := newAuthRequest(http.MethodPost, "/v1/certificates/generate", token,
		[]byte(`{"username": "awe", "course_id": "`+courseKey+`", "forced_grade": "A"}`))
	f.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusAccepted, wantData: marchallObj(t, acceptedResponse{Status: "accepted"})}, rec)

	envs := f.queue.Enqueued()
	if len(envs) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(envs))
	}
	if envs[0].Name != award.TaskGenerateCertificate {
		t.Errorf("enqueued %s, want %s", envs[0].Name, award.TaskGenerateCertificate)
	}
	var args award.GenerateArgs
	if err := envs[0].Decode(&args); err != nil {
		t.Fatal(err)
	}
	want := award.GenerateArgs{Username: "awe", CourseKey: courseKey, ForcedGrade: "A"}
	if args != want {
		t.Errorf("args = %+v, want %+v", args, want)
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/certificates/generate", token,
		[]byte(`{"username": "awe", "course_id": "`+courseKey+`", "forced_grade": "toolong"}`))
	f.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v, want %v", rec.Code, http.StatusBadRequest)
	}
	if n := len(f.queue.Enqueued()); n != 1 {
		t.Errorf("enqueued %d tasks, want 1", n)
	}
}
