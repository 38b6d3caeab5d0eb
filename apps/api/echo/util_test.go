package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/events"
	"github.com/trezcool/masomo-credentials/core/user"
	"github.com/trezcool/masomo-credentials/services/queue"
	"github.com/trezcool/masomo-credentials/services/token"
	"github.com/trezcool/masomo-credentials/tests"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) HandleEvent(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	app    *Server
	tokens *tokensvc.Issuer
	queue  *queuesvc.MemoryQueue
	events *recorder
}

func setup(t *testing.T) *fixture {
	conf := &core.Config{
		AppName:   "Masomo Credentials",
		SecretKey: "test-secret-key-test-secret-key-0123",
		TestMode:  true,
		Credentials: core.CredentialsConfig{
			TokenExpiration: time.Minute,
		},
	}
	validate, translator := core.NewValidator()
	tokens := tokensvc.NewIssuer(conf)
	queue := queuesvc.NewMemoryQueue(0)
	rec := new(recorder)
	bus := events.NewBus()
	bus.Subscribe(events.TypeExamAttemptRejected, rec)
	bus.Subscribe(events.TypeCourseCertificateConfigChanged, rec)

	app := NewServer(&Options{
		TestMode:       true,
		DisableReqLogs: true,
		Logger:         testutil.NewLogger(),
		Tokens:         tokens,
		Publisher:      bus,
		Queue:          queue,
		Validate:       validate,
		Translator:     translator,
	})
	return &fixture{app: app, tokens: tokens, queue: queue, events: rec}
}

func (f *fixture) token(t *testing.T, usr user.User) string {
	token, err := f.tokens.Sign(f.tokens.ClaimsFor(usr, nil))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
