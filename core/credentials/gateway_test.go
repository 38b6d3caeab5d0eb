package credentials

import (
	"errors"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantNotFound    bool
		wantRateLimited bool
	}{
		{name: "404", err: &HTTPError{StatusCode: http.StatusNotFound}, wantNotFound: true},
		{name: "wrapped 404", err: pkgerrors.Wrap(&HTTPError{StatusCode: http.StatusNotFound}, "awarding"), wantNotFound: true},
		{name: "429", err: &HTTPError{StatusCode: http.StatusTooManyRequests}, wantRateLimited: true},
		{name: "500", err: &HTTPError{StatusCode: http.StatusInternalServerError}},
		{name: "transport", err: errors.New("connection refused")},
		{name: "nil", err: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.wantNotFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.wantNotFound)
			}
			if got := IsRateLimited(tt.err); got != tt.wantRateLimited {
				t.Errorf("IsRateLimited() = %v, want %v", got, tt.wantRateLimited)
			}
		})
	}
}

func TestAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		conf        APIConfig
		wantEnabled bool
		wantURL     string
	}{
		{name: "disabled", conf: Disabled(), wantURL: "/api/v2"},
		{name: "enabled only", conf: APIConfig{Enabled: true, InternalServiceURL: "http://credentials:8150/"}, wantURL: "http://credentials:8150/api/v2"},
		{name: "issuance only", conf: APIConfig{LearnerIssuanceEnabled: true}, wantURL: "/api/v2"},
		{name: "both", conf: APIConfig{Enabled: true, LearnerIssuanceEnabled: true, InternalServiceURL: "http://credentials"}, wantEnabled: true, wantURL: "http://credentials/api/v2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conf.IsLearnerIssuanceEnabled(); got != tt.wantEnabled {
				t.Errorf("IsLearnerIssuanceEnabled() = %v, want %v", got, tt.wantEnabled)
			}
			if got := tt.conf.InternalAPIURL(); got != tt.wantURL {
				t.Errorf("InternalAPIURL() = %v, want %v", got, tt.wantURL)
			}
		})
	}
}
