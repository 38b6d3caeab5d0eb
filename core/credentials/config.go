package credentials

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("credentials api not configured")

type (
	// APIConfig is the administrator-controlled configuration of the Credentials integration.
	// Rows are append-only: the latest one is current.
	APIConfig struct {
		ID                     int64         `json:"id"`
		Enabled                bool          `json:"enabled"`
		LearnerIssuanceEnabled bool          `json:"learner_issuance_enabled"`
		InternalServiceURL     string        `json:"internal_service_url" validate:"omitempty,url"`
		PublicServiceURL       string        `json:"public_service_url" validate:"omitempty,url"`
		CacheTTL               time.Duration `json:"cache_ttl" validate:"gte=0"`
		ChangedBy              string        `json:"changed_by"`
		ChangedAt              time.Time     `json:"changed_at"`
	}

	ConfigRepository interface {
		// Current returns the latest config, or ErrNotConfigured.
		Current(ctx context.Context) (APIConfig, error)
		Save(ctx context.Context, conf APIConfig) (APIConfig, error)
	}

	// ConfigProvider hands out the config to inject into each task invocation.
	ConfigProvider interface {
		Current(ctx context.Context) (APIConfig, error)
	}
)

// IsLearnerIssuanceEnabled reports whether credentials may be issued to learners right now.
func (c APIConfig) IsLearnerIssuanceEnabled() bool {
	return c.Enabled && c.LearnerIssuanceEnabled
}

// InternalAPIURL is the base URL of the versioned Credentials API.
func (c APIConfig) InternalAPIURL() string {
	return strings.TrimRight(c.InternalServiceURL, "/") + "/api/v2"
}

// Disabled is the config in effect until an administrator saves one.
func Disabled() APIConfig {
	return APIConfig{}
}
