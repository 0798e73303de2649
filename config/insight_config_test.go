package config

import (
	"testing"
	"time"

	"insight_server/pkg/apperr"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("INSIGHT_PROVIDER", "")
	t.Setenv("INSIGHT_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != ProviderSample {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderSample)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
	if cfg.Analysis.AnalysisPeriod != 90 || !cfg.Analysis.UseBusinessHours {
		t.Errorf("Analysis = %+v, want defaults", cfg.Analysis)
	}
	if cfg.RefreshInterval() != time.Hour {
		t.Errorf("RefreshInterval() = %v, want 1h", cfg.RefreshInterval())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INSIGHT_TIMEZONE", "Europe/Berlin")
	t.Setenv("INSIGHT_ANALYSIS_PERIOD", "-1")
	t.Setenv("INSIGHT_BUSINESS_HOURS", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Errorf("Location() = %v", cfg.Location())
	}
	if !cfg.Analysis.IsAllTime() || cfg.Analysis.UseBusinessHours {
		t.Errorf("Analysis = %+v", cfg.Analysis)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown provider", map[string]string{"INSIGHT_PROVIDER": "imap"}},
		{"bad timezone", map[string]string{"INSIGHT_TIMEZONE": "Mars/Olympus"}},
		{"outlook without token", map[string]string{"INSIGHT_PROVIDER": "outlook", "MICROSOFT_CLIENT_ID": "id"}},
		{"gmail without client", map[string]string{"INSIGHT_PROVIDER": "gmail", "GOOGLE_REFRESH_TOKEN": "tok"}},
		{"bad analysis period", map[string]string{"INSIGHT_ANALYSIS_PERIOD": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INSIGHT_TIMEZONE", "UTC")
			t.Setenv("MICROSOFT_REFRESH_TOKEN", "")
			t.Setenv("GOOGLE_CLIENT_ID", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if apperr.CodeOf(err) != apperr.CodeConfigError {
				t.Errorf("Load() error = %v, want %s", err, apperr.CodeConfigError)
			}
		})
	}
}
