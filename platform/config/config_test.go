package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
}

func TestLoadDropsUnparsableInactivityWindows(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INACTIVITY_WINDOW_WARM", "7days")
	t.Setenv("INACTIVITY_WINDOW_HOT", "-5h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	windows := cfg.GetInactivityWindows()
	if _, ok := windows["warm"]; ok {
		t.Error("unparsable warm window must be dropped, not mapped to 0")
	}
	if _, ok := windows["hot"]; ok {
		t.Error("negative hot window must be dropped")
	}
	if d := windows["nurturing"]; d != 720*time.Hour {
		t.Errorf("nurturing window = %s, want 720h", d)
	}
}

func TestLoadRejectsCredentialedWildcardCORS(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for wildcard origins with credentials")
	}
}
