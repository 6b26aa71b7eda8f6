package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("default server port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Vision.Provider != "gemini" {
		t.Errorf("default vision provider = %q, want gemini", cfg.Vision.Provider)
	}
	if cfg.Vision.ExtractTimeout != 60*time.Second {
		t.Errorf("default extract timeout = %v, want 60s", cfg.Vision.ExtractTimeout)
	}
	if cfg.Vision.ReconcileTimeout <= cfg.Vision.ExtractTimeout {
		t.Errorf("reconcile timeout %v should exceed extract timeout %v",
			cfg.Vision.ReconcileTimeout, cfg.Vision.ExtractTimeout)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("VISION_PROVIDER", "watson")

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject an unknown vision provider")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	t.Setenv("VISION_PROVIDER", "gigachat")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("server port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.JWT.Expiration != 2*time.Hour {
		t.Errorf("jwt expiration = %v, want 2h", cfg.JWT.Expiration)
	}
	if cfg.Vision.Provider != "gigachat" {
		t.Errorf("vision provider = %q, want gigachat", cfg.Vision.Provider)
	}
}
