package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"assessment-service/internal/grading"
)

func TestLoadReadsSections(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
quiz:
  ttl: 2m
grading:
  floor: 0
  ceiling: 100
log:
  level: debug
students:
  - id: s1
    name: Ana
subjects:
  - id: math
    label: Mathematics
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Grading != (grading.Scale{Floor: 0, Ceiling: 100}) {
		t.Fatalf("unexpected scale %+v", cfg.Grading)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Log.Level)
	}
	if len(cfg.Students) != 1 || cfg.Students[0].Name != "Ana" {
		t.Fatalf("unexpected students %+v", cfg.Students)
	}
	if len(cfg.Subjects) != 1 || cfg.Subjects[0].Label != "Mathematics" {
		t.Fatalf("unexpected subjects %+v", cfg.Subjects)
	}
	if got := TTLDuration(cfg.Quiz.TTL, time.Minute); got != 2*time.Minute {
		t.Fatalf("expected 2m ttl, got %v", got)
	}
}

func TestLoadFallsBackToDefaultScale(t *testing.T) {
	path := writeConfig(t, "grading:\n  floor: 7\n  ceiling: 1\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Grading != grading.DefaultScale {
		t.Fatalf("expected default scale, got %+v", cfg.Grading)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
