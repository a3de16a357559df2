package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte("gateway:\n  base_url: http://localhost:8000\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Language != "en" {
		t.Errorf("language = %q, want en", cfg.Language)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("storage.driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "rxcare.db" {
		t.Errorf("storage.path = %q, want rxcare.db", cfg.Storage.Path)
	}
	if cfg.Scheduler.Interval != 30*time.Second {
		t.Errorf("scheduler interval = %v, want 30s", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.Permission != "undetermined" {
		t.Errorf("scheduler.permission = %q, want undetermined", cfg.Scheduler.Permission)
	}
	if cfg.Gateway.Timeout != 120*time.Second {
		t.Errorf("gateway timeout = %v, want 120s", cfg.Gateway.Timeout)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("api.port = %d, want 8080", cfg.API.Port)
	}
}

func TestParse_Full(t *testing.T) {
	data := []byte(`
language: hi
storage:
  driver: mysql
  host: db.internal
  port: 3307
  database: care
  user: care
  password: secret
gateway:
  base_url: http://analysis:8000
  timeout_seconds: 30
calendar:
  base_url: https://calendar.example.com
  token_path: /var/lib/rxcare/token.json
scheduler:
  interval_seconds: 15
  permission: granted
notify:
  command: "notify-send 'rxcare' '{{.Subject}}'"
  slack_channel: C12345
api:
  port: 9090
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Language != "hi" {
		t.Errorf("language = %q, want hi", cfg.Language)
	}
	if cfg.Storage.Driver != "mysql" || cfg.Storage.Port != 3307 {
		t.Errorf("storage = %+v, want mysql on 3307", cfg.Storage)
	}
	if cfg.Scheduler.Interval != 15*time.Second {
		t.Errorf("scheduler interval = %v, want 15s", cfg.Scheduler.Interval)
	}
	if cfg.Notify.SlackChannel != "C12345" {
		t.Errorf("slack channel = %q, want C12345", cfg.Notify.SlackChannel)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api.port = %d, want 9090", cfg.API.Port)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing gateway url",
			yaml:    "language: en\n",
			wantErr: "gateway.base_url is required",
		},
		{
			name:    "bad driver",
			yaml:    "gateway:\n  base_url: http://x\nstorage:\n  driver: postgres\n",
			wantErr: "storage.driver must be sqlite or mysql",
		},
		{
			name:    "interval too long",
			yaml:    "gateway:\n  base_url: http://x\nscheduler:\n  interval_seconds: 90\n",
			wantErr: "interval_seconds must be between 1 and 60",
		},
		{
			name:    "bad permission",
			yaml:    "gateway:\n  base_url: http://x\nscheduler:\n  permission: maybe\n",
			wantErr: "scheduler.permission must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("gateway: [unterminated"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/rxcare.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rxcare.yaml")
	if err := os.WriteFile(path, []byte("gateway:\n  base_url: http://localhost:8000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gateway.BaseURL != "http://localhost:8000" {
		t.Errorf("base_url = %q", cfg.Gateway.BaseURL)
	}
}
