package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formflow.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
locale: de
log_level: debug
backend:
  base_url: https://forms.example.com/api
  token: secret
  timeout: 5s
server:
  addr: 127.0.0.1:9000
  forms_dir: ./forms
sessions:
  backend: redis
  redis_url: redis://localhost:6379/2
  ttl: 2h
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := Default()
	want.Locale = "de"
	want.LogLevel = "debug"
	want.Backend = Backend{BaseURL: "https://forms.example.com/api", Token: "secret", Timeout: 5 * time.Second}
	want.Server.Addr = "127.0.0.1:9000"
	want.Server.FormsDir = "./forms"
	want.Sessions.Backend = SessionsRedis
	want.Sessions.RedisURL = "redis://localhost:6379/2"
	want.Sessions.TTL = 2 * time.Hour
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		body string
		want string
	}{
		"redis without url":  {body: "sessions:\n  backend: redis\n", want: "Sessions.RedisURL"},
		"unknown backend":    {body: "sessions:\n  backend: etcd\n", want: "Sessions.Backend"},
		"bad log level":      {body: "log_level: loud\n", want: "LogLevel"},
		"malformed base url": {body: "backend:\n  base_url: not a url\n", want: "Backend.BaseURL"},
		"malformed yaml":     {body: "server: [", want: "parse"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}
