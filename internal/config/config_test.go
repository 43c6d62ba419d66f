package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveUsesEnvVar(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TREEPORT_PATH", dir)

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
	if cfg.DBPath != filepath.Join(dir, "treeport.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if !cfg.EnvVarSet {
		t.Error("EnvVarSet = false, want true")
	}
	if cfg.Settings != DefaultSettings() {
		t.Errorf("Settings = %+v, want defaults", cfg.Settings)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TREEPORT_PATH", dir)
	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	exists, err := cfg.Exists()
	if err != nil || exists {
		t.Fatalf("Exists() = %v, %v; want false, nil", exists, err)
	}

	if err := os.WriteFile(cfg.DBPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	exists, err = cfg.Exists()
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v; want true, nil", exists, err)
	}
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    func(Settings) Settings
		wantErr bool
	}{
		{
			name:    "partial file keeps defaults",
			content: "fallback_actor: ghost\nrepair_initial_backoff: 1s\n",
			want: func(s Settings) Settings {
				s.FallbackActor = "ghost"
				s.RepairInitialBackoff = time.Second
				return s
			},
		},
		{
			name:    "all keys",
			content: "fallback_actor: importer\nrepair_attempts: 5\nrepair_initial_backoff: 50ms\nparallelism: 8\nlog_level: debug\n",
			want: func(Settings) Settings {
				return Settings{
					FallbackActor:        "importer",
					RepairAttempts:       5,
					RepairInitialBackoff: 50 * time.Millisecond,
					Parallelism:          8,
					LogLevel:             "debug",
				}
			},
		},
		{name: "unknown fallback", content: "fallback_actor: admin\n", wantErr: true},
		{name: "zero attempts", content: "repair_attempts: 0\n", wantErr: true},
		{name: "not yaml", content: "fallback_actor: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := LoadSettings(path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("LoadSettings() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadSettings() error: %v", err)
			}
			if want := tt.want(DefaultSettings()); got != want {
				t.Errorf("LoadSettings() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestWriteSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s := DefaultSettings()
	s.Parallelism = 4
	if err := WriteSettings(path, s); err != nil {
		t.Fatalf("WriteSettings() error: %v", err)
	}
	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error: %v", err)
	}
	if got != s {
		t.Errorf("got %+v, want %+v", got, s)
	}
}
