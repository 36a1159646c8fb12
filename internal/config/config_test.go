package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/spf13/pflag"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	d := Default()
	if d.Workers != 1 {
		t.Errorf("Workers = %d, want 1", d.Workers)
	}
	if d.Storage != "sqlite" || d.Dispatch != "queue" || d.MetricsBackend != MetricsNone {
		t.Errorf("Default = %+v", d)
	}
	s := d.Schema()
	if s.Table != "CPU_USAGE" || s.HostColumn != "HOST" || s.TimeColumn != "TS" || s.ValueColumn != "USAGE" {
		t.Errorf("Schema = %+v", s)
	}
	if !d.FromStdin() {
		t.Errorf("FromStdin = false with no params file")
	}
}

func TestDelim(t *testing.T) {
	t.Parallel()

	cases := map[string]rune{
		",":   ',',
		";":   ';',
		`\t`:  '\t',
		"tab": '\t',
		"§":   '§',
		"":    utf8.RuneError,
		",,":  utf8.RuneError,
	}
	for in, want := range cases {
		if got := (Config{Delimiter: in}).Delim(); got != want {
			t.Errorf("Delim(%q) = %q, want %q", in, got, want)
		}
	}
}

// writeConfig writes a yaml config file and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "qtool.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

// Not parallel: uses t.Setenv.
func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "workers: 3\ndispatch: hash\ntable: cpu\njob: from-file\n")
	t.Setenv("QTOOL_DISPATCH", "queue")
	t.Setenv("QTOOL_HOST_COLUMN", "hostname")

	fs := pflag.NewFlagSet("qtool", pflag.ContinueOnError)
	fs.Int(KeyWorkers, 1, "")
	fs.String(KeyConfig, "", "")
	if err := fs.Parse([]string{"--workers", "9", "--config", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	v := NewViper()
	if err := v.BindPFlags(fs); err != nil {
		t.Fatalf("BindPFlags: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Workers != 9 {
		t.Errorf("Workers = %d, want 9 (flag beats file)", cfg.Workers)
	}
	if cfg.Dispatch != "queue" {
		t.Errorf("Dispatch = %q, want queue (env beats file)", cfg.Dispatch)
	}
	if cfg.HostColumn != "hostname" {
		t.Errorf("HostColumn = %q, want hostname (env with dash key)", cfg.HostColumn)
	}
	if cfg.Table != "cpu" || cfg.Job != "from-file" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.ValueColumn != "USAGE" {
		t.Errorf("ValueColumn = %q, want default USAGE", cfg.ValueColumn)
	}
}

// Not parallel: uses t.Setenv.
func TestLoad_EnvWorkersNegative(t *testing.T) {
	t.Setenv("QTOOL_WORKERS", "-4")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != -4 {
		t.Fatalf("Workers = %d, want -4 (rejected later by Check)", cfg.Workers)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Parallel()

	v := NewViper()
	v.Set(KeyConfig, filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load(v)

	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Load err = %v, want *config.Error", err)
	}
	if len(cerr.Issues) != 1 || cerr.Issues[0].Path != KeyConfig {
		t.Fatalf("issues = %+v", cerr.Issues)
	}
}
