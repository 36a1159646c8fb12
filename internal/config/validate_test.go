package config

import (
	"errors"
	"strings"
	"testing"
)

var kinds = []string{"mssql", "mysql", "postgres", "sqlite"}

func validConfig() Config {
	c := Default()
	c.DB = "/data/cpu.db"
	return c
}

func hasIssue(issues []Issue, sev IssueSeverity, path string) bool {
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		mutate   func(c *Config)
		wantSev  IssueSeverity
		wantPath string
	}{
		{name: "zero_workers", mutate: func(c *Config) { c.Workers = 0 }, wantSev: SeverityError, wantPath: KeyWorkers},
		{name: "negative_workers", mutate: func(c *Config) { c.Workers = -1 }, wantSev: SeverityError, wantPath: KeyWorkers},
		{name: "many_workers_remote", mutate: func(c *Config) { c.Workers = 1000; c.Storage = "postgres" }, wantSev: SeverityWarning, wantPath: KeyWorkers},
		{name: "bad_dispatch", mutate: func(c *Config) { c.Dispatch = "roundrobin" }, wantSev: SeverityError, wantPath: KeyDispatch},
		{name: "unknown_storage", mutate: func(c *Config) { c.Storage = "oracle" }, wantSev: SeverityError, wantPath: KeyStorage},
		{name: "empty_db", mutate: func(c *Config) { c.DB = " " }, wantSev: SeverityError, wantPath: "db"},
		{name: "memory_db", mutate: func(c *Config) { c.DB = ":memory:" }, wantSev: SeverityWarning, wantPath: "db"},
		{name: "empty_table", mutate: func(c *Config) { c.Table = "" }, wantSev: SeverityError, wantPath: KeyTable},
		{name: "empty_time_column", mutate: func(c *Config) { c.TimeColumn = "" }, wantSev: SeverityError, wantPath: KeyTimeColumn},
		{name: "long_delimiter", mutate: func(c *Config) { c.Delimiter = "::" }, wantSev: SeverityError, wantPath: KeyDelimiter},
		{name: "newline_delimiter", mutate: func(c *Config) { c.Delimiter = "\n" }, wantSev: SeverityError, wantPath: KeyDelimiter},
		{name: "pushgateway_without_url", mutate: func(c *Config) { c.MetricsBackend = MetricsPushgateway }, wantSev: SeverityError, wantPath: KeyPushgatewayURL},
		{name: "pushgateway_relative_url", mutate: func(c *Config) { c.MetricsBackend = MetricsPushgateway; c.PushgatewayURL = "pushgateway:9091" }, wantSev: SeverityError, wantPath: KeyPushgatewayURL},
		{name: "datadog_without_addr", mutate: func(c *Config) { c.MetricsBackend = MetricsDatadog }, wantSev: SeverityError, wantPath: KeyDatadogAddr},
		{name: "unknown_metrics", mutate: func(c *Config) { c.MetricsBackend = "graphite" }, wantSev: SeverityError, wantPath: KeyMetricsBackend},
		{name: "metrics_without_job", mutate: func(c *Config) { c.MetricsBackend = MetricsDatadog; c.DatadogAddr = "127.0.0.1:8125"; c.Job = "" }, wantSev: SeverityWarning, wantPath: KeyJob},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			c.mutate(&cfg)
			issues := Validate(cfg, kinds)
			if !hasIssue(issues, c.wantSev, c.wantPath) {
				t.Fatalf("Validate = %+v, want %s at %s", issues, c.wantSev, c.wantPath)
			}
		})
	}
}

func TestValidate_CleanConfig(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Workers = 17
	cfg.MetricsBackend = MetricsPushgateway
	cfg.PushgatewayURL = "http://pushgateway:9091"
	if issues := Validate(cfg, kinds); len(issues) != 0 {
		t.Fatalf("Validate = %+v, want none", issues)
	}

	// No ceiling for local sqlite files.
	cfg.Workers = 100000
	if issues := Validate(cfg, kinds); len(issues) != 0 {
		t.Fatalf("Validate(workers=100000) = %+v, want none", issues)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Workers = 0
	cfg.Dispatch = "bogus"
	cfg.DB = ":memory:"

	warnings, err := Check(cfg, kinds)
	if err == nil {
		t.Fatalf("Check error = nil, want *Error")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Check error %T is not *Error", err)
	}
	if len(cerr.Issues) != 2 {
		t.Fatalf("blocking issues = %+v, want 2", cerr.Issues)
	}
	if len(warnings) != 1 || warnings[0].Path != "db" {
		t.Fatalf("warnings = %+v, want the in-memory db warning", warnings)
	}

	msg := err.Error()
	for _, want := range []string{"invalid configuration", "workers: workers=0", "dispatch: unknown dispatch"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}

	var iss Issue
	if !errors.As(err, &iss) || iss.Path != KeyWorkers {
		t.Errorf("errors.As(Issue) = %+v, want first issue at workers", iss)
	}

	if _, err := Check(validConfig(), kinds); err != nil {
		t.Fatalf("Check(valid) = %v", err)
	}
}
