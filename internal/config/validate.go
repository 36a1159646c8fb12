package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"

	"qtool/internal/parser/csv"
	"qtool/internal/pool"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is logged and the run continues.
	SeverityWarning IssueSeverity = "warning"
)

// manyWorkers is the count above which a warning about connection usage is issued.
const manyWorkers = 256

// Issue describes a single validation finding. Path is the config key.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Error is a configuration that must not run. It carries every blocking issue.
type Error struct {
	Issues []Issue
	merr   *multierror.Error
}

// NewError builds an *Error from issues.
func NewError(issues ...Issue) *Error {
	e := &Error{Issues: issues}
	for _, iss := range issues {
		e.merr = multierror.Append(e.merr, iss)
	}
	if e.merr != nil {
		e.merr.ErrorFormat = joinIssues
	}
	return e
}

func (e *Error) Error() string {
	if e.merr == nil {
		return "invalid configuration"
	}
	return "invalid configuration: " + e.merr.Error()
}

func (e *Error) Unwrap() error { return e.merr.ErrorOrNil() }

func joinIssues(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		if iss, ok := err.(Issue); ok {
			parts[i] = fmt.Sprintf("%s: %s", iss.Path, iss.Message)
			continue
		}
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate performs static checks over cfg. It does no I/O. kinds lists the
// registered storage kinds.
func Validate(cfg Config, kinds []string) []Issue {
	var issues []Issue
	issues = append(issues, validateRuntime(cfg)...)
	issues = append(issues, validateStorage(cfg, kinds)...)
	issues = append(issues, validateInput(cfg)...)
	issues = append(issues, validateMetrics(cfg)...)
	return issues
}

// Check runs Validate and returns an *Error when any issue is an error.
// Warnings are returned separately for the caller to log.
func Check(cfg Config, kinds []string) (warnings []Issue, err error) {
	var blocking []Issue
	for _, iss := range Validate(cfg, kinds) {
		if iss.Severity == SeverityError {
			blocking = append(blocking, iss)
		} else {
			warnings = append(warnings, iss)
		}
	}
	if len(blocking) > 0 {
		return warnings, NewError(blocking...)
	}
	return warnings, nil
}

func validateRuntime(cfg Config) []Issue {
	var issues []Issue

	if cfg.Workers < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     KeyWorkers,
			Message:  fmt.Sprintf("workers=%d; must be at least 1", cfg.Workers),
		})
	} else if cfg.Workers > manyWorkers && cfg.Storage != "sqlite" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     KeyWorkers,
			Message:  fmt.Sprintf("workers=%d; the server must accept that many connections", cfg.Workers),
		})
	}

	switch cfg.Dispatch {
	case pool.DispatchQueue, pool.DispatchHash:
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     KeyDispatch,
			Message:  fmt.Sprintf("unknown dispatch %q; use %q or %q", cfg.Dispatch, pool.DispatchQueue, pool.DispatchHash),
		})
	}
	return issues
}

func validateStorage(cfg Config, kinds []string) []Issue {
	var issues []Issue

	known := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		known[k] = struct{}{}
	}
	if _, ok := known[cfg.Storage]; !ok {
		sorted := append([]string(nil), kinds...)
		sort.Strings(sorted)
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     KeyStorage,
			Message:  fmt.Sprintf("unsupported storage %q; available: %s", cfg.Storage, strings.Join(sorted, ", ")),
		})
	}

	if strings.TrimSpace(cfg.DB) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db",
			Message:  "database path or DSN must not be empty",
		})
	} else if cfg.Storage == "sqlite" && cfg.DB == ":memory:" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "db",
			Message:  "in-memory database is empty; every query will return no data",
		})
	}

	for _, f := range []struct{ key, val string }{
		{KeyTable, cfg.Table},
		{KeyHostColumn, cfg.HostColumn},
		{KeyTimeColumn, cfg.TimeColumn},
		{KeyValueColumn, cfg.ValueColumn},
	} {
		if strings.TrimSpace(f.val) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     f.key,
				Message:  f.key + " must not be empty",
			})
		}
	}
	return issues
}

func validateInput(cfg Config) []Issue {
	if !csv.ValidDelim(cfg.Delim()) {
		return []Issue{{
			Severity: SeverityError,
			Path:     KeyDelimiter,
			Message:  fmt.Sprintf("delimiter %q must be a single character other than CR or LF", cfg.Delimiter),
		}}
	}
	return nil
}

func validateMetrics(cfg Config) []Issue {
	var issues []Issue

	switch cfg.MetricsBackend {
	case MetricsNone, "":
	case MetricsPushgateway:
		u, err := url.Parse(cfg.PushgatewayURL)
		if cfg.PushgatewayURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     KeyPushgatewayURL,
				Message:  fmt.Sprintf("pushgateway backend requires an absolute URL, got %q", cfg.PushgatewayURL),
			})
		}
	case MetricsDatadog:
		if strings.TrimSpace(cfg.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     KeyDatadogAddr,
				Message:  "datadog backend requires an agent address",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     KeyMetricsBackend,
			Message:  fmt.Sprintf("unknown metrics backend %q; use none, pushgateway or datadog", cfg.MetricsBackend),
		})
	}

	if cfg.MetricsBackend != MetricsNone && cfg.MetricsBackend != "" && strings.TrimSpace(cfg.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     KeyJob,
			Message:  "job is empty; metrics will be grouped under the backend default",
		})
	}
	return issues
}
