// Package config defines the run configuration for qtool, its defaults and how
// it is assembled from flags, environment and an optional config file.
//
// Keys are the long flag names, so the same spelling works everywhere:
//
//	--workers 8
//	QTOOL_WORKERS=8
//	workers: 8        # in the file given by --config
//
// Precedence is flag > environment > file > default.
package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"

	"qtool/internal/query"
)

// EnvPrefix prefixes environment overrides, e.g. QTOOL_WORKERS.
const EnvPrefix = "QTOOL"

// Keys shared by flags, environment and config files.
const (
	KeyConfig         = "config"
	KeyWorkers        = "workers"
	KeyStorage        = "storage"
	KeyDispatch       = "dispatch"
	KeyTable          = "table"
	KeyHostColumn     = "host-column"
	KeyTimeColumn     = "time-column"
	KeyValueColumn    = "value-column"
	KeyDelimiter      = "delimiter"
	KeyMetricsBackend = "metrics-backend"
	KeyPushgatewayURL = "pushgateway-url"
	KeyDatadogAddr    = "datadog-addr"
	KeyJob            = "job"
	KeyVerbose        = "verbose"
)

// Metrics backends.
const (
	MetricsNone        = "none"
	MetricsPushgateway = "pushgateway"
	MetricsDatadog     = "datadog"
)

// Config is one run of the tool.
type Config struct {
	// DB is the SQLite file path, or a DSN for the other storage kinds.
	DB string `mapstructure:"db"`
	// Params is the request batch file; empty or "-" means stdin.
	Params string `mapstructure:"params"`

	Workers  int    `mapstructure:"workers"`
	Storage  string `mapstructure:"storage"`
	Dispatch string `mapstructure:"dispatch"`

	Table       string `mapstructure:"table"`
	HostColumn  string `mapstructure:"host-column"`
	TimeColumn  string `mapstructure:"time-column"`
	ValueColumn string `mapstructure:"value-column"`

	Delimiter string `mapstructure:"delimiter"`

	MetricsBackend string `mapstructure:"metrics-backend"`
	PushgatewayURL string `mapstructure:"pushgateway-url"`
	DatadogAddr    string `mapstructure:"datadog-addr"`
	Job            string `mapstructure:"job"`

	Verbose bool `mapstructure:"verbose"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	s := query.DefaultSchema()
	return Config{
		Workers:        1,
		Storage:        "sqlite",
		Dispatch:       "queue",
		Table:          s.Table,
		HostColumn:     s.HostColumn,
		TimeColumn:     s.TimeColumn,
		ValueColumn:    s.ValueColumn,
		Delimiter:      ",",
		MetricsBackend: MetricsNone,
		Job:            "qtool",
	}
}

// NewViper returns a viper instance wired for QTOOL_* environment overrides
// and seeded with Default values.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers Default values on v. Registering every key is what
// lets AutomaticEnv see keys that have no flag or file entry.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyWorkers, d.Workers)
	v.SetDefault(KeyStorage, d.Storage)
	v.SetDefault(KeyDispatch, d.Dispatch)
	v.SetDefault(KeyTable, d.Table)
	v.SetDefault(KeyHostColumn, d.HostColumn)
	v.SetDefault(KeyTimeColumn, d.TimeColumn)
	v.SetDefault(KeyValueColumn, d.ValueColumn)
	v.SetDefault(KeyDelimiter, d.Delimiter)
	v.SetDefault(KeyMetricsBackend, d.MetricsBackend)
	v.SetDefault(KeyPushgatewayURL, d.PushgatewayURL)
	v.SetDefault(KeyDatadogAddr, d.DatadogAddr)
	v.SetDefault(KeyJob, d.Job)
	v.SetDefault(KeyVerbose, d.Verbose)
}

// Load reads the optional config file named by the "config" key and decodes
// v into a Config. File and decode failures are returned as *Error.
func Load(v *viper.Viper) (Config, error) {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, NewError(Issue{
				Severity: SeverityError,
				Path:     KeyConfig,
				Message:  fmt.Sprintf("read %s: %v", path, err),
			})
		}
	}
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, NewError(Issue{
			Severity: SeverityError,
			Path:     KeyConfig,
			Message:  fmt.Sprintf("decode: %v", err),
		})
	}
	return cfg, nil
}

// Schema returns the table and column names as a query.Schema.
func (c Config) Schema() query.Schema {
	return query.Schema{
		Table:       c.Table,
		HostColumn:  c.HostColumn,
		TimeColumn:  c.TimeColumn,
		ValueColumn: c.ValueColumn,
	}
}

// Delim returns the field delimiter as a rune. `\t` and "tab" mean a tab.
// It returns utf8.RuneError unless Delimiter is exactly one rune.
func (c Config) Delim() rune {
	switch c.Delimiter {
	case `\t`, "tab":
		return '\t'
	}
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if size == 0 || size != len(c.Delimiter) {
		return utf8.RuneError
	}
	return r
}

// FromStdin reports whether the batch is read from standard input.
func (c Config) FromStdin() bool {
	return c.Params == "" || c.Params == "-"
}
