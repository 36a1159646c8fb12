// Command qtool replays a batch of host/time-range lookups against a metrics
// store with a fixed number of concurrent workers and reports how many of
// them returned data.
//
//	qtool [flags] DB [PARAMS_FILE]
//
// The batch is read from PARAMS_FILE, or from stdin when it is absent or "-".
// The report goes to stdout; logs go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"qtool/internal/config"
	"qtool/internal/parser/csv"
	"qtool/internal/storage"

	// register all backends with the storage factory.
	_ "qtool/internal/storage/all"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitConfig    = 2
	exitStoreOpen = 3
	exitInput     = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "qtool: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var (
		cfgErr    *config.Error
		openErr   *storage.OpenError
		structErr *csv.StructureError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &openErr):
		return exitStoreOpen
	case errors.As(err, &structErr):
		return exitInput
	default:
		return exitFailure
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qtool [flags] DB [PARAMS_FILE]",
		Short: "Replay host/time-range lookups against a metrics store",
		Long: `qtool reads a batch of "hostname,start_time,end_time" lines (after one
header line), runs one parameterized per-minute MAX/MIN aggregate per line on
--workers concurrent workers and prints a report. Line 3 of the report is
"The number of queries which returned some data: N".

DB is a SQLite file (opened read-only) or, with --storage, a DSN.`,
		Args:          argsRange(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.NewViper()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			cfg.DB = args[0]
			if len(args) > 1 {
				cfg.Params = args[1]
			}
			configureLogging(stderr, cfg.Verbose)
			return run(cmd.Context(), cfg, stdin, stdout)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return config.NewError(config.Issue{Severity: config.SeverityError, Path: "flags", Message: err.Error()})
	})

	addFlags(cmd.Flags())
	return cmd
}

func addFlags(fs *pflag.FlagSet) {
	d := config.Default()
	fs.IntP(config.KeyWorkers, "w", d.Workers, "number of concurrent workers (>= 1)")
	fs.String(config.KeyStorage, d.Storage, "storage kind: sqlite, postgres, mysql or mssql")
	fs.String(config.KeyDispatch, d.Dispatch, `work distribution: "queue" (shared queue) or "hash" (host pinned to a worker)`)
	fs.String(config.KeyTable, d.Table, "metrics table")
	fs.String(config.KeyHostColumn, d.HostColumn, "host column")
	fs.String(config.KeyTimeColumn, d.TimeColumn, "timestamp column")
	fs.String(config.KeyValueColumn, d.ValueColumn, "value column aggregated with MAX and MIN")
	fs.String(config.KeyDelimiter, d.Delimiter, `field delimiter of the batch ("\t" for tab)`)
	fs.String(config.KeyMetricsBackend, d.MetricsBackend, "metrics backend: none, pushgateway or datadog")
	fs.String(config.KeyPushgatewayURL, d.PushgatewayURL, "Pushgateway base URL")
	fs.String(config.KeyDatadogAddr, d.DatadogAddr, "DogStatsD address, e.g. 127.0.0.1:8125")
	fs.String(config.KeyJob, d.Job, "job name used to group metrics")
	fs.String(config.KeyConfig, "", "config file (yaml, json or toml)")
	fs.BoolP(config.KeyVerbose, "v", d.Verbose, "enable debug logs")
}

// argsRange is cobra.RangeArgs reporting a *config.Error.
func argsRange(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(lo, hi)(cmd, args); err != nil {
			return config.NewError(config.Issue{
				Severity: config.SeverityError,
				Path:     "args",
				Message:  fmt.Sprintf("%v; usage: %s", err, cmd.UseLine()),
			})
		}
		return nil
	}
}

func configureLogging(w io.Writer, verbose bool) {
	log.SetOutput(w)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
