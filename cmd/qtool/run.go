package main

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"qtool/internal/config"
	"qtool/internal/datasource"
	"qtool/internal/datasource/file"
	"qtool/internal/parser/csv"
	"qtool/internal/pool"
	"qtool/internal/query"
	"qtool/internal/report"
	"qtool/internal/storage"
)

// Function variables used to introduce test seams.
var (
	newRepositoryFn = storage.New
	openInputFn     = openInput
)

// run executes one validated batch:
//
//	validate config → open store → read batch → pool + aggregator → report
//
// Config, store and batch errors abort before any query runs. Query errors
// are counted in the report and do not fail the run.
func run(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer) (err error) {
	warnings, err := config.Check(cfg, storage.ListKinds())
	for _, w := range warnings {
		log.WithField("path", w.Path).Warn(w.Message)
	}
	if err != nil {
		return err
	}

	dialect, err := storage.DialectFor(cfg.Storage)
	if err != nil {
		return config.NewError(config.Issue{Severity: config.SeverityError, Path: config.KeyStorage, Message: err.Error()})
	}
	builder, err := query.NewBuilder(dialect, cfg.Schema())
	if err != nil {
		return config.NewError(config.Issue{Severity: config.SeverityError, Path: config.KeyTable, Message: err.Error()})
	}

	flush, err := setupMetrics(cfg)
	if err != nil {
		return err
	}
	start := time.Now()
	defer func() { flush(err, time.Since(start)) }()

	log.WithFields(log.Fields{
		"storage":  cfg.Storage,
		"workers":  cfg.Workers,
		"dispatch": cfg.Dispatch,
	}).Debug("opening store")

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:     cfg.Storage,
		DSN:      cfg.DB,
		MaxConns: cfg.Workers,
		ReadOnly: true,
	})
	if err != nil {
		return err
	}
	defer repo.Close()

	reqs, err := readBatch(ctx, cfg, stdin)
	if err != nil {
		return err
	}

	p, err := pool.New(pool.Config{Workers: cfg.Workers, Dispatch: cfg.Dispatch}, repo, builder)
	if err != nil {
		return config.NewError(config.Issue{Severity: config.SeverityError, Path: config.KeyWorkers, Message: err.Error()})
	}

	out := make(chan pool.Outcome, min(cfg.Workers, len(reqs)))
	summary := make(chan report.Summary, 1)
	go func() {
		summary <- report.Collector{Job: cfg.Job}.Collect(out)
	}()

	runStart := time.Now()
	runErr := p.Run(ctx, reqs, out)
	s := <-summary
	s.Elapsed = time.Since(runStart)
	if runErr != nil {
		return fmt.Errorf("run interrupted after %d of %d queries: %w", s.Processed, len(reqs), runErr)
	}

	log.WithFields(log.Fields{
		"processed": s.Processed,
		"matched":   s.Matched,
		"empty":     s.Empty,
		"failed":    s.Failed,
		"elapsed":   s.Elapsed.Truncate(time.Millisecond),
	}).Debug("batch complete")

	return s.Render(stdout)
}

// readBatch opens the batch source and parses it completely.
func readBatch(ctx context.Context, cfg config.Config, stdin io.Reader) ([]query.Request, error) {
	rc, err := openInputFn(ctx, cfg, stdin)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reqs, err := csv.ReadRequests(ctx, datasource.Decode(rc), csv.Options{Comma: cfg.Delim()})
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	return reqs, nil
}

func openInput(ctx context.Context, cfg config.Config, stdin io.Reader) (io.ReadCloser, error) {
	var src datasource.Source = file.Stdin(stdin)
	if !cfg.FromStdin() {
		src = file.NewLocal(cfg.Params)
	}
	return src.Open(ctx)
}
