// Package pool executes a batch of requests on a fixed number of workers.
//
// Every request is executed exactly once and produces exactly one Outcome.
// Store errors are folded into Failed outcomes; they never stop a worker.
package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"qtool/internal/query"
)

// Work distribution policies.
const (
	// DispatchQueue lets idle workers pull the next request from one shared queue.
	DispatchQueue = "queue"
	// DispatchHash pins every host to one worker by hashing the host name.
	DispatchHash = "hash"
)

// hashSeed keeps host-to-worker assignment stable across runs.
const hashSeed = 42

// Querier runs a statement and reports how many rows it produced.
// Implementations must be safe for concurrent use.
type Querier interface {
	Query(ctx context.Context, stmt query.Statement) (int64, error)
}

// StatementBuilder turns a request into a parameterized statement.
type StatementBuilder interface {
	Build(r query.Request) query.Statement
}

// Config controls pool size and distribution.
type Config struct {
	Workers  int
	Dispatch string // DispatchQueue (default) or DispatchHash
}

// Pool is a fixed-size set of workers sharing one Querier.
type Pool struct {
	cfg     Config
	querier Querier
	builder StatementBuilder
}

// New validates cfg and returns a Pool.
func New(cfg Config, q Querier, b StatementBuilder) (*Pool, error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("pool: workers must be >= 1, got %d", cfg.Workers)
	}
	switch cfg.Dispatch {
	case "":
		cfg.Dispatch = DispatchQueue
	case DispatchQueue, DispatchHash:
	default:
		return nil, fmt.Errorf("pool: unknown dispatch %q", cfg.Dispatch)
	}
	if q == nil || b == nil {
		return nil, errors.New("pool: querier and builder are required")
	}
	return &Pool{cfg: cfg, querier: q, builder: b}, nil
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.cfg.Workers }

// Run executes reqs and sends one Outcome per request to out, in completion
// order. It closes out when every worker has exited. The returned error is
// non-nil only when ctx ends before the batch is drained.
//
// Goroutines and queue buffers are bounded by len(reqs), not by the worker
// count: a worker with nothing to do is never started.
func (p *Pool) Run(ctx context.Context, reqs []query.Request, out chan<- Outcome) error {
	defer close(out)

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.Dispatch == DispatchHash {
		p.runHashed(gctx, g, reqs, out)
	} else {
		p.runQueued(gctx, g, reqs, out)
	}

	err := g.Wait()
	log.WithFields(log.Fields{
		"workers":  p.cfg.Workers,
		"dispatch": p.cfg.Dispatch,
		"requests": len(reqs),
	}).Debug("pool: drained")
	return err
}

// runQueued starts min(Workers, len(reqs)) workers pulling from one shared
// queue fed by a single feeder.
func (p *Pool) runQueued(ctx context.Context, g *errgroup.Group, reqs []query.Request, out chan<- Outcome) {
	n := min(p.cfg.Workers, len(reqs))
	if n == 0 {
		return
	}
	jobs := make(chan int, min(2*n, len(reqs)))

	g.Go(func() error {
		defer close(jobs)
		for i := range reqs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < n; w++ {
		w := w
		g.Go(func() error {
			for i := range jobs {
				if err := p.emit(ctx, out, p.execute(ctx, w, reqs[i])); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

// runHashed assigns every request to HashWorker(host, Workers) up front and
// starts one goroutine per worker that received at least one request. Each
// worker runs its requests in batch order.
func (p *Pool) runHashed(ctx context.Context, g *errgroup.Group, reqs []query.Request, out chan<- Outcome) {
	assigned := make(map[int][]int)
	for i := range reqs {
		w := HashWorker(reqs[i].Host, p.cfg.Workers)
		assigned[w] = append(assigned[w], i)
	}

	for w, idx := range assigned {
		w, idx := w, idx
		g.Go(func() error {
			for _, i := range idx {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := p.emit(ctx, out, p.execute(ctx, w, reqs[i])); err != nil {
					return err
				}
			}
			return nil
		})
	}
}

func (p *Pool) emit(ctx context.Context, out chan<- Outcome, o Outcome) error {
	select {
	case out <- o:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) execute(ctx context.Context, worker int, r query.Request) Outcome {
	stmt := p.builder.Build(r)

	start := time.Now()
	rows, err := p.querier.Query(ctx, stmt)
	d := time.Since(start)

	o := Outcome{
		Request:  r,
		Status:   classify(rows, err),
		Rows:     rows,
		Duration: d,
		Worker:   worker,
	}
	if err != nil {
		o.Rows = 0
		o.Err = fmt.Errorf("line %d: %w", r.Line, err)
	}
	return o
}

// HashWorker maps host onto one of n workers.
func HashWorker(host string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxh3.HashStringSeed(host, hashSeed) % uint64(n))
}
