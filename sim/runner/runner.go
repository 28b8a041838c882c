// Package runner executes the repetitions of one scenario in parallel.
//
// Every repetition k runs on its own Simulator seeded with
// sim.NewSimulationKey(cfg.Seed, k), so results do not depend on the number
// of workers or on scheduling order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/market-sim/market-sim/sim"
	_ "github.com/market-sim/market-sim/sim/defence" // registers NewDefenceFunc
	"github.com/market-sim/market-sim/sim/trace"
)

// Options control a batch of repetitions.
type Options struct {
	Repetitions int
	// Workers bounds the number of concurrent repetitions; 0 means runtime.NumCPU().
	Workers    int
	TraceLevel trace.TraceLevel
	// Metrics, if non-nil, is updated as repetitions finish.
	Metrics *Metrics
}

// Results holds the outcome of every repetition, keyed by repetition index.
// A repetition appears in exactly one of Snapshots and Failures, unless the
// batch was cancelled before it started.
type Results struct {
	Snapshots map[int]*sim.Snapshot
	Traces    map[int]*trace.SimulationTrace // only when tracing is enabled
	Failures  map[int]error
}

// Err joins the failures in repetition order, or returns nil.
func (r *Results) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	keys := make([]int, 0, len(r.Failures))
	for k := range r.Failures {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	errs := make([]error, len(keys))
	for i, k := range keys {
		errs[i] = r.Failures[k]
	}
	return errors.Join(errs...)
}

// Run executes opts.Repetitions repetitions of cfg. The configuration is
// validated once up front; a failing repetition (sampled configuration error
// or invariant violation) is recorded in Results.Failures and does not stop
// the others. Cancelling ctx stops scheduling new repetitions; repetitions
// already running finish. The returned error is ctx.Err() in that case.
func Run(ctx context.Context, cfg *sim.SimulationConfig, opts Options) (*Results, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Repetitions <= 0 {
		return nil, fmt.Errorf("repetitions must be positive, got %d", opts.Repetitions)
	}
	if opts.TraceLevel == "" {
		opts.TraceLevel = trace.TraceLevelNone
	}
	if !trace.IsValidTraceLevel(string(opts.TraceLevel)) {
		return nil, fmt.Errorf("unknown trace level %q; valid: none, decisions, events", opts.TraceLevel)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	res := &Results{
		Snapshots: make(map[int]*sim.Snapshot),
		Traces:    make(map[int]*trace.SimulationTrace),
		Failures:  make(map[int]error),
	}
	var mu sync.Mutex

	logrus.Infof("Running %d repetitions of seed=%d with %d workers", opts.Repetitions, cfg.Seed, workers)
	var g errgroup.Group
	g.SetLimit(workers)
	for k := 0; k < opts.Repetitions; k++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			snap, tr, err := runRepetition(cfg, sim.NewSimulationKey(cfg.Seed, k), opts.TraceLevel)
			elapsed := time.Since(start).Seconds()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logrus.Warnf("Repetition %d failed: %v", k, err)
				res.Failures[k] = fmt.Errorf("repetition %d: %w", k, err)
				if opts.Metrics != nil {
					opts.Metrics.observeFailure()
				}
				return nil
			}
			res.Snapshots[k] = snap
			if tr != nil {
				res.Traces[k] = tr
			}
			if opts.Metrics != nil {
				opts.Metrics.observe(snap, elapsed)
			}
			logrus.Infof("Repetition %d done in %.3fs: %d events", k, elapsed, snap.EventsProcessed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, ctx.Err()
}

// runRepetition builds and runs one Simulator, converting an invariant
// panic into an error.
func runRepetition(cfg *sim.SimulationConfig, key sim.SimulationKey, level trace.TraceLevel) (snap *sim.Snapshot, tr *trace.SimulationTrace, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap, tr = nil, nil
			err = fmt.Errorf("invariant violation: %v", r)
		}
	}()
	s, err := sim.NewSimulator(cfg, key, level)
	if err != nil {
		return nil, nil, err
	}
	s.Run()
	return s.Snapshot(), s.Trace(), nil
}
