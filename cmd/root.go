package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/market-sim/market-sim/sim"
	"github.com/market-sim/market-sim/sim/report"
	"github.com/market-sim/market-sim/sim/runner"
	"github.com/market-sim/market-sim/sim/store"
	"github.com/market-sim/market-sim/sim/trace"
)

var (
	seed        int64   // Base seed; repetition k runs with seed+k
	duration    float64 // Simulated seconds per repetition
	defence     string  // Requestor defence mechanism
	repetitions int     // Number of independent repetitions
	workers     int     // Concurrent repetitions (0 = number of CPUs)
	logLevel    string  // Log verbosity level
	traceLevel  string  // Per-repetition trace detail
	dbPath      string  // SQLite file receiving the batch results
	metricsFile string  // Prometheus textfile receiving runner metrics
	confidence  float64 // Confidence level of reported intervals
	batchID     string  // Batch to report on (default: most recent)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "market-sim",
	Short: "Discrete-event simulator for decentralized compute marketplaces",
}

// runOptions carries the flags of `run`. Nil overrides leave the scenario's value.
type runOptions struct {
	Seed        *int64
	Duration    *float64
	Defence     *string
	Repetitions int
	Workers     int
	TraceLevel  trace.TraceLevel
	DBPath      string
	MetricsFile string
	Confidence  float64
}

// runCmd executes the repetitions of a scenario file
var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run the repetitions of a scenario and print the report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		opts := runOptions{
			Repetitions: repetitions,
			Workers:     workers,
			TraceLevel:  trace.TraceLevel(traceLevel),
			DBPath:      dbPath,
			MetricsFile: metricsFile,
			Confidence:  confidence,
		}
		// Only explicitly set flags override the scenario file.
		if cmd.Flags().Changed("seed") {
			opts.Seed = &seed
		}
		if cmd.Flags().Changed("duration") {
			opts.Duration = &duration
		}
		if cmd.Flags().Changed("defence") {
			opts.Defence = &defence
		}

		if err := runScenario(cmd.Context(), args[0], opts, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// reportCmd re-prints the report of a stored batch
var reportCmd = &cobra.Command{
	Use:   "report <results.db>",
	Short: "Print the report of a batch stored by `run --db`",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if err := reportBatch(args[0], batchID, confidence, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runScenario loads the scenario at path, runs it and writes the report to
// out. Results go to the database and metrics file when configured.
func runScenario(ctx context.Context, path string, opts runOptions, out io.Writer) error {
	if err := report.ValidateConfidence(opts.Confidence); err != nil {
		return err
	}
	cfg, err := LoadScenario(path)
	if err != nil {
		return err
	}
	if opts.Seed != nil {
		cfg.Seed = *opts.Seed
	}
	if opts.Duration != nil {
		cfg.Duration = *opts.Duration
	}
	if opts.Defence != nil {
		cfg.Defence = sim.DefenceType(*opts.Defence)
	}

	var metrics *runner.Metrics
	if opts.MetricsFile != "" {
		metrics = runner.NewMetrics()
	}
	logrus.Infof("Starting %s: seed=%d, duration=%.1fs, defence=%q, %d repetitions",
		path, cfg.Seed, cfg.Duration, cfg.Defence, opts.Repetitions)

	res, err := runner.Run(ctx, cfg, runner.Options{
		Repetitions: opts.Repetitions,
		Workers:     opts.Workers,
		TraceLevel:  opts.TraceLevel,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}
	if err := res.Err(); err != nil {
		logrus.Warnf("%d of %d repetitions failed:\n%v", len(res.Failures), opts.Repetitions, err)
	}
	if len(res.Snapshots) == 0 {
		return fmt.Errorf("all repetitions failed: %w", res.Err())
	}

	if err := report.Build(res.Snapshots, opts.Confidence).Print(out); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := printTraces(res.Traces, out); err != nil {
		return fmt.Errorf("writing traces: %w", err)
	}

	if opts.DBPath != "" {
		db, err := store.Open(opts.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		b, err := db.SaveBatch(store.Batch{
			Scenario:    filepath.Base(path),
			Seed:        cfg.Seed,
			Defence:     string(cfg.Defence),
			Repetitions: opts.Repetitions,
			Failures:    len(res.Failures),
		}, res.Snapshots)
		if err != nil {
			return fmt.Errorf("saving batch: %w", err)
		}
		logrus.Infof("Saved batch %s to %s", b.ID, opts.DBPath)
	}
	if metrics != nil {
		if err := metrics.WriteToTextfile(opts.MetricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

// printTraces writes one summary line per traced repetition.
func printTraces(traces map[int]*trace.SimulationTrace, out io.Writer) error {
	keys := make([]int, 0, len(traces))
	for k := range traces {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		s := trace.Summarize(traces[k])
		if _, err := fmt.Fprintf(out, "\nTrace of repetition %d: %d events, %d assignments, %d settled, %d cancelled, %d providers used, mean agreed price %.3f\n",
			k, s.TotalEvents, s.Assignments, s.SettledCount, s.CancelledCount, s.ProvidersUsed, s.MeanAgreedPrice); err != nil {
			return err
		}
	}
	return nil
}

// reportBatch prints the report of a stored batch; an empty id selects the
// most recent one.
func reportBatch(path, id string, confidence float64, out io.Writer) error {
	if err := report.ValidateConfidence(confidence); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening results: %w", err)
	}
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if id == "" {
		batches, err := db.Batches()
		if err != nil {
			return fmt.Errorf("listing batches: %w", err)
		}
		if len(batches) == 0 {
			return fmt.Errorf("no batches in %s", path)
		}
		id = batches[len(batches)-1].ID
	}
	snaps, err := db.Snapshots(id)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return fmt.Errorf("batch %q not found in %s", id, path)
	}
	logrus.Infof("Reporting batch %s", id)
	return report.Build(snaps, confidence).Print(out)
}

// Execute runs the CLI root command
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Base seed (overrides the scenario's seed)")
	runCmd.Flags().Float64Var(&duration, "duration", 0, "Simulated seconds per repetition (overrides the scenario's duration)")
	runCmd.Flags().StringVar(&defence, "defence", "none", "Defence mechanism: none, lgrola, ctasks (overrides the scenario's defence)")
	runCmd.Flags().IntVar(&repetitions, "repetitions", 1, "Number of independent repetitions")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Maximum concurrent repetitions (0 = number of CPUs)")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Per-repetition trace: none, decisions, events")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to store the batch results in")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write runner metrics to this Prometheus textfile")

	for _, c := range []*cobra.Command{runCmd, reportCmd} {
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().Float64Var(&confidence, "confidence", report.DefaultConfidence, "Confidence level of reported intervals")
	}
	reportCmd.Flags().StringVar(&batchID, "batch", "", "Batch id (default: most recent)")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
}
