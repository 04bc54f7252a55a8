// Package pipeline runs the config → data → signal → report sequence and
// converts any failure into an error report.
package pipeline

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"

	"crossover-go/internal/config"
	"crossover-go/internal/dataset"
	"crossover-go/internal/metrics"
	"crossover-go/internal/report"
	"crossover-go/internal/signal"
	"crossover-go/internal/strategy"
)

// Exit codes returned by Run.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Options locates the resources of a single run.
type Options struct {
	InputPath  string
	ConfigPath string
	OutputPath string
	// Stdout receives a copy of the report; defaults to os.Stdout.
	Stdout io.Writer
	// Start is when the job began; defaults to the time Run is called.
	Start time.Time
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Result is what a successful run computed.
type Result struct {
	Config     *config.RunConfig
	Signals    []signal.Row
	SignalRate float64
	// Rand is seeded from the config for any randomized step layered on top.
	Rand *rand.Rand
}

// Rows is the number of input rows processed.
func (r *Result) Rows() int { return len(r.Signals) }

// Run executes the job and returns the process exit code. Exactly one report
// is written, success or error.
func Run(opts Options, log zerolog.Logger) int {
	opts = opts.withDefaults()
	writer := report.NewWriter(opts.OutputPath, opts.Stdout)
	log.Info().Msg("job started")

	version := report.UnknownVersion
	res, err := Execute(opts, log, &version)
	latency := opts.latencyMs()
	if err != nil {
		return fail(writer, log, version, err, latency)
	}

	rec := report.NewSuccess(res.Config.Version, res.Rows(), res.SignalRate, latency, res.Config.Seed)
	if err := writer.WriteSuccess(rec); err != nil {
		return fail(writer, log, version, err, latency)
	}
	metrics.ObserveSuccess(res.Rows(), res.SignalRate, latency)
	log.Info().Float64("signal_rate", res.SignalRate).Int("rows_processed", res.Rows()).Msg("metrics")
	log.Info().Int64("latency_ms", latency).Msg("job completed successfully")
	return ExitOK
}

// Fail writes an error report for a failure that happened before Run could
// start, such as an unusable log file.
func Fail(opts Options, log zerolog.Logger, err error) int {
	opts = opts.withDefaults()
	return fail(report.NewWriter(opts.OutputPath, opts.Stdout), log, report.UnknownVersion, err, opts.latencyMs())
}

// Execute runs the stages without writing a report. version, when non-nil, is
// updated as soon as the config loads so later failures can report it.
func Execute(opts Options, log zerolog.Logger, version *string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if version != nil {
		*version = cfg.Version
	}
	log.Info().Int64("seed", cfg.Seed).Int("window", cfg.Window).Str("version", cfg.Version).Msg("config loaded")

	series, err := dataset.Load(opts.InputPath)
	if err != nil {
		return nil, err
	}
	log.Info().Int("rows", series.Len()).Int("valid_rows", series.ValidCount()).Msg("data loaded")

	strat := strategy.NewCrossover(cfg.Window)
	rows := strat.Compute(series.Rows)
	log.Info().Int("window", strat.Window()).Msg("rolling mean calculated")
	log.Info().Str("strategy", strat.Name()).Msg("signals generated")

	return &Result{
		Config:     cfg,
		Signals:    rows,
		SignalRate: strategy.SignalRate(rows),
		Rand:       cfg.Rand(),
	}, nil
}

func fail(writer *report.Writer, log zerolog.Logger, version string, cause error, latency int64) int {
	log.Error().Err(cause).Str("version", version).Msg(cause.Error())
	if err := writer.WriteError(report.NewFailure(version, cause.Error())); err != nil {
		log.Error().Err(err).Str("path", writer.Path()).Msg("write error report")
	}
	metrics.ObserveFailure(latency)
	return ExitFailure
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Start.IsZero() {
		o.Start = o.Clock()
	}
	return o
}

func (o Options) latencyMs() int64 {
	return o.Clock().Sub(o.Start).Milliseconds()
}
