// Binary crossover computes a moving-average crossover signal rate from a CSV
// of closing prices and writes a JSON metrics report.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"crossover-go/internal/metrics"
	"crossover-go/internal/pipeline"
	"crossover-go/internal/util"
)

var (
	inputPath   string
	configPath  string
	outputPath  string
	logPath     string
	logLevel    string
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "crossover",
	Short: "Moving-average crossover signal job",
	Long: `crossover reads a run config (seed, window, version) and a CSV with a
'close' column, computes the trailing simple moving average and a long signal
for every row closing above it, and writes the signal rate as a JSON report.

Example usage:
  crossover --input data.csv --config config.yaml --output metrics.json --log-file run.log`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runJob,
}

type exitCode int

func (c exitCode) Error() string { return fmt.Sprintf("exit status %d", int(c)) }

func init() {
	_ = godotenv.Load() // best-effort

	rootCmd.Flags().StringVar(&inputPath, "input", "", "Path to input CSV")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config YAML")
	rootCmd.Flags().StringVar(&outputPath, "output", "", "Path to metrics JSON")
	rootCmd.Flags().StringVar(&logPath, "log-file", "", "Path to log file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", getEnv("CROSSOVER_LOG_LEVEL", "info"), "Log level")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", getEnv("CROSSOVER_METRICS_FILE", ""), "Optional prometheus textfile output")
	for _, name := range []string{"input", "config", "output", "log-file"} {
		_ = rootCmd.MarkFlagRequired(name)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := err.(exitCode); ok {
			os.Exit(int(code))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	opts := pipeline.Options{
		InputPath:  inputPath,
		ConfigPath: configPath,
		OutputPath: outputPath,
		Stdout:     cmd.OutOrStdout(),
		Start:      time.Now(),
	}

	var code int
	log, logFile, err := util.NewFileLogger(logPath, logLevel)
	if err != nil {
		log = util.NewWriterLogger(cmd.ErrOrStderr(), logLevel)
		code = pipeline.Fail(opts, log, fmt.Errorf("Log file unavailable: %w", err))
	} else {
		defer logFile.Close()
		code = pipeline.Run(opts, log)
	}

	if err := metrics.WriteTextfile(metricsFile); err != nil {
		log.Warn().Err(err).Str("path", metricsFile).Msg("metrics textfile")
	}
	if code != pipeline.ExitOK {
		return exitCode(code)
	}
	return nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
