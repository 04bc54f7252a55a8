package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir    string
	opts   Options
	stdout *bytes.Buffer
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, cfg, csv string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, stdout: &bytes.Buffer{}, logs: &bytes.Buffer{}}
	f.opts = Options{
		InputPath:  filepath.Join(dir, "data.csv"),
		ConfigPath: filepath.Join(dir, "config.yaml"),
		OutputPath: filepath.Join(dir, "metrics.json"),
		Stdout:     f.stdout,
	}
	if cfg != "" {
		require.NoError(t, os.WriteFile(f.opts.ConfigPath, []byte(cfg), 0o644))
	}
	if csv != "" {
		require.NoError(t, os.WriteFile(f.opts.InputPath, []byte(csv), 0o644))
	}
	return f
}

func (f *fixture) run() int {
	return Run(f.opts, zerolog.New(f.logs))
}

func (f *fixture) output(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile(f.opts.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, string(data)+"\n", f.stdout.String(), "stdout must mirror the report file")

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func closes(n int) string {
	var b strings.Builder
	b.WriteString("timestamp,close\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "2024-01-%02d,%d\n", i, i)
	}
	return b.String()
}

func TestRunSuccess(t *testing.T) {
	f := newFixture(t, "seed: 42\nwindow: 3\nversion: v1\n", closes(10))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.opts.Start = start
	f.opts.Clock = func() time.Time { return start.Add(17 * time.Millisecond) }

	require.Equal(t, ExitOK, f.run())

	out := f.output(t)
	assert.Equal(t, "v1", out["version"])
	assert.Equal(t, 10.0, out["rows_processed"])
	assert.Equal(t, "signal_rate", out["metric"])
	assert.Equal(t, 0.8, out["value"])
	assert.Equal(t, 17.0, out["latency_ms"])
	assert.Equal(t, 42.0, out["seed"])
	assert.Equal(t, "success", out["status"])

	logs := f.logs.String()
	for _, msg := range []string{"job started", "config loaded", "data loaded", "signals generated", "job completed successfully"} {
		assert.Contains(t, logs, msg)
	}
}

func TestRunWindowLongerThanSeries(t *testing.T) {
	f := newFixture(t, "seed: 1\nwindow: 50\nversion: v1\n", closes(5))
	require.Equal(t, ExitOK, f.run())

	data, err := os.ReadFile(f.opts.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value": 0.0,`)
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name    string
		cfg     string
		csv     string
		version string
		message string
	}{
		{"missing config", "", closes(3), "unknown", "Config file missing"},
		{"missing version key", "seed: 1\nwindow: 5\n", closes(3), "unknown", "Missing config key: version"},
		{"zero window", "seed: 1\nwindow: 0\nversion: v1\n", closes(3), "unknown", "Window must be positive integer"},
		{"missing input", "seed: 1\nwindow: 2\nversion: v9\n", "", "v9", "Input file missing"},
		{"header only", "seed: 1\nwindow: 2\nversion: v9\n", "timestamp,close\n", "v9", "CSV file is empty"},
		{"no close column", "seed: 1\nwindow: 2\nversion: v9\n", "timestamp,open\nx,1\n", "v9", "Missing 'close' column"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.cfg, tc.csv)
			require.Equal(t, ExitFailure, f.run())

			out := f.output(t)
			assert.Equal(t, map[string]any{
				"version":       tc.version,
				"status":        "error",
				"error_message": tc.message,
			}, out)
			assert.Contains(t, f.logs.String(), `"level":"error"`)
		})
	}
}

func TestRunIsIdempotentExceptLatency(t *testing.T) {
	f := newFixture(t, "seed: 7\nwindow: 2\nversion: v3\n", "close\n3\n1\n4\n1\n5\n9\n2\n6\n")
	require.Equal(t, ExitOK, f.run())
	first := f.output(t)

	f.stdout.Reset()
	require.Equal(t, ExitOK, f.run())
	second := f.output(t)

	delete(first, "latency_ms")
	delete(second, "latency_ms")
	assert.Equal(t, first, second)
}

func TestRunUnwritableOutputStillMirrorsError(t *testing.T) {
	f := newFixture(t, "seed: 1\nwindow: 2\nversion: v1\n", closes(4))
	f.opts.OutputPath = filepath.Join(f.dir, "missing", "metrics.json")

	require.Equal(t, ExitFailure, f.run())
	assert.Equal(t, 1, strings.Count(f.stdout.String(), `"status"`), "exactly one record on stdout")
	assert.Contains(t, f.stdout.String(), `"status": "error"`)
	assert.Contains(t, f.stdout.String(), `"version": "v1"`)
}

func TestExecuteSeedsRunGenerator(t *testing.T) {
	f := newFixture(t, "seed: 11\nwindow: 2\nversion: v1\n", closes(4))

	a, err := Execute(f.opts, zerolog.Nop(), nil)
	require.NoError(t, err)
	b, err := Execute(f.opts, zerolog.Nop(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, a.Rows())
	assert.Equal(t, a.Rand.Int63(), b.Rand.Int63())
}

func TestFailWritesUnknownVersion(t *testing.T) {
	f := newFixture(t, "", "")
	require.Equal(t, ExitFailure, Fail(f.opts, zerolog.Nop(), fmt.Errorf("Log file unavailable")))

	out := f.output(t)
	assert.Equal(t, "unknown", out["version"])
	assert.Equal(t, "Log file unavailable", out["error_message"])
}
