// Package config loads and validates the run configuration consumed by the signal pipeline.
package config

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Error reports an invalid or missing run configuration. Error() returns the
// user-facing message only; the underlying cause, if any, is kept for logs.
type Error struct {
	Msg   string
	Cause error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Cause }

func newError(cause error, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// RequiredKeys lists the mandatory keys in the order they are validated.
var RequiredKeys = []string{"seed", "window", "version"}

// RunConfig captures the parameters of a single signal run.
type RunConfig struct {
	Seed    int64
	Window  int
	Version string
}

// Rand returns a generator seeded from the run seed. Each call starts a fresh
// stream so callers get identical draws for identical configs.
func (c *RunConfig) Rand() *rand.Rand {
	return rand.New(rand.NewSource(c.Seed))
}

// Load reads a YAML file from disk and validates it into a RunConfig.
func Load(path string) (*RunConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, newError(err, "Config file missing")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(fmt.Errorf("read config: %w", err), "Invalid YAML format")
	}
	return Parse(data)
}

// Parse validates raw YAML bytes into a RunConfig.
func Parse(data []byte) (*RunConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newError(fmt.Errorf("decode yaml: %w", err), "Invalid YAML format")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, newError(errors.New("empty document"), "Invalid YAML format")
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, newError(fmt.Errorf("expected mapping, got %s", root.ShortTag()), "Invalid YAML format")
	}

	values := make(map[string]*yaml.Node, len(RequiredKeys))
	for i := 0; i+1 < len(root.Content); i += 2 {
		// later duplicates override earlier ones
		values[root.Content[i].Value] = resolve(root.Content[i+1])
	}
	for _, key := range RequiredKeys {
		if _, ok := values[key]; !ok {
			return nil, newError(nil, "Missing config key: %s", key)
		}
	}

	var cfg RunConfig
	if !isInt(values["seed"]) {
		return nil, newError(nil, "Seed must be integer")
	}
	if err := values["seed"].Decode(&cfg.Seed); err != nil {
		return nil, newError(err, "Seed must be integer")
	}

	if !isInt(values["window"]) {
		return nil, newError(nil, "Window must be positive integer")
	}
	if err := values["window"].Decode(&cfg.Window); err != nil || cfg.Window <= 0 {
		return nil, newError(err, "Window must be positive integer")
	}

	version := values["version"]
	switch {
	case version.Kind != yaml.ScalarNode:
		return nil, newError(nil, "Version must be a scalar value")
	case version.ShortTag() == "!!null":
		cfg.Version = ""
	default:
		cfg.Version = version.Value
	}
	return &cfg, nil
}

func isInt(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!int"
}

func resolve(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}
