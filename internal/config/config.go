// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads aix settings from defaults, an optional YAML file
// and the environment, in increasing order of precedence. Command-line
// flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

const (
	// DefaultTimeout bounds every supervised command.
	DefaultTimeout = 300000 * time.Millisecond

	// DefaultMemoryRateLimit is the MCP tool-call budget per minute.
	DefaultMemoryRateLimit = 100

	// DefaultUpdateURL is queried by "aix version --check".
	DefaultUpdateURL = "https://api.github.com/repos/tombee/aix/releases/latest"
)

// Config is the resolved runtime configuration.
type Config struct {
	// TimeoutMS is the per-command deadline in milliseconds.
	TimeoutMS int `yaml:"timeout_ms"`

	// MaxInputLength bounds every string option. Clamped to
	// validate.HardMaxInputLength.
	MaxInputLength int `yaml:"max_input_length"`

	Debug          bool `yaml:"debug"`
	StructuredLogs bool `yaml:"structured_logs"`
	NoColor        bool `yaml:"no_color"`

	// DefaultPreset is used by "aix init" when --preset is omitted and
	// the terminal is not interactive.
	DefaultPreset string `yaml:"default_preset"`

	Memory MemoryConfig `yaml:"memory"`
	Update UpdateConfig `yaml:"update"`
	Trace  TraceConfig  `yaml:"trace"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

// MemoryConfig configures the project memory store.
type MemoryConfig struct {
	// Database overrides ~/.claude/project-memories/<project>.db.
	Database string `yaml:"database"`

	// RateLimit is the number of MCP tool calls allowed per minute.
	RateLimit int `yaml:"rate_limit"`

	// Table limits; zero keeps the store's default.
	MaxDecisions   int `yaml:"max_decisions"`
	MaxPatterns    int `yaml:"max_patterns"`
	MaxContextKeys int `yaml:"max_context_keys"`
}

// UpdateConfig configures the release check.
type UpdateConfig struct {
	URL string `yaml:"url"`
}

// TraceConfig configures OpenTelemetry spans for supervised commands.
type TraceConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is "stdout" or "otlp".
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP/HTTP collector address for the otlp exporter.
	Endpoint string `yaml:"endpoint"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TimeoutMS:      int(DefaultTimeout.Milliseconds()),
		MaxInputLength: validate.DefaultMaxInputLength,
		DefaultPreset:  "minimal",
		Memory: MemoryConfig{
			RateLimit: DefaultMemoryRateLimit,
		},
		Update: UpdateConfig{
			URL: DefaultUpdateURL,
		},
		Trace: TraceConfig{
			Exporter: "stdout",
		},
	}
}

// Timeout returns the configured deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Load resolves configuration. An empty configPath reads the default
// XDG location when it exists; an explicit path must exist.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	explicit := configPath != ""
	if !explicit {
		p, err := ConfigPath()
		if err == nil {
			configPath = p
		}
	}

	if configPath != "" {
		err := cfg.loadFromFile(configPath)
		switch {
		case err == nil:
			cfg.Path = configPath
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}

	cfg.applyDefaults()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills in zero values left by a partial config file.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.TimeoutMS == 0 {
		c.TimeoutMS = defaults.TimeoutMS
	}
	if c.MaxInputLength == 0 {
		c.MaxInputLength = defaults.MaxInputLength
	}
	if c.DefaultPreset == "" {
		c.DefaultPreset = defaults.DefaultPreset
	}
	if c.Memory.RateLimit == 0 {
		c.Memory.RateLimit = defaults.Memory.RateLimit
	}
	if c.Update.URL == "" {
		c.Update.URL = defaults.Update.URL
	}
	if c.Trace.Exporter == "" {
		c.Trace.Exporter = defaults.Trace.Exporter
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	expanded, err := expandHome(path)
	if err != nil {
		return aixerrors.New(aixerrors.CodeConfigUnreadable, "",
			aixerrors.WithCause(err), aixerrors.WithField("path", path))
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return aixerrors.New(aixerrors.CodeConfigUnreadable,
				fmt.Sprintf("Config file %s does not exist", expanded),
				aixerrors.WithCause(err), aixerrors.WithField("path", expanded))
		}
		return aixerrors.New(aixerrors.CodeConfigUnreadable,
			fmt.Sprintf("Cannot read config file %s", expanded),
			aixerrors.WithCause(err), aixerrors.WithField("path", expanded))
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return aixerrors.New(aixerrors.CodeConfigUnreadable,
			fmt.Sprintf("Config file %s is not valid YAML", expanded),
			aixerrors.WithCause(err), aixerrors.WithField("path", expanded))
	}

	return nil
}

// loadFromEnv applies environment overrides. Malformed values fail with
// CodeConfigInvalid rather than being ignored.
func (c *Config) loadFromEnv() error {
	if val := os.Getenv("AIX_TIMEOUT_MS"); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return invalidEnv("AIX_TIMEOUT_MS", val, err)
		}
		c.TimeoutMS = n
	}

	if val := os.Getenv("AIX_MAX_INPUT_LENGTH"); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return invalidEnv("AIX_MAX_INPUT_LENGTH", val, err)
		}
		c.MaxInputLength = n
	}

	if val := os.Getenv("AIX_DEBUG"); val != "" {
		c.Debug = ParseBool(val)
	}

	if v, ok := StructuredLogsFromEnv(); ok {
		c.StructuredLogs = v
	}

	// NO_COLOR disables color when set to any non-empty value.
	if os.Getenv("NO_COLOR") != "" {
		c.NoColor = true
	}
	if val := os.Getenv("AIX_NO_COLOR"); val != "" {
		c.NoColor = ParseBool(val)
	}

	if val := os.Getenv("AIX_MEMORY_DB"); val != "" {
		c.Memory.Database = val
	} else if val := os.Getenv("PROJECT_MEMORY_DB"); val != "" {
		c.Memory.Database = val
	}

	if val := os.Getenv("AIX_MEMORY_RATE_LIMIT"); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return invalidEnv("AIX_MEMORY_RATE_LIMIT", val, err)
		}
		c.Memory.RateLimit = n
	}

	limits := []struct {
		name string
		dst  *int
	}{
		{"MAX_DECISIONS", &c.Memory.MaxDecisions},
		{"MAX_PATTERNS", &c.Memory.MaxPatterns},
		{"MAX_CONTEXT_KEYS", &c.Memory.MaxContextKeys},
	}
	for _, l := range limits {
		for _, name := range []string{"AIX_MEMORY_" + l.name, "PROJECT_MEMORY_" + l.name} {
			val := os.Getenv(name)
			if val == "" {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return invalidEnv(name, val, err)
			}
			*l.dst = n
			break
		}
	}

	if val := os.Getenv("AIX_UPDATE_URL"); val != "" {
		c.Update.URL = val
	}

	if val := os.Getenv("AIX_TRACE"); val != "" {
		c.Trace.Enabled = ParseBool(val)
	}
	if val := os.Getenv("AIX_TRACE_EXPORTER"); val != "" {
		c.Trace.Exporter = strings.ToLower(val)
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Trace.Endpoint = val
	}

	return nil
}

// StructuredLogsFromEnv reports the structured-logging setting from
// AIX_STRUCTURED_LOGS, falling back to STRUCTURED_LOGGING. ok is false
// when neither variable is set.
func StructuredLogsFromEnv() (structured, ok bool) {
	if val := os.Getenv("AIX_STRUCTURED_LOGS"); val != "" {
		return ParseBool(val), true
	}
	if val := os.Getenv("STRUCTURED_LOGGING"); val != "" {
		return ParseBool(val), true
	}
	return false, false
}

func invalidEnv(name, value string, err error) error {
	return aixerrors.New(aixerrors.CodeConfigInvalid,
		fmt.Sprintf("%s must be an integer", name),
		aixerrors.WithCause(err),
		aixerrors.WithContext(map[string]any{"variable": name, "value": value}),
	)
}

// Validate checks value ranges and clamps the input length bound.
func (c *Config) Validate() error {
	if c.TimeoutMS <= 0 {
		return invalidValue("timeout_ms", c.TimeoutMS, "must be a positive number of milliseconds")
	}
	if c.Memory.RateLimit <= 0 {
		return invalidValue("memory.rate_limit", c.Memory.RateLimit, "must be a positive number of calls per minute")
	}
	for key, v := range map[string]int{
		"memory.max_decisions":    c.Memory.MaxDecisions,
		"memory.max_patterns":     c.Memory.MaxPatterns,
		"memory.max_context_keys": c.Memory.MaxContextKeys,
	} {
		if v < 0 {
			return invalidValue(key, v, "must not be negative")
		}
	}
	switch c.Trace.Exporter {
	case "stdout", "otlp":
	default:
		return invalidValue("trace.exporter", c.Trace.Exporter, `must be "stdout" or "otlp"`)
	}

	c.MaxInputLength = validate.ClampMaxLength(c.MaxInputLength)
	return nil
}

func invalidValue(key string, value any, reason string) error {
	return aixerrors.New(aixerrors.CodeConfigInvalid,
		fmt.Sprintf("Config value %s %s", key, reason),
		aixerrors.WithContext(map[string]any{"key": key, "value": value}),
	)
}

// ParseBool interprets common truthy spellings; anything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
