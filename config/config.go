// Package config provides YAML configuration parsing for danmaku.
//
// This package enables running danmaku as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Live comments
//	port: 3000
//
//	display:
//	  width: 1920
//	  height: 1080
//	lane_height: 40
//
//	storage:
//	  driver: sqlite
//	  path: ${DANMAKU_DB:-danmaku.db}
//
//	feed:
//	  interval: 5s
//	  sources:
//	    - name: upstream
//	      url: https://danmaku.example.com/messages
//	      timeout: 5s
//	      decoder: default
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 3000
	defaultFeedInterval = 5 * time.Second

	// minFeedInterval keeps a misconfigured feed from hammering its sources.
	minFeedInterval = 1 * time.Second
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config is the root configuration structure for danmaku.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the overlay page title. Defaults to "Danmaku" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 3000.
	Port int `yaml:"port"`

	// Display is the initial display size in pixels. The overlay page
	// reports its real size when it loads.
	Display DisplayConfig `yaml:"display"`

	// LaneHeight is the height of one lane in pixels. Defaults to 40.
	LaneHeight float64 `yaml:"lane_height"`

	// PollInterval is the delay between scheduling ticks. Defaults to 200ms.
	PollInterval Duration `yaml:"poll_interval"`

	// ResumeDelay is how long the board waits after the display becomes
	// visible before resuming. Defaults to 200ms.
	ResumeDelay Duration `yaml:"resume_delay"`

	// DurationScale multiplies every scroll duration. Defaults to 1.
	DurationScale float64 `yaml:"duration_scale"`

	// Storage selects where submitted messages are kept.
	Storage StorageConfig `yaml:"storage"`

	// Feed configures the periodic replay of messages.
	Feed FeedConfig `yaml:"feed"`
}

// DisplayConfig is a display size in pixels.
type DisplayConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// StorageConfig selects the message store.
type StorageConfig struct {
	// Driver is "memory" (default) or "sqlite".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file. Required for the sqlite driver.
	// Supports environment variable substitution.
	Path string `yaml:"path"`
}

// FeedConfig configures the periodic replay of stored and remote messages.
type FeedConfig struct {
	// Interval is the time between feed cycles. Defaults to 5s.
	Interval Duration `yaml:"interval"`

	// MaxConcurrency bounds concurrent source fetches. Defaults to 4.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Sources are remote message lists replayed every cycle.
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig defines a single remote message source.
type SourceConfig struct {
	// Name identifies the source in logs and /api/sources.
	Name string `yaml:"name"`

	// URL is fetched with GET every cycle.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// Timeout is the request timeout. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Headers are custom HTTP headers sent with each request.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Decoder determines how the response body becomes messages.
	// Can be shorthand ("default", "lines", "json:path", "regex:pattern")
	// or structured.
	Decoder DecoderConfig `yaml:"decoder"`
}

// DecoderConfig specifies how to turn a source's response into messages.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	decoder: default
//	decoder: lines
//	decoder: json:message.body
//	decoder: regex:<li>([^<]+)</li>
//
// Structured object:
//
//	decoder:
//	  type: json
//	  path: message.body
type DecoderConfig struct {
	// Type is the decoder type: "default", "lines", "json", "regex".
	Type string

	// Path is the JSON field path (for type: json).
	Path string

	// Pattern is the regular expression (for type: regex).
	Pattern string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for DecoderConfig.
func (d *DecoderConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		return d.parseShorthand(s)
	}

	if node.Kind == yaml.MappingNode {
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type    string `yaml:"type"`
			Path    string `yaml:"path"`
			Pattern string `yaml:"pattern"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		d.Type = raw.Type
		d.Path = raw.Path
		d.Pattern = raw.Pattern
		return nil
	}

	return fmt.Errorf("decoder must be a string or object, got %v", node.Kind)
}

// parseShorthand parses decoder shorthand syntax.
//
// Supported formats:
//   - "default" → the board's own message list format
//   - "lines" → one message per non-blank line
//   - "json:path" → a JSON array, text at path
//   - "regex:pattern" → one message per match of the first capture group
func (d *DecoderConfig) parseShorthand(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if idx := strings.Index(s, ":"); idx != -1 {
		d.Type = s[:idx]
		value := s[idx+1:]

		switch d.Type {
		case "json":
			d.Path = value
		case "regex":
			d.Pattern = value
		default:
			return fmt.Errorf("unknown decoder type %q", d.Type)
		}
		return nil
	}

	switch s {
	case "default", "lines":
		d.Type = s
	default:
		return fmt.Errorf("unknown decoder %q (expected 'default', 'lines', 'json:path', or 'regex:pattern')", s)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""
		defaultVal := submatches[3]

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the storage path and in source
// URLs and header values. Defaults are applied for Port (3000), the
// storage driver (memory) and the feed interval (5s).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverMemory
	}
	if cfg.Feed.Interval == 0 {
		cfg.Feed.Interval = Duration(defaultFeedInterval)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		return fmt.Errorf("display size must not be negative, got %vx%v", c.Display.Width, c.Display.Height)
	}
	if c.LaneHeight < 0 {
		return fmt.Errorf("lane_height must not be negative, got %v", c.LaneHeight)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval cannot be negative, got %s", c.PollInterval.Duration())
	}
	if c.ResumeDelay < 0 {
		return fmt.Errorf("resume_delay cannot be negative, got %s", c.ResumeDelay.Duration())
	}
	if c.DurationScale < 0 {
		return fmt.Errorf("duration_scale must not be negative, got %v", c.DurationScale)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		expanded, err := expandEnvVars(c.Storage.Path)
		if err != nil {
			return fmt.Errorf("storage: path: %w", err)
		}
		c.Storage.Path = expanded
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: driver %q requires a path", DriverSQLite)
		}
	default:
		return fmt.Errorf("storage: driver must be %q or %q, got %q", DriverMemory, DriverSQLite, c.Storage.Driver)
	}

	if c.Feed.Interval.Duration() < minFeedInterval {
		return fmt.Errorf("feed: interval must be at least %s, got %s", minFeedInterval, c.Feed.Interval.Duration())
	}
	if c.Feed.MaxConcurrency < 0 {
		return fmt.Errorf("feed: max_concurrency must not be negative, got %d", c.Feed.MaxConcurrency)
	}

	seen := make(map[string]bool, len(c.Feed.Sources))
	for i := range c.Feed.Sources {
		src := &c.Feed.Sources[i]

		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("sources[%d] (%s): duplicate name", i, src.Name)
		}
		seen[src.Name] = true

		if src.URL == "" {
			return fmt.Errorf("sources[%d] (%s): url is required", i, src.Name)
		}
		expanded, err := expandEnvVars(src.URL)
		if err != nil {
			return fmt.Errorf("sources[%d] (%s): url: %w", i, src.Name, err)
		}
		src.URL = expanded

		parsedURL, err := url.Parse(src.URL)
		if err != nil {
			return fmt.Errorf("sources[%d] (%s): invalid url: %w", i, src.Name, err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("sources[%d] (%s): url scheme must be http or https, got %q", i, src.Name, parsedURL.Scheme)
		}

		for k, v := range src.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("sources[%d] (%s): headers[%s]: %w", i, src.Name, k, err)
			}
			src.Headers[k] = expanded
		}

		if src.Timeout != 0 && src.Timeout.Duration() < time.Second {
			return fmt.Errorf("sources[%d] (%s): timeout must be at least 1s if specified, got %s",
				i, src.Name, src.Timeout.Duration())
		}

		if err := validateDecoder(&src.Decoder, fmt.Sprintf("sources[%d] (%s)", i, src.Name)); err != nil {
			return err
		}
	}

	return nil
}

// validateDecoder validates a decoder configuration.
func validateDecoder(d *DecoderConfig, context string) error {
	switch d.Type {
	case "", "default", "lines":
		// no additional validation needed
	case "json":
		if d.Path == "" {
			return fmt.Errorf("%s: decoder type 'json' requires a path", context)
		}
	case "regex":
		if d.Pattern == "" {
			return fmt.Errorf("%s: decoder type 'regex' requires a pattern", context)
		}
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return fmt.Errorf("%s: invalid decoder pattern: %w", context, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("%s: decoder pattern must contain a capture group", context)
		}
	default:
		return fmt.Errorf("%s: unknown decoder type %q", context, d.Type)
	}

	return nil
}
