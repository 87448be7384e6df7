package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultRemote is the endpoint used when nothing else is configured.
	DefaultRemote = "sc://sail.localhost:443"
	// DefaultType is the adapter type alias used to connect.
	DefaultType = "sc"
)

// Environment variables which override the remote, in order of priority.
var RemoteEnvVars = []string{"SAIL_REMOTE", "SPARK_REMOTE"}

// Config holds all sailcheck configuration.
// Values are layered as defaults < config file < environment < flags.
type Config struct {
	// Remote is the connection string of the server
	Remote string `yaml:"remote"`
	// Type selects the adapter (sc, sail, databricks...)
	Type string `yaml:"type"`

	// Rows is the length of the range query
	Rows int64 `yaml:"rows"`
	// Column is the name the range column is renamed to
	Column string `yaml:"column"`
	// SQL replaces the range query if set
	SQL string `yaml:"sql"`
	// Output is the row format: rows, table, json or csv
	Output string `yaml:"output"`

	// Attempts is how many times connecting is tried
	Attempts uint `yaml:"attempts"`
	// RetryDelay is the initial delay between attempts, e.g. "1s"
	RetryDelay string `yaml:"retry_delay"`
	// Timeout bounds the whole run, e.g. "30s". Empty means no limit.
	Timeout string `yaml:"timeout"`

	Verbose  bool `yaml:"verbose"`
	ExitZero bool `yaml:"exit_zero"`
}

// Default returns the configuration used without any overrides.
func Default() *Config {
	return &Config{
		Remote:     DefaultRemote,
		Type:       DefaultType,
		Rows:       5,
		Column:     "number",
		Output:     "rows",
		Attempts:   1,
		RetryDelay: "1s",
	}
}

// Load reads the yaml config file at path on top of the defaults. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides the remote from the first set variable of
// RemoteEnvVars.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for _, name := range RemoteEnvVars {
		if value, ok := lookup(name); ok && value != "" {
			c.Remote = value
			return
		}
	}
}

// RegisterFlags adds a flag for every config value to fs, with the current
// values as defaults.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.String("remote", c.Remote, "spark connect connection string, overrides $SAIL_REMOTE and $SPARK_REMOTE")
	fs.String("type", c.Type, "adapter type (sc, sail, databricks)")
	fs.Int64("rows", c.Rows, "length of the range query")
	fs.String("column", c.Column, "name of the range column")
	fs.String("sql", c.SQL, "run this sql query instead of the range query")
	fs.StringP("output", "o", c.Output, "row format: rows, table, json or csv")
	fs.Uint("attempts", c.Attempts, "connection attempts before giving up")
	fs.String("retry-delay", c.RetryDelay, "initial delay between connection attempts")
	fs.String("timeout", c.Timeout, "timeout for the whole run, e.g. 30s")
	fs.BoolP("verbose", "v", c.Verbose, "write debug logs to stderr")
	fs.Bool("exit-zero", c.ExitZero, "always exit with status 0")
}

// ApplyFlags copies explicitly set flags of fs into c.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var errs []error
	visit := func(f *pflag.Flag) {
		var err error
		switch f.Name {
		case "remote":
			c.Remote, err = fs.GetString(f.Name)
		case "type":
			c.Type, err = fs.GetString(f.Name)
		case "rows":
			c.Rows, err = fs.GetInt64(f.Name)
		case "column":
			c.Column, err = fs.GetString(f.Name)
		case "sql":
			c.SQL, err = fs.GetString(f.Name)
		case "output":
			c.Output, err = fs.GetString(f.Name)
		case "attempts":
			c.Attempts, err = fs.GetUint(f.Name)
		case "retry-delay":
			c.RetryDelay, err = fs.GetString(f.Name)
		case "timeout":
			c.Timeout, err = fs.GetString(f.Name)
		case "verbose":
			c.Verbose, err = fs.GetBool(f.Name)
		case "exit-zero":
			c.ExitZero, err = fs.GetBool(f.Name)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("flag --%s: %w", f.Name, err))
		}
	}
	fs.Visit(visit)

	return errors.Join(errs...)
}

// Validate checks the values which can be checked without connecting.
func (c *Config) Validate() error {
	var errs []error

	if c.Remote == "" {
		errs = append(errs, errors.New("remote must not be empty"))
	}
	if c.Type == "" {
		errs = append(errs, errors.New("type must not be empty"))
	}
	if c.Rows < 0 {
		errs = append(errs, fmt.Errorf("rows must not be negative, got %d", c.Rows))
	}
	if c.Attempts < 1 {
		errs = append(errs, errors.New("attempts must be at least 1"))
	}
	if _, err := c.RetryDelayDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// TimeoutDuration parses Timeout. Zero means no timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", c.Timeout)
}

// RetryDelayDuration parses RetryDelay.
func (c *Config) RetryDelayDuration() (time.Duration, error) {
	return parseDuration("retry_delay", c.RetryDelay)
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", name, value)
	}
	return d, nil
}
