package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultPort            = "6379"
	DefaultInitialCapacity = 16
)

type Config struct {
	Port            string
	InitialCapacity int
	Multicore       bool
	LogLevel        string
	LogFile         string
	LogMaxSizeMB    int
	LogMaxBackups   int
	LogMaxAgeDays   int
}

func Default() Config {
	return Config{
		Port:            DefaultPort,
		InitialCapacity: DefaultInitialCapacity,
		Multicore:       true,
		LogLevel:        "info",
		LogMaxSizeMB:    100,
		LogMaxBackups:   3,
		LogMaxAgeDays:   28,
	}
}

// Parse reads flags from args (without the program name) over Default and
// validates the result.
func Parse(name string, args []string, output io.Writer) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	fs.IntVar(&cfg.InitialCapacity, "initial-capacity", cfg.InitialCapacity, "Initial bucket count of the hash table")
	fs.BoolVar(&cfg.Multicore, "multicore", cfg.Multicore, "Run one event loop per CPU")
	fs.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFile, "logfile", cfg.LogFile, "Also write JSON logs to this file, rotated by size")
	fs.IntVar(&cfg.LogMaxSizeMB, "logfile-max-size", cfg.LogMaxSizeMB, "Megabytes before the log file is rotated")
	fs.IntVar(&cfg.LogMaxBackups, "logfile-max-backups", cfg.LogMaxBackups, "Rotated log files to keep (0 = all)")
	fs.IntVar(&cfg.LogMaxAgeDays, "logfile-max-age", cfg.LogMaxAgeDays, "Days to keep rotated log files (0 = forever)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field, not just the first.
func (c Config) Validate() error {
	var err error

	port, perr := strconv.Atoi(c.Port)
	if perr != nil || port < 1 || port > 65535 {
		err = multierr.Append(err, fmt.Errorf("invalid port %q", c.Port))
	}

	if c.InitialCapacity < 1 {
		err = multierr.Append(err, fmt.Errorf("initial capacity must be at least 1, got %d", c.InitialCapacity))
	}

	if _, lerr := c.Level(); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("invalid log level %q", c.LogLevel))
	}

	if c.LogMaxSizeMB < 0 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		err = multierr.Append(err, errors.New("log rotation limits must not be negative"))
	}

	return err
}

func (c Config) Level() (zapcore.Level, error) {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

func (c Config) Addr() string {
	return "tcp://:" + c.Port
}
