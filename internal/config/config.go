// Package config loads the optional treelox YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the user's home directory.
const FileName = ".treelox.yml"

// Config is the parsed configuration.
type Config struct {
	Path     string     `yaml:"-"`
	REPL     REPLConfig `yaml:"repl"`
	LogLevel string     `yaml:"log_level"`
	Dump     DumpConfig `yaml:"dump"`
}

// REPLConfig controls the interactive prompt.
type REPLConfig struct {
	Prompt             string `yaml:"prompt"`
	ContinuationPrompt string `yaml:"continuation_prompt"`
	HistoryFile        string `yaml:"history_file"`
	Color              bool   `yaml:"color"`
}

// DumpConfig selects intermediate results written to stderr before a run.
type DumpConfig struct {
	Tokens    bool `yaml:"tokens"`
	AST       bool `yaml:"ast"`
	Distances bool `yaml:"distances"`
}

// ValidationError aggregates configuration problems.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config: %s is invalid:", e.Path)
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		REPL: REPLConfig{
			Prompt:             ">> ",
			ContinuationPrompt: ".. ",
			HistoryFile:        filepath.Join(os.TempDir(), ".treelox_history"),
			Color:              true,
		},
		LogLevel: "info",
	}
}

// DefaultPath returns ~/.treelox.yml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve user home: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Load reads the file at path on top of Default. Keys the file does not set
// keep their defaults; unknown keys are an error. A missing file yields an
// error wrapping os.ErrNotExist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return cfg, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return cfg, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Default(), fmt.Errorf("config: parse %s: %w", absPath, err)
	}
	cfg.Path = absPath
	cfg.REPL.HistoryFile = expandHome(cfg.REPL.HistoryFile)

	if err := cfg.validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func (c Config) validate() error {
	errs := ValidationError{Path: c.Path}
	if _, ok := parseLevel(c.LogLevel); !ok {
		errs.Issues = append(errs.Issues,
			fmt.Sprintf("log_level must be one of debug, info, warn, error (got %q)", c.LogLevel))
	}
	if c.REPL.Prompt == "" {
		errs.Issues = append(errs.Issues, "repl.prompt must be a non-empty string")
	}
	if c.REPL.ContinuationPrompt == "" {
		errs.Issues = append(errs.Issues, "repl.continuation_prompt must be a non-empty string")
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// SlogLevel maps log_level to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
