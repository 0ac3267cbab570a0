// Package config loads CLI defaults from .nwbinspector.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is the primary config file name that is auto-discovered.
	DefaultFileName = ".nwbinspector.yaml"
	alternateName   = ".nwbinspector.yml"
)

var outputFormats = []string{"text", "json", "sarif"}

// Config holds defaults loaded from .nwbinspector.yaml. Pointer fields are nil
// when the key is absent so the CLI can tell "unset" from a zero value.
type Config struct {
	// CheckConfig is a check configuration file, resolved against the
	// directory of the defaults file when relative.
	CheckConfig  string        `yaml:"config"`
	Levels       []string      `yaml:"levels"`
	Reverse      []bool        `yaml:"reverse"`
	Select       []string      `yaml:"select"`
	Ignore       []string      `yaml:"ignore"`
	Threshold    string        `yaml:"threshold"`
	Output       string        `yaml:"output"`
	FailOn       string        `yaml:"fail_on"`
	NJobs        *int          `yaml:"n_jobs"`
	SkipValidate *bool         `yaml:"skip_validate"`
	Detailed     *bool         `yaml:"detailed"`
	ProgressBar  *bool         `yaml:"progress_bar"`
	KafkaBrokers string        `yaml:"kafka_brokers"`
	KafkaTopic   string        `yaml:"kafka_topic"`
	AuthMech     string        `yaml:"auth_mechanism"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Load auto-discovers and loads a config file.
// Search order:
// 1) current working directory
// 2) user home directory
func Load() (*Config, string, error) {
	paths, err := defaultPaths()
	if err != nil {
		return nil, "", err
	}

	for _, path := range paths {
		cfg, found, err := loadOptionalPath(path)
		if err != nil {
			return nil, "", err
		}
		if found {
			return cfg, path, nil
		}
	}

	return nil, "", nil
}

// LoadFromPath loads and parses a config file from an explicit path.
func LoadFromPath(path string) (*Config, error) {
	cfg, found, err := loadOptionalPath(path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("read config %q: %w", path, os.ErrNotExist)
	}
	return cfg, nil
}

func defaultPaths() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve current directory: %w", err)
	}

	paths := []string{
		filepath.Join(cwd, DefaultFileName),
		filepath.Join(cwd, alternateName),
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		for _, name := range []string{DefaultFileName, alternateName} {
			if p := filepath.Join(home, name); !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
	}

	return paths, nil
}

func loadOptionalPath(path string) (*Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse config %q: %w", path, err)
	}
	if cfg.CheckConfig != "" && !filepath.IsAbs(cfg.CheckConfig) {
		cfg.CheckConfig = filepath.Join(filepath.Dir(path), cfg.CheckConfig)
	}

	return cfg, true, nil
}

func parse(data []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	cfg.Output = strings.ToLower(strings.TrimSpace(cfg.Output))
	if cfg.Output != "" && !slices.Contains(outputFormats, cfg.Output) {
		return nil, fmt.Errorf("output %q: must be one of %s", cfg.Output, strings.Join(outputFormats, ", "))
	}
	if cfg.NJobs != nil && *cfg.NJobs == 0 {
		return nil, errors.New("n_jobs: must not be 0")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout %s: must not be negative", cfg.Timeout)
	}

	cfg.Threshold = strings.TrimSpace(cfg.Threshold)
	cfg.FailOn = strings.TrimSpace(cfg.FailOn)
	cfg.Levels = normalizeList(cfg.Levels)
	cfg.Select = normalizeList(cfg.Select)
	cfg.Ignore = normalizeList(cfg.Ignore)

	return cfg, nil
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
