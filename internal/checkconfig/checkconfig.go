// Package checkconfig loads check configurations and applies them to a check list.
package checkconfig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

var (
	// ErrSelectAndIgnore is returned when both select and ignore are given.
	ErrSelectAndIgnore = errors.New("options 'ignore' and 'select' cannot both be used")
	// ErrUnknownConfig is returned for a name that is neither built in nor a file.
	ErrUnknownConfig = errors.New("unknown config")
	// ErrInvalidConfig wraps schema violations.
	ErrInvalidConfig = errors.New("invalid config")
)

//go:embed schema.json
var schemaJSON []byte

//go:embed dandi.yaml
var dandiYAML []byte

// builtins maps keywords to embedded YAML configs.
var builtins = map[string][]byte{
	"dandi": dandiYAML,
}

// Config reassigns check importances. Names under Skip are dropped.
type Config struct {
	Critical               []string `json:"CRITICAL,omitempty" yaml:"CRITICAL,omitempty" toml:"CRITICAL,omitempty"`
	BestPracticeViolation  []string `json:"BEST_PRACTICE_VIOLATION,omitempty" yaml:"BEST_PRACTICE_VIOLATION,omitempty" toml:"BEST_PRACTICE_VIOLATION,omitempty"`
	BestPracticeSuggestion []string `json:"BEST_PRACTICE_SUGGESTION,omitempty" yaml:"BEST_PRACTICE_SUGGESTION,omitempty" toml:"BEST_PRACTICE_SUGGESTION,omitempty"`
	Skip                   []string `json:"SKIP,omitempty" yaml:"SKIP,omitempty" toml:"SKIP,omitempty"`
}

// levels lists assignments in application order; a name listed under several
// levels takes the last one.
func (c Config) levels() []struct {
	importance message.Importance
	names      []string
} {
	return []struct {
		importance message.Importance
		names      []string
	}{
		{message.Critical, c.Critical},
		{message.BestPracticeViolation, c.BestPracticeViolation},
		{message.BestPracticeSuggestion, c.BestPracticeSuggestion},
	}
}

// Names returns every check name the config mentions.
func (c Config) Names() []string {
	all := make([]string, 0, len(c.Critical)+len(c.BestPracticeViolation)+len(c.BestPracticeSuggestion)+len(c.Skip))
	all = append(all, c.Critical...)
	all = append(all, c.BestPracticeViolation...)
	all = append(all, c.BestPracticeSuggestion...)
	all = append(all, c.Skip...)
	return lo.Uniq(all)
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7
		const url = "mem://nwbinspector/config.schema.json"
		if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(url)
	})
	return compiledSchema, schemaErr
}

// Validate checks a decoded document against the config schema. The error
// lists every violation.
func Validate(doc any) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}

	normalized, err := toJSONModel(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := schema.Validate(normalized); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, describeViolations(verr))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks the config against the schema.
func (c Config) Validate() error {
	return Validate(c)
}

func describeViolations(err *jsonschema.ValidationError) string {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		return fmt.Sprintf("%s: %s", location, err.Message)
	}
	parts := make([]string, 0, len(err.Causes))
	for _, cause := range err.Causes {
		parts = append(parts, describeViolations(cause))
	}
	return strings.Join(parts, "; ")
}

// toJSONModel converts YAML/TOML decoded values into plain JSON values.
func toJSONModel(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Load resolves a built-in keyword or reads a YAML, JSON or TOML file, and
// validates it.
func Load(nameOrPath string) (Config, error) {
	if data, ok := builtins[nameOrPath]; ok {
		return decode(data, ".yaml", nameOrPath)
	}

	data, err := os.ReadFile(nameOrPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && filepath.Ext(nameOrPath) == "" {
			return Config{}, fmt.Errorf("%w %q: not a built-in config (%s) or an existing file", ErrUnknownConfig, nameOrPath, strings.Join(BuiltinNames(), ", "))
		}
		return Config{}, fmt.Errorf("read config %q: %w", nameOrPath, err)
	}
	return decode(data, strings.ToLower(filepath.Ext(nameOrPath)), nameOrPath)
}

// BuiltinNames lists the embedded config keywords.
func BuiltinNames() []string {
	names := lo.Keys(builtins)
	sort.Strings(names)
	return names
}

func decode(data []byte, ext, source string) (Config, error) {
	var doc any
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", source, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", source, err)
		}
	case ".toml":
		var table map[string]any
		if _, err := toml.Decode(string(data), &table); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", source, err)
		}
		if table == nil {
			table = map[string]any{}
		}
		doc = table
	default:
		return Config{}, fmt.Errorf("config %q: unsupported extension %q (expected .yaml, .yml, .json or .toml)", source, ext)
	}

	if doc == nil {
		doc = map[string]any{}
	}
	if err := Validate(doc); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", source, err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", source, err)
	}
	var cfg Config
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", source, err)
	}
	return cfg, nil
}

// ParseImportanceThreshold parses a threshold name such as BEST_PRACTICE_VIOLATION.
func ParseImportanceThreshold(name string) (message.Importance, error) {
	imp, err := message.ParseImportance(name)
	if err != nil || !imp.Assignable() {
		return 0, fmt.Errorf("invalid importance threshold %q: must be one of %v", name, message.AssignableImportances())
	}
	return imp, nil
}

// Options controls Configure.
type Options struct {
	Config              *Config
	Ignore              []string
	Select              []string
	ImportanceThreshold message.Importance
}

// Configure derives the check list to run. The input checks are never modified
// and the output keeps their order.
func Configure(checks []registry.Check, opts Options) ([]registry.Check, error) {
	if len(opts.Ignore) > 0 && len(opts.Select) > 0 {
		return nil, ErrSelectAndIgnore
	}
	if !opts.ImportanceThreshold.Valid() {
		return nil, fmt.Errorf("invalid importance threshold %d", int(opts.ImportanceThreshold))
	}

	known := lo.Map(checks, func(c registry.Check, _ int) string { return c.Name() })
	ignore := append([]string(nil), opts.Ignore...)
	out := append([]registry.Check(nil), checks...)

	if opts.Config != nil {
		if err := opts.Config.Validate(); err != nil {
			return nil, err
		}
		warnUnknown("config", opts.Config.Names(), known)

		overrides := make(map[string]message.Importance)
		for _, level := range opts.Config.levels() {
			for _, name := range level.names {
				overrides[name] = level.importance
			}
		}
		for i, check := range out {
			if imp, ok := overrides[check.Name()]; ok {
				out[i] = check.WithImportance(imp)
			}
		}
		ignore = append(ignore, opts.Config.Skip...)
	}

	switch {
	case len(opts.Select) > 0:
		warnUnknown("select", opts.Select, known)
		out = lo.Filter(out, func(c registry.Check, _ int) bool { return lo.Contains(opts.Select, c.Name()) })
	case len(ignore) > 0:
		warnUnknown("ignore", opts.Ignore, known)
		out = lo.Filter(out, func(c registry.Check, _ int) bool { return !lo.Contains(ignore, c.Name()) })
	}

	return lo.Filter(out, func(c registry.Check, _ int) bool {
		return c.Importance() >= opts.ImportanceThreshold
	}), nil
}

func warnUnknown(source string, names, known []string) {
	for _, name := range names {
		if lo.Contains(known, name) {
			continue
		}
		attrs := []any{"source", source, "check", name}
		if suggestion, ok := Suggest(name, known); ok {
			attrs = append(attrs, "did_you_mean", suggestion)
		}
		slog.Warn("unknown check name", attrs...)
	}
}

// Suggest returns the registered name closest to name.
func Suggest(name string, known []string) (string, bool) {
	matches := fuzzy.Find(name, known)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].Str, true
}
