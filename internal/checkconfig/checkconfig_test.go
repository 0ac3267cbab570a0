package checkconfig

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func noop(*nwb.Object, registry.Params) ([]message.Message, error) { return nil, nil }

func sampleChecks() []registry.Check {
	reg := registry.New()
	reg.MustRegister(message.BestPracticeSuggestion, registry.AnyType, "check_a", noop)
	reg.MustRegister(message.BestPracticeViolation, registry.AnyType, "check_b", noop)
	reg.MustRegister(message.Critical, registry.AnyType, "check_c", noop)
	reg.MustRegister(message.BestPracticeSuggestion, registry.AnyType, "check_d", noop)
	return reg.Checks()
}

func names(checks []registry.Check) []string {
	out := make([]string, 0, len(checks))
	for _, c := range checks {
		out = append(out, c.Name())
	}
	return out
}

func TestLoadBuiltinDandi(t *testing.T) {
	cfg, err := Load("dandi")
	if err != nil {
		t.Fatalf("Load(dandi) error = %v", err)
	}
	if len(cfg.Critical) != 7 {
		t.Fatalf("CRITICAL = %v, want 7 subject checks", cfg.Critical)
	}
	if !reflect.DeepEqual(cfg.BestPracticeViolation, []string{"check_data_orientation"}) {
		t.Fatalf("BEST_PRACTICE_VIOLATION = %v", cfg.BestPracticeViolation)
	}
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	want := Config{Critical: []string{"check_a"}, Skip: []string{"check_d"}}

	cases := []struct {
		file    string
		content string
	}{
		{file: "cfg.yaml", content: "CRITICAL:\n  - check_a\nSKIP:\n  - check_d\n"},
		{file: "cfg.yml", content: "CRITICAL: [check_a]\nSKIP: [check_d]\n"},
		{file: "cfg.json", content: `{"CRITICAL": ["check_a"], "SKIP": ["check_d"]}`},
		{file: "cfg.toml", content: "CRITICAL = [\"check_a\"]\nSKIP = [\"check_d\"]\n"},
	}

	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			mustWriteFile(t, path, tc.content)

			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("Load() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		file    string
		content string
		arg     string
		wantErr error
	}{
		{name: "unknown key", file: "bad.yaml", content: "FATAL:\n  - check_a\n", wantErr: ErrInvalidConfig},
		{name: "duplicate names", file: "dup.json", content: `{"CRITICAL": ["check_a", "check_a"]}`, wantErr: ErrInvalidConfig},
		{name: "non-list value", file: "scalar.yaml", content: "SKIP: check_a\n", wantErr: ErrInvalidConfig},
		{name: "unknown builtin", arg: "dandy", wantErr: ErrUnknownConfig},
		{name: "missing file", arg: filepath.Join(dir, "missing.yaml"), wantErr: os.ErrNotExist},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			arg := tc.arg
			if tc.file != "" {
				arg = filepath.Join(dir, tc.file)
				mustWriteFile(t, arg, tc.content)
			}
			if _, err := Load(arg); !errors.Is(err, tc.wantErr) {
				t.Fatalf("Load(%s) error = %v, want %v", arg, err, tc.wantErr)
			}
		})
	}
}

func TestConfigureSelectAndIgnore(t *testing.T) {
	_, err := Configure(sampleChecks(), Options{Select: []string{"check_a"}, Ignore: []string{"check_b"}})
	if !errors.Is(err, ErrSelectAndIgnore) {
		t.Fatalf("Configure() error = %v, want ErrSelectAndIgnore", err)
	}
}

func TestConfigureSelectIgnoreComplement(t *testing.T) {
	checks := sampleChecks()

	selected, err := Configure(checks, Options{Select: []string{"check_b", "check_d"}})
	if err != nil {
		t.Fatalf("Configure(select) error = %v", err)
	}
	ignored, err := Configure(checks, Options{Ignore: []string{"check_a", "check_c"}})
	if err != nil {
		t.Fatalf("Configure(ignore) error = %v", err)
	}

	want := []string{"check_b", "check_d"}
	if got := names(selected); !reflect.DeepEqual(got, want) {
		t.Fatalf("select = %v, want %v", got, want)
	}
	if got := names(ignored); !reflect.DeepEqual(got, want) {
		t.Fatalf("ignore = %v, want %v", got, want)
	}
}

func TestConfigureCriticalOverride(t *testing.T) {
	checks := sampleChecks()
	cfg := &Config{Critical: []string{"check_a"}, Skip: []string{"check_d"}}

	got, err := Configure(checks, Options{Config: cfg, ImportanceThreshold: message.Critical})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	if want := []string{"check_a", "check_c"}; !reflect.DeepEqual(names(got), want) {
		t.Fatalf("Configure() = %v, want %v", names(got), want)
	}
	if got[0].Importance() != message.Critical {
		t.Fatalf("check_a importance = %v, want CRITICAL", got[0].Importance())
	}
	if checks[0].Importance() != message.BestPracticeSuggestion {
		t.Fatalf("original check_a importance changed to %v", checks[0].Importance())
	}
}

func TestConfigureThreshold(t *testing.T) {
	cases := []struct {
		threshold message.Importance
		want      []string
	}{
		{threshold: message.BestPracticeSuggestion, want: []string{"check_a", "check_b", "check_c", "check_d"}},
		{threshold: message.BestPracticeViolation, want: []string{"check_b", "check_c"}},
		{threshold: message.Critical, want: []string{"check_c"}},
	}

	for _, tc := range cases {
		t.Run(tc.threshold.String(), func(t *testing.T) {
			got, err := Configure(sampleChecks(), Options{ImportanceThreshold: tc.threshold})
			if err != nil {
				t.Fatalf("Configure() error = %v", err)
			}
			if !reflect.DeepEqual(names(got), tc.want) {
				t.Fatalf("Configure() = %v, want %v", names(got), tc.want)
			}
		})
	}
}

func TestConfigureUnknownNamesAreNotErrors(t *testing.T) {
	got, err := Configure(sampleChecks(), Options{Select: []string{"check_a", "check_zzz"}})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if !reflect.DeepEqual(names(got), []string{"check_a"}) {
		t.Fatalf("Configure() = %v", names(got))
	}
}

func TestParseImportanceThreshold(t *testing.T) {
	cases := []struct {
		in      string
		want    message.Importance
		wantErr bool
	}{
		{in: "CRITICAL", want: message.Critical},
		{in: "best_practice_violation", want: message.BestPracticeViolation},
		{in: "BEST_PRACTICE_SUGGESTION", want: message.BestPracticeSuggestion},
		{in: "INTERNAL_ERROR", wantErr: true},
		{in: "LOUD", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseImportanceThreshold(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseImportanceThreshold(%q) expected error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseImportanceThreshold(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseImportanceThreshold(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	known := []string{"check_subject_sex", "check_subject_species_form", "check_data_orientation"}
	got, ok := Suggest("check_subjct_sex", known)
	if !ok || got != "check_subject_sex" {
		t.Fatalf("Suggest() = %q, %v; want check_subject_sex", got, ok)
	}
	if _, ok := Suggest("zzzz", known); ok {
		t.Fatalf("Suggest(zzzz) found a match")
	}
}
