package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	content := `# inspector defaults
config: checks.yaml
levels: [importance, file_path]
reverse: [false, true]
select:
  - check_subject_exists
  - " check_data_orientation "
threshold: BEST_PRACTICE_VIOLATION
output: JSON
fail_on: CRITICAL
n_jobs: -1
skip_validate: true
detailed: false
kafka_brokers: kafka-a:9092,kafka-b:9092
kafka_topic: nwb-findings
auth_mechanism: SCRAM-SHA-512
timeout: 30s
`
	mustWrite(t, path, content)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.CheckConfig != filepath.Join(dir, "checks.yaml") {
		t.Fatalf("config = %q, want relative to defaults file", cfg.CheckConfig)
	}
	if !reflect.DeepEqual(cfg.Levels, []string{"importance", "file_path"}) {
		t.Fatalf("levels = %#v", cfg.Levels)
	}
	if !reflect.DeepEqual(cfg.Reverse, []bool{false, true}) {
		t.Fatalf("reverse = %#v", cfg.Reverse)
	}
	if !reflect.DeepEqual(cfg.Select, []string{"check_subject_exists", "check_data_orientation"}) {
		t.Fatalf("select = %#v", cfg.Select)
	}
	if cfg.Threshold != "BEST_PRACTICE_VIOLATION" || cfg.FailOn != "CRITICAL" {
		t.Fatalf("threshold/fail_on = %q/%q", cfg.Threshold, cfg.FailOn)
	}
	if cfg.Output != "json" {
		t.Fatalf("output = %q", cfg.Output)
	}
	if cfg.NJobs == nil || *cfg.NJobs != -1 {
		t.Fatalf("n_jobs = %v", cfg.NJobs)
	}
	if cfg.SkipValidate == nil || !*cfg.SkipValidate {
		t.Fatalf("skip_validate = %v", cfg.SkipValidate)
	}
	if cfg.Detailed == nil || *cfg.Detailed {
		t.Fatalf("detailed = %v", cfg.Detailed)
	}
	if cfg.ProgressBar != nil {
		t.Fatalf("progress_bar = %v, want unset", cfg.ProgressBar)
	}
	if cfg.KafkaBrokers != "kafka-a:9092,kafka-b:9092" || cfg.KafkaTopic != "nwb-findings" || cfg.AuthMech != "SCRAM-SHA-512" {
		t.Fatalf("kafka = %q %q %q", cfg.KafkaBrokers, cfg.KafkaTopic, cfg.AuthMech)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.Timeout)
	}
}

func TestLoadFromPath_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	mustWrite(t, path, "# nothing yet\n")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Output != "" || cfg.NJobs != nil || len(cfg.Levels) != 0 {
		t.Fatalf("LoadFromPath() = %+v, want zero config", cfg)
	}
}

// inDirs runs the test from cwd with home as the home directory.
func inDirs(t *testing.T, cwd, home string) {
	t.Helper()
	t.Chdir(cwd)
	t.Setenv("HOME", home)
}

func TestLoadDiscovery(t *testing.T) {
	cases := []struct {
		name       string
		cwdFile    string
		homeFile   string
		wantFrom   string
		wantOutput string
	}{
		{name: "cwd wins", cwdFile: DefaultFileName, homeFile: DefaultFileName, wantFrom: "cwd", wantOutput: "sarif"},
		{name: "home fallback", homeFile: DefaultFileName, wantFrom: "home", wantOutput: "json"},
		{name: "alternate name", cwdFile: alternateName, wantFrom: "cwd", wantOutput: "sarif"},
		{name: "none"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dirs := map[string]string{"cwd": t.TempDir(), "home": t.TempDir()}
			if tc.cwdFile != "" {
				mustWrite(t, filepath.Join(dirs["cwd"], tc.cwdFile), "output: sarif\n")
			}
			if tc.homeFile != "" {
				mustWrite(t, filepath.Join(dirs["home"], tc.homeFile), "output: json\n")
			}
			inDirs(t, dirs["cwd"], dirs["home"])

			cfg, path, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if tc.wantFrom == "" {
				if cfg != nil || path != "" {
					t.Fatalf("Load() = (%v, %q), want (nil, \"\")", cfg, path)
				}
				return
			}
			if cfg == nil {
				t.Fatalf("Load() cfg is nil")
			}
			if !samePath(filepath.Dir(path), dirs[tc.wantFrom]) {
				t.Fatalf("loaded path = %q, want a file in %s", path, tc.wantFrom)
			}
			if cfg.Output != tc.wantOutput {
				t.Fatalf("output = %q, want %q", cfg.Output, tc.wantOutput)
			}
		})
	}
}

func TestLoadMalformedStopsDiscovery(t *testing.T) {
	cwd, home := t.TempDir(), t.TempDir()
	mustWrite(t, filepath.Join(cwd, DefaultFileName), "output: [\n")
	mustWrite(t, filepath.Join(home, DefaultFileName), "output: json\n")
	inDirs(t, cwd, home)

	if _, _, err := Load(); err == nil {
		t.Fatalf("Load() expected parse error from the cwd file")
	}
}

func TestLoadFromPath_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "unknown: value\n"},
		{name: "bad timeout", content: "timeout: soon\n"},
		{name: "bad output", content: "output: xml\n"},
		{name: "zero jobs", content: "n_jobs: 0\n"},
		{name: "levels not a list", content: "levels: {a: b}\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), DefaultFileName)
			mustWrite(t, path, tc.content)
			if _, err := LoadFromPath(path); err == nil {
				t.Fatalf("LoadFromPath(%q) expected error", tc.content)
			}
		})
	}

	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadFromPath(missing) error = %v, want os.ErrNotExist", err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func samePath(left, right string) bool {
	leftResolved, leftErr := filepath.EvalSymlinks(left)
	rightResolved, rightErr := filepath.EvalSymlinks(right)
	if leftErr == nil && rightErr == nil {
		return leftResolved == rightResolved
	}

	return filepath.Clean(left) == filepath.Clean(right)
}
