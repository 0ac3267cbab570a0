package reporter

import (
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("", -5*3600))
}

func banner(summary ...string) []string {
	stars := strings.Repeat("*", 50)
	lines := []string{
		stars,
		"NWBInspector Report Summary",
		"",
		"Timestamp: 2024-01-02 03:04:05-05:00",
		"Platform: " + runtime.GOOS + "-" + runtime.GOARCH,
		"NWBInspector version: dev",
		"",
	}
	lines = append(lines, summary...)
	return append(lines, stars, "", "")
}

func TestFormatMessagesFilePathImportance(t *testing.T) {
	got, err := FormatMessages(sampleMessages(), FormatOptions{Now: fixedNow})
	if err != nil {
		t.Fatalf("FormatMessages() error = %v", err)
	}

	want := append(banner(
		"Found 3 issues over 2 files:",
		"       2 - CRITICAL",
		"       1 - BEST_PRACTICE_SUGGESTION",
	),
		"0  a.nwb",
		"========",
		"",
		"0.0  CRITICAL: check_x - 'TimeSeries' object at location '/acquisition/ts'",
		"       Message: bad",
		"",
		"0.1  BEST_PRACTICE_SUGGESTION: check_y - 'NWBFile' object at location '/'",
		"       Message: meh",
		"",
		"1  b.nwb",
		"========",
		"",
		"1.2  CRITICAL: check_x - 'TimeSeries' object at location '/acquisition/ts'",
		"       Message: bad",
		"",
	)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FormatMessages() =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestFormatMessagesCollapsesFiles(t *testing.T) {
	cases := []struct {
		name     string
		detailed bool
		want     []string
	}{
		{
			name: "collapsed",
			want: []string{
				"0  CRITICAL",
				"===========",
				"",
				"0.0  a.nwb and 1 other file: check_x - 'TimeSeries' object at location '/acquisition/ts'",
				"       Message: bad",
				"",
				"1  BEST_PRACTICE_SUGGESTION",
				"===========================",
				"",
				"1.1  a.nwb: check_y - 'NWBFile' object at location '/'",
				"       Message: meh",
				"",
			},
		},
		{
			name:     "detailed",
			detailed: true,
			want: []string{
				"0  CRITICAL",
				"===========",
				"",
				"0.0  a.nwb: check_x - 'TimeSeries' object at location '/acquisition/ts'",
				"       Message: bad",
				"",
				"0.1  b.nwb: check_x - 'TimeSeries' object at location '/acquisition/ts'",
				"       Message: bad",
				"",
				"1  BEST_PRACTICE_SUGGESTION",
				"===========================",
				"",
				"1.2  a.nwb: check_y - 'NWBFile' object at location '/'",
				"       Message: meh",
				"",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FormatMessages(sampleMessages(), FormatOptions{
				Levels:   []string{LevelImportance, LevelFilePath},
				Detailed: tc.detailed,
				Now:      fixedNow,
			})
			if err != nil {
				t.Fatalf("FormatMessages() error = %v", err)
			}
			body := got[len(banner("", "", "")):]
			if !reflect.DeepEqual(body, tc.want) {
				t.Fatalf("body =\n%s\nwant\n%s", strings.Join(body, "\n"), strings.Join(tc.want, "\n"))
			}
		})
	}
}

func TestFormatMessagesSingleLevel(t *testing.T) {
	msgs := []message.Message{{
		Message:           "missing",
		Importance:        message.BestPracticeViolation,
		CheckFunctionName: "check_z",
		ObjectType:        "Subject",
		ObjectName:        "subject",
		FilePath:          "c.nwb",
	}}

	got, err := FormatMessages(msgs, FormatOptions{Levels: []string{LevelCheckFunctionName}, Now: fixedNow})
	if err != nil {
		t.Fatalf("FormatMessages() error = %v", err)
	}
	body := got[len(got)-3:]
	want := []string{
		"0  check_z: c.nwb - Importance level 'BEST_PRACTICE_VIOLATION' - 'Subject' object with name 'subject'",
		"     Message: missing",
		"",
	}
	if !reflect.DeepEqual(body, want) {
		t.Fatalf("body = %q, want %q", body, want)
	}
}

func TestFormatMessagesInvalidLevel(t *testing.T) {
	if _, err := FormatMessages(sampleMessages(), FormatOptions{Levels: []string{"severity"}}); err == nil {
		t.Fatalf("FormatMessages() expected error for severity level")
	}
}

func TestFormatTimestamp(t *testing.T) {
	zone := time.FixedZone("", 2*3600)
	cases := []struct {
		in   time.Time
		want string
	}{
		{in: time.Date(2023, 5, 6, 7, 8, 9, 0, zone), want: "2023-05-06 07:08:09+02:00"},
		{in: time.Date(2023, 5, 6, 7, 8, 9, 123456000, zone), want: "2023-05-06 07:08:09.123456+02:00"},
	}
	for _, tc := range cases {
		if got := formatTimestamp(tc.in); got != tc.want {
			t.Fatalf("formatTimestamp() = %q, want %q", got, tc.want)
		}
	}
}
