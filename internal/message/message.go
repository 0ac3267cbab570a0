package message

import (
	"fmt"
	"strings"
)

// Importance is the user-visible category of a finding.
type Importance int

const (
	BestPracticeSuggestion Importance = iota
	BestPracticeViolation
	Critical
	SchemaValidationFailure
	InternalError
)

var importanceNames = map[Importance]string{
	BestPracticeSuggestion:  "BEST_PRACTICE_SUGGESTION",
	BestPracticeViolation:   "BEST_PRACTICE_VIOLATION",
	Critical:                "CRITICAL",
	SchemaValidationFailure: "SCHEMA_VALIDATION_FAILURE",
	InternalError:           "INTERNAL_ERROR",
}

var importanceAliases = map[string]Importance{
	"PYNWB_VALIDATION": SchemaValidationFailure,
	"ERROR":            InternalError,
}

// Importances lists every level from most to least severe.
func Importances() []Importance {
	return []Importance{InternalError, SchemaValidationFailure, Critical, BestPracticeViolation, BestPracticeSuggestion}
}

// AssignableImportances lists the levels a check may declare, least severe first.
func AssignableImportances() []Importance {
	return []Importance{BestPracticeSuggestion, BestPracticeViolation, Critical}
}

func (i Importance) String() string {
	if name, ok := importanceNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Importance(%d)", int(i))
}

// Valid reports whether i is a known level.
func (i Importance) Valid() bool {
	_, ok := importanceNames[i]
	return ok
}

// Assignable reports whether a check author may declare i.
func (i Importance) Assignable() bool {
	return i >= BestPracticeSuggestion && i <= Critical
}

// ParseImportance resolves a level name, case-insensitively.
func ParseImportance(name string) (Importance, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	for imp, candidate := range importanceNames {
		if candidate == key {
			return imp, nil
		}
	}
	if imp, ok := importanceAliases[key]; ok {
		return imp, nil
	}
	return 0, fmt.Errorf("invalid importance %q", name)
}

func (i Importance) MarshalText() ([]byte, error) {
	if !i.Valid() {
		return nil, fmt.Errorf("invalid importance %d", int(i))
	}
	return []byte(i.String()), nil
}

func (i *Importance) UnmarshalText(text []byte) error {
	parsed, err := ParseImportance(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Severity orders findings of equal importance. It is never shown to users.
type Severity int

const (
	SeverityUnset Severity = iota
	SeverityLow
	SeverityHigh
)

var severityNames = map[Severity]string{
	SeverityUnset: "LOW",
	SeverityLow:   "LOW",
	SeverityHigh:  "HIGH",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Valid reports whether s is a known severity, unset included.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// Rank is the sort weight of s; unset ranks as low.
func (s Severity) Rank() int {
	if s == SeverityUnset {
		return int(SeverityLow)
	}
	return int(s)
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "", "LOW", "NO_SEVERITY":
		*s = SeverityLow
	case "HIGH":
		*s = SeverityHigh
	default:
		return fmt.Errorf("invalid severity %q", string(text))
	}
	return nil
}

// Message is one diagnostic finding about one object in one file.
type Message struct {
	Message           string     `json:"message"`
	Importance        Importance `json:"importance"`
	Severity          Severity   `json:"severity"`
	CheckFunctionName string     `json:"check_function_name"`
	ObjectType        string     `json:"object_type"`
	ObjectName        string     `json:"object_name"`
	Location          string     `json:"location"`
	FilePath          string     `json:"file_path"`
}

// New returns a message carrying only text, ready to be completed by the registry.
func New(text string) Message {
	return Message{Message: text}
}

// WithSeverity returns a copy of m with severity s.
func (m Message) WithSeverity(s Severity) Message {
	m.Severity = s
	return m
}

// CountByImportance tallies messages per level.
func CountByImportance(messages []Message) map[Importance]int {
	counts := make(map[Importance]int)
	for _, m := range messages {
		counts[m.Importance]++
	}
	return counts
}
