package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/version"
)

const (
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	sarifVersion = "2.1.0"

	sarifToolName           = "NWBInspector"
	sarifToolInformationURI = "https://github.com/NeurodataWithoutBorders/nwbinspector"
)

// SARIFReporter writes inspection messages in SARIF 2.1.0 format.
type SARIFReporter struct {
	writer io.Writer
	pretty bool
}

// NewSARIFReporter creates a SARIF reporter.
func NewSARIFReporter(w io.Writer, pretty bool) *SARIFReporter {
	return &SARIFReporter{writer: w, pretty: pretty}
}

// Generate emits one result per message and one rule per check.
func (r *SARIFReporter) Generate(ctx context.Context, messages []message.Message) error {
	return r.writeReport(sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs:    []sarifRun{buildSARIFRun(messages)},
	})
}

func (r *SARIFReporter) writeReport(report sarifReport) error {
	var (
		data []byte
		err  error
	)

	if r.pretty {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return err
	}

	if _, err := r.writer.Write(data); err != nil {
		return err
	}
	_, err = r.writer.Write([]byte("\n"))
	return err
}

func buildSARIFRun(messages []message.Message) sarifRun {
	rules := make(map[string]sarifRule)
	results := make([]sarifResult, 0, len(messages))

	for _, msg := range messages {
		ruleID := msg.CheckFunctionName
		if strings.TrimSpace(ruleID) == "" {
			ruleID = "unknown"
		}
		level := sarifLevel(msg.Importance)

		// Highest importance seen for a check becomes the rule default.
		if rule, ok := rules[ruleID]; !ok || levelRank(level) > levelRank(rule.DefaultConfiguration.Level) {
			rules[ruleID] = buildCheckRule(ruleID, level)
		}

		entry := sarifResult{
			RuleID:  ruleID,
			Level:   level,
			Message: sarifMessage{Text: msg.Message},
			PartialFingerprints: map[string]string{
				"checkObject": fmt.Sprintf("%s|%s|%s|%s", ruleID, msg.FilePath, msg.Location, msg.ObjectName),
			},
			Properties: map[string]any{
				"importance":  msg.Importance.String(),
				"object_type": msg.ObjectType,
				"object_name": msg.ObjectName,
			},
		}
		if location, ok := sarifLocationFromMessage(msg); ok {
			entry.Locations = []sarifLocation{location}
		}
		results = append(results, entry)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RuleID != results[j].RuleID {
			return results[i].RuleID < results[j].RuleID
		}
		return results[i].PartialFingerprints["checkObject"] < results[j].PartialFingerprints["checkObject"]
	})

	ruleList := make([]sarifRule, 0, len(rules))
	for _, rule := range rules {
		ruleList = append(ruleList, rule)
	}
	sort.Slice(ruleList, func(i, j int) bool {
		return ruleList[i].ID < ruleList[j].ID
	})

	return sarifRun{
		Tool: sarifTool{
			Driver: sarifDriver{
				Name:           sarifToolName,
				Version:        version.Version,
				InformationURI: sarifToolInformationURI,
				Rules:          ruleList,
			},
		},
		Results: results,
	}
}

func sarifLevel(imp message.Importance) string {
	switch {
	case imp >= message.Critical:
		return "error"
	case imp == message.BestPracticeViolation:
		return "warning"
	default:
		return "note"
	}
}

func levelRank(level string) int {
	switch level {
	case "error":
		return 2
	case "warning":
		return 1
	default:
		return 0
	}
}

func buildCheckRule(id, level string) sarifRule {
	return sarifRule{
		ID:   id,
		Name: id,
		ShortDescription: &sarifMessage{
			Text: strings.ReplaceAll(strings.TrimPrefix(id, "check_"), "_", " "),
		},
		DefaultConfiguration: &sarifReportingConfiguration{
			Level: level,
		},
		Properties: map[string]any{
			"tags": []string{"nwb", "best-practice"},
		},
	}
}

func sarifLocationFromMessage(msg message.Message) (sarifLocation, bool) {
	path := strings.TrimSpace(msg.FilePath)
	if path == "" && msg.Location == "" {
		return sarifLocation{}, false
	}

	var location sarifLocation
	if path != "" {
		location.PhysicalLocation = &sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: pathToFileURI(path)},
		}
	}
	if msg.Location != "" {
		location.LogicalLocations = []sarifLogicalLocation{{
			FullyQualifiedName: msg.Location,
			Kind:               "object",
		}}
	}
	return location, true
}

func pathToFileURI(path string) string {
	cleaned := filepath.Clean(path)
	if !filepath.IsAbs(cleaned) {
		return filepath.ToSlash(cleaned)
	}
	slashPath := filepath.ToSlash(cleaned)
	if !strings.HasPrefix(slashPath, "/") {
		slashPath = "/" + slashPath
	}
	return (&url.URL{Scheme: "file", Path: slashPath}).String()
}

type sarifReport struct {
	Schema  string     `json:"$schema,omitempty"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID                   string                       `json:"id"`
	Name                 string                       `json:"name,omitempty"`
	ShortDescription     *sarifMessage                `json:"shortDescription,omitempty"`
	DefaultConfiguration *sarifReportingConfiguration `json:"defaultConfiguration,omitempty"`
	Properties           map[string]any               `json:"properties,omitempty"`
}

type sarifReportingConfiguration struct {
	Level string `json:"level,omitempty"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level,omitempty"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation *sarifPhysicalLocation `json:"physicalLocation,omitempty"`
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifLogicalLocation struct {
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind,omitempty"`
}
