package reporter

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/version"
)

const bannerWidth = 50

// DefaultLevels is the grouping used when none is given.
var DefaultLevels = []string{LevelFilePath, LevelImportance}

// Header describes the environment a report was produced in.
type Header struct {
	Timestamp           string `json:"Timestamp"`
	Platform            string `json:"Platform"`
	NWBInspectorVersion string `json:"NWBInspector_version"`
}

// NewHeader builds a report header stamped with now.
func NewHeader(now time.Time) Header {
	return Header{
		Timestamp:           formatTimestamp(now),
		Platform:            runtime.GOOS + "-" + runtime.GOARCH,
		NWBInspectorVersion: version.Version,
	}
}

// formatTimestamp prints t as "YYYY-MM-DD HH:MM:SS[.ffffff]+hh:mm".
func formatTimestamp(t time.Time) string {
	if t.Nanosecond()/1000 != 0 {
		return t.Format("2006-01-02 15:04:05.000000-07:00")
	}
	return t.Format("2006-01-02 15:04:05-07:00")
}

// FormatOptions controls the text report layout.
type FormatOptions struct {
	Levels         []string
	Reverse        []bool
	Detailed       bool
	Now            func() time.Time
	Indent         string
	SectionHeaders []string
	// Color highlights importance names; only meaningful on terminals.
	Color bool
}

func (o FormatOptions) withDefaults() FormatOptions {
	if len(o.Levels) == 0 {
		o.Levels = DefaultLevels
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Indent == "" {
		o.Indent = "  "
	}
	if len(o.SectionHeaders) == 0 {
		o.SectionHeaders = []string{"=", "-", "~"}
	}
	return o
}

// MessageFormatter renders organized messages as numbered report lines.
type MessageFormatter struct {
	opts     FormatOptions
	messages []message.Message
	groups   []*Group
	levels   []string
	counter  int
	lines    []string
}

// NewMessageFormatter organizes messages for rendering.
func NewMessageFormatter(messages []message.Message, opts FormatOptions) (*MessageFormatter, error) {
	opts = opts.withDefaults()
	groups, err := Organize(messages, opts.Levels, opts.Reverse)
	if err != nil {
		return nil, err
	}
	return &MessageFormatter{
		opts:     opts,
		messages: messages,
		groups:   groups,
		levels:   opts.Levels,
	}, nil
}

// FormatMessages renders a report for messages.
func FormatMessages(messages []message.Message, opts FormatOptions) ([]string, error) {
	f, err := NewMessageFormatter(messages, opts)
	if err != nil {
		return nil, err
	}
	return f.Format(), nil
}

// Format returns the report lines: the summary banner then the section tree.
func (f *MessageFormatter) Format() []string {
	f.counter = 0
	f.lines = nil

	header := NewHeader(f.opts.Now())
	banner := strings.Repeat("*", bannerWidth)
	files := lo.Uniq(lo.Map(f.messages, func(m message.Message, _ int) string { return m.FilePath }))

	f.lines = append(f.lines,
		banner,
		"NWBInspector Report Summary",
		"",
		"Timestamp: "+header.Timestamp,
		"Platform: "+header.Platform,
		"NWBInspector version: "+header.NWBInspectorVersion,
		"",
		fmt.Sprintf("Found %d issues over %d files:", len(f.messages), len(files)),
	)
	counts := message.CountByImportance(f.messages)
	for _, imp := range message.Importances() {
		if counts[imp] == 0 {
			continue
		}
		f.lines = append(f.lines, fmt.Sprintf("%8d - %s", counts[imp], f.importanceName(imp.String())))
	}
	f.lines = append(f.lines, banner, "", "")

	f.addSection(f.groups, f.levels, nil)
	return f.lines
}

func (f *MessageFormatter) addSection(groups []*Group, levels []string, counters []int) {
	if len(levels) > 1 {
		for i, group := range groups {
			local := append(slices.Clone(counters), i)
			prefix := joinCounters(local) + f.opts.Indent
			underline := strings.Repeat(f.sectionHeader(len(local)-1), len(prefix)+len(group.Key))
			f.lines = append(f.lines, prefix+f.displayKey(group), underline, "")
			f.addSection(group.Groups, levels[1:], local)
		}
		return
	}

	if levels[0] == LevelFilePath && !f.opts.Detailed {
		f.addCollapsed(groups, counters)
		return
	}
	for _, group := range groups {
		for _, msg := range group.Messages {
			f.addMessage(counters, f.displayKey(group), msg)
		}
	}
}

// addCollapsed merges messages that differ only by file path.
func (f *MessageFormatter) addCollapsed(groups []*Group, counters []int) {
	type bin struct {
		first message.Message
		count int
	}
	var order []message.Message
	bins := make(map[message.Message]*bin)
	for _, group := range groups {
		for _, msg := range group.Messages {
			key := msg
			key.FilePath = ""
			key.Severity = message.SeverityUnset
			if b, ok := bins[key]; ok {
				b.count++
				continue
			}
			bins[key] = &bin{first: msg, count: 1}
			order = append(order, key)
		}
	}

	for _, key := range order {
		b := bins[key]
		label := b.first.FilePath
		if b.count > 1 {
			plural := ""
			if b.count > 2 {
				plural = "s"
			}
			label += fmt.Sprintf(" and %d other file%s", b.count-1, plural)
		}
		f.addMessage(counters, label, b.first)
	}
}

func (f *MessageFormatter) addMessage(counters []int, label string, msg message.Message) {
	number := strconv.Itoa(f.counter)
	if len(counters) > 0 {
		number = joinCounters(counters) + "." + number
	}
	increment := number + f.opts.Indent
	f.lines = append(f.lines,
		increment+label+": "+f.messageHeader(msg),
		strings.Repeat(" ", len(increment))+"  Message: "+msg.Message,
		"",
	)
	f.counter++
}

// messageHeader describes msg by the attributes not already used as levels.
func (f *MessageFormatter) messageHeader(msg message.Message) string {
	free := func(level string) bool { return !slices.Contains(f.levels, level) }

	var b strings.Builder
	if free(LevelFilePath) {
		b.WriteString(msg.FilePath + " - ")
	}
	if free(LevelCheckFunctionName) {
		b.WriteString(msg.CheckFunctionName + " - ")
	}
	if free(LevelImportance) {
		b.WriteString("Importance level '" + msg.Importance.String() + "' - ")
	}
	b.WriteString("'" + msg.ObjectType + "' object ")
	if free(LevelLocation) && msg.Location != "" {
		b.WriteString("at location '" + msg.Location + "'")
	} else {
		b.WriteString("with name '" + msg.ObjectName + "'")
	}
	return strings.TrimRight(b.String(), " -")
}

func (f *MessageFormatter) displayKey(g *Group) string {
	if g.Level == LevelImportance {
		return f.importanceName(g.Key)
	}
	return g.Key
}

func (f *MessageFormatter) sectionHeader(depth int) string {
	if depth < len(f.opts.SectionHeaders) {
		return f.opts.SectionHeaders[depth]
	}
	return f.opts.SectionHeaders[len(f.opts.SectionHeaders)-1]
}

func (f *MessageFormatter) importanceName(name string) string {
	if !f.opts.Color {
		return name
	}
	imp, err := message.ParseImportance(name)
	if err != nil {
		return name
	}
	return importanceColor(imp).Sprint(name)
}

func importanceColor(imp message.Importance) *color.Color {
	switch imp {
	case message.InternalError, message.SchemaValidationFailure:
		return color.New(color.FgMagenta, color.Bold)
	case message.Critical:
		return color.New(color.FgRed, color.Bold)
	case message.BestPracticeViolation:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func joinCounters(counters []int) string {
	parts := make([]string, len(counters))
	for i, c := range counters {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}
