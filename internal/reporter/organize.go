package reporter

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/maruel/natural"
	"github.com/samber/lo"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
)

// ErrInvalidLevel is returned for grouping levels that are not message attributes
// or are not meaningful grouping keys.
var ErrInvalidLevel = errors.New("invalid organization level")

// Organization levels.
const (
	LevelFilePath          = "file_path"
	LevelImportance        = "importance"
	LevelCheckFunctionName = "check_function_name"
	LevelObjectType        = "object_type"
	LevelLocation          = "location"
)

// Levels lists every attribute messages can be grouped by.
func Levels() []string {
	return []string{LevelFilePath, LevelImportance, LevelCheckFunctionName, LevelObjectType, LevelLocation}
}

// Group is one node of an organized report. Inner groups hold Groups; groups
// on the last level hold Messages.
type Group struct {
	Level    string
	Key      string
	Groups   []*Group
	Messages []message.Message
}

// Organize partitions messages by each level in turn. reverse, if given, must
// match levels in length.
func Organize(messages []message.Message, levels []string, reverse []bool) ([]*Group, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("%w: at least one level is required", ErrInvalidLevel)
	}
	for _, level := range levels {
		if !slices.Contains(Levels(), level) {
			return nil, fmt.Errorf("%w %q: levels must be message attributes other than message, object_name and severity (one of %v)", ErrInvalidLevel, level, Levels())
		}
	}
	if len(reverse) == 0 {
		reverse = make([]bool, len(levels))
	}
	if len(reverse) != len(levels) {
		return nil, fmt.Errorf("%w: %d reverse flags given for %d levels", ErrInvalidLevel, len(reverse), len(levels))
	}
	return organize(messages, levels, reverse), nil
}

func organize(messages []message.Message, levels []string, reverse []bool) []*Group {
	level := levels[0]
	keys := sortedKeys(messages, level, reverse[0])

	groups := make([]*Group, 0, len(keys))
	for _, key := range keys {
		members := lo.Filter(messages, func(m message.Message, _ int) bool { return levelValue(m, level) == key })
		group := &Group{Level: level, Key: key}
		if len(levels) > 1 {
			group.Groups = organize(members, levels[1:], reverse[1:])
		} else {
			slices.SortStableFunc(members, func(a, b message.Message) int {
				return b.Severity.Rank() - a.Severity.Rank()
			})
			group.Messages = members
		}
		groups = append(groups, group)
	}
	return groups
}

func sortedKeys(messages []message.Message, level string, reverse bool) []string {
	if level == LevelImportance {
		present := lo.Uniq(lo.Map(messages, func(m message.Message, _ int) message.Importance { return m.Importance }))
		sort.Slice(present, func(i, j int) bool { return present[i] > present[j] })
		if reverse {
			slices.Reverse(present)
		}
		return lo.Map(present, func(imp message.Importance, _ int) string { return imp.String() })
	}

	keys := lo.Uniq(lo.Map(messages, func(m message.Message, _ int) string { return levelValue(m, level) }))
	sort.Sort(natural.StringSlice(keys))
	if reverse {
		slices.Reverse(keys)
	}
	return keys
}

func levelValue(m message.Message, level string) string {
	switch level {
	case LevelFilePath:
		return m.FilePath
	case LevelImportance:
		return m.Importance.String()
	case LevelCheckFunctionName:
		return m.CheckFunctionName
	case LevelObjectType:
		return m.ObjectType
	case LevelLocation:
		return m.Location
	default:
		return ""
	}
}

// Flatten returns the leaf messages in tree order.
func Flatten(groups []*Group) []message.Message {
	var out []message.Message
	for _, g := range groups {
		out = append(out, g.Messages...)
		out = append(out, Flatten(g.Groups)...)
	}
	return out
}
