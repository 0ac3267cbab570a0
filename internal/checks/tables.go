package checks

import (
	"fmt"
	"strings"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

func registerTables(reg *registry.Registry) {
	reg.MustRegister(message.BestPracticeViolation, "DynamicTable", "check_empty_table", checkEmptyTable,
		registry.WithDescription("Tables should contain rows."))
	reg.MustRegister(message.Critical, "DynamicTable", "check_ids_unique", checkIDsUnique,
		registry.WithDescription("Table ids must be unique."),
		registry.WithDefaults(registry.Params{"nelems": defaultNElems}))
	reg.MustRegister(message.BestPracticeSuggestion, "DynamicTable", "check_single_row", checkSingleRow,
		registry.WithDescription("Single-row tables may be better represented by another type."))
	reg.MustRegister(message.BestPracticeViolation, "TimeIntervals", "check_time_intervals_stop_after_start", checkTimeIntervalsStopAfterStart,
		registry.WithDescription("Interval stop times should follow their start times."),
		registry.WithDefaults(registry.Params{"nelems": defaultNElems}))
	reg.MustRegister(message.BestPracticeSuggestion, "DynamicTable", "check_table_time_columns_are_not_negative", checkTableTimeColumnsNotNegative,
		registry.WithDescription("Time columns should not start negative."))
}

func checkEmptyTable(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	ids := obj.Dataset("id")
	if ids != nil && ids.Len() == 0 {
		return found("This table has no data added to it.")
	}
	return nil, nil
}

func checkIDsUnique(obj *nwb.Object, p registry.Params) ([]message.Message, error) {
	ids := obj.Dataset("id")
	if ids == nil {
		return nil, nil
	}
	seen := make(map[float64]struct{})
	for _, id := range ids.Head(p.Int("nelems", defaultNElems)) {
		if _, dup := seen[id]; dup {
			return found("This table has ids that are not unique.")
		}
		seen[id] = struct{}{}
	}
	return nil, nil
}

func checkSingleRow(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if obj.Is("Units") || obj.Name == "electrodes" {
		return nil, nil
	}
	if ids := obj.Dataset("id"); ids != nil && ids.Len() == 1 {
		return found("This table has only a single row; it may be better represented by another data type.")
	}
	return nil, nil
}

func checkTimeIntervalsStopAfterStart(obj *nwb.Object, p registry.Params) ([]message.Message, error) {
	start, stop := column(obj, "start_time"), column(obj, "stop_time")
	if start == nil || stop == nil {
		return nil, nil
	}
	nelems := p.Int("nelems", defaultNElems)
	starts, stops := start.Head(nelems), stop.Head(nelems)
	for i := range min(len(starts), len(stops)) {
		if stops[i]-starts[i] < 0 {
			return found("stop_times should be greater than start_times. Make sure the stop times are with respect to the session start time.")
		}
	}
	return nil, nil
}

func checkTableTimeColumnsNotNegative(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	var out []message.Message
	for _, name := range columnNames(obj) {
		if !strings.HasSuffix(name, "_time") {
			continue
		}
		values := column(obj, name).Head(1)
		if len(values) > 0 && values[0] < 0 {
			out = append(out, message.New(fmt.Sprintf("Timestamps in column %s should not be negative.", name)+negativeTimeAdvice))
		}
	}
	return out, nil
}
