package checks

import (
	"fmt"
	"math"
	"slices"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

const negativeTimeAdvice = " It is recommended to align the `session_start_time` or `timestamps_reference_time` to be the earliest time value that occurs in the data, and shift all other signals accordingly."

func registerTimeSeries(reg *registry.Registry) {
	reg.MustRegister(message.BestPracticeViolation, "TimeSeries", "check_regular_timestamps", checkRegularTimestamps,
		registry.WithDescription("Regularly sampled series should use starting_time and rate."),
		registry.WithDefaults(registry.Params{"time_tolerance_decimals": 9, "gb_severity_threshold": 1}))
	reg.MustRegister(message.Critical, "TimeSeries", "check_data_orientation", checkDataOrientation,
		registry.WithDescription("Time should be the first and longest data axis."))
	reg.MustRegister(message.Critical, "TimeSeries", "check_timestamps_match_first_dimension", checkTimestampsMatchFirstDimension,
		registry.WithDescription("Timestamps must match the first data dimension."))
	reg.MustRegister(message.BestPracticeViolation, "TimeSeries", "check_timestamps_ascending", checkTimestampsAscending,
		registry.WithDescription("Timestamps should be ascending."),
		registry.WithDefaults(registry.Params{"nelems": defaultNElems}))
	reg.MustRegister(message.BestPracticeViolation, "TimeSeries", "check_timestamps_without_nans", checkTimestampsWithoutNaNs,
		registry.WithDescription("Timestamps should not contain NaN."),
		registry.WithDefaults(registry.Params{"nelems": defaultNElems}))
	reg.MustRegister(message.BestPracticeViolation, "TimeSeries", "check_missing_unit", checkMissingUnit,
		registry.WithDescription("Series should declare the unit of their data."))
	reg.MustRegister(message.BestPracticeViolation, "TimeSeries", "check_resolution", checkResolution,
		registry.WithDescription("Unknown resolution should be -1.0 or NaN."))
	reg.MustRegister(message.BestPracticeSuggestion, "TimeSeries", "check_timestamp_of_the_first_sample_is_not_negative", checkFirstSampleNotNegative,
		registry.WithDescription("The first sample time should not be negative."))
}

func checkRegularTimestamps(obj *nwb.Object, p registry.Params) ([]message.Message, error) {
	timestamps := timestampsOf(obj)
	if timestamps == nil || len(timestamps.Values) <= 2 {
		return nil, nil
	}
	values := timestamps.Values
	if !nwb.IsRegular(values, p.Int("time_tolerance_decimals", 9)) {
		return nil, nil
	}

	severity := message.SeverityLow
	if float64(timestamps.NBytes()) > p.Float("gb_severity_threshold", 1)*1e9 {
		severity = message.SeverityHigh
	}
	msg := message.New(fmt.Sprintf(
		"TimeSeries appears to have a constant sampling rate. Consider specifying starting_time=%s and rate=%s instead of timestamps.",
		formatFloat(values[0]), formatFloat(values[1]-values[0])))
	return []message.Message{msg.WithSeverity(severity)}, nil
}

func checkDataOrientation(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	data := obj.Dataset("data")
	if data == nil || len(data.Shape) < 2 {
		return nil, nil
	}
	if slices.Max(data.Shape[1:]) > data.Shape[0] {
		return found("Data may be in the wrong orientation. Time should be in the first dimension, and is usually the longest dimension. Here, another dimension is longer.")
	}
	return nil, nil
}

func checkTimestampsMatchFirstDimension(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	data := obj.Dataset("data")
	timestamps := timestampsOf(obj)
	if data == nil || timestamps == nil {
		return nil, nil
	}
	if data.Len() != timestamps.Len() {
		return found("The length of the first dimension of data does not match the length of timestamps.")
	}
	return nil, nil
}

func checkTimestampsAscending(obj *nwb.Object, p registry.Params) ([]message.Message, error) {
	timestamps := timestampsOf(obj)
	if timestamps == nil {
		return nil, nil
	}
	if !nwb.IsAscending(timestamps.Values, p.Int("nelems", defaultNElems)) {
		return found(fmt.Sprintf("%s timestamps are not ascending.", obj.Name))
	}
	return nil, nil
}

func checkTimestampsWithoutNaNs(obj *nwb.Object, p registry.Params) ([]message.Message, error) {
	timestamps := timestampsOf(obj)
	if timestamps == nil {
		return nil, nil
	}
	if slices.ContainsFunc(timestamps.Head(p.Int("nelems", defaultNElems)), math.IsNaN) {
		return found(fmt.Sprintf("%s timestamps contain NaN values.", obj.Name))
	}
	return nil, nil
}

func checkMissingUnit(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	if unit, _ := obj.String("unit"); unit == "" {
		return found("Missing text for attribute 'unit'. Please specify the scientific unit of the 'data'.")
	}
	return nil, nil
}

func checkResolution(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	resolution, ok := obj.Float("resolution")
	if !ok || resolution == -1.0 || math.IsNaN(resolution) {
		return nil, nil
	}
	if resolution <= 0 {
		return found(fmt.Sprintf("'resolution' should use -1.0 or NaN for unknown instead of %s.", formatFloat(resolution)))
	}
	return nil, nil
}

func checkFirstSampleNotNegative(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	first, ok := obj.Float("starting_time")
	if timestamps := timestampsOf(obj); timestamps != nil && len(timestamps.Values) > 0 {
		first, ok = timestamps.Values[0], true
	}
	if ok && first < 0 {
		return found("Timestamps should not be negative. This usually indicates a temporal misalignment of the data." + negativeTimeAdvice)
	}
	return nil, nil
}
