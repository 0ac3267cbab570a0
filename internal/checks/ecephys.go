package checks

import (
	"slices"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

func registerEcephys(reg *registry.Registry) {
	reg.MustRegister(message.BestPracticeViolation, "Units", "check_negative_spike_times", checkNegativeSpikeTimes,
		registry.WithDescription("Spike times should not be negative."))
	reg.MustRegister(message.Critical, "ElectricalSeries", "check_electrical_series_dims", checkElectricalSeriesDims,
		registry.WithDescription("The second data dimension must match the electrodes."))
}

func checkNegativeSpikeTimes(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	spikeTimes := column(obj, "spike_times")
	if spikeTimes == nil {
		return nil, nil
	}
	if slices.ContainsFunc(spikeTimes.Values, func(v float64) bool { return v < 0 }) {
		return found("This Units table contains negative spike times. Time should generally be aligned to the earliest time reference in the NWBFile.")
	}
	return nil, nil
}

func checkElectricalSeriesDims(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	data := obj.Dataset("data")
	electrodes := obj.Ref("electrodes")
	if data == nil || electrodes == nil || len(data.Shape) != 2 {
		return nil, nil
	}

	region := electrodes.Dataset("data")
	if region == nil {
		return nil, nil
	}
	n := region.Len()
	if data.Shape[1] == n {
		return nil, nil
	}
	if data.Shape[0] == n {
		return found("The second dimension of data does not match the length of electrodes, but instead the first does. Data is oriented incorrectly and should be transposed.")
	}
	return found("The second dimension of data does not match the length of electrodes. Your data may be transposed.")
}
