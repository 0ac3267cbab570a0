package checks

import (
	"math"
	"slices"

	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/message"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/nwb"
	"github.com/NeurodataWithoutBorders/nwbinspector-sub000/internal/registry"
)

func registerBehavior(reg *registry.Registry) {
	reg.MustRegister(message.Critical, "SpatialSeries", "check_spatial_series_dims", checkSpatialSeriesDims,
		registry.WithDescription("SpatialSeries data should have at most three columns."))
	reg.MustRegister(message.BestPracticeViolation, "SpatialSeries", "check_spatial_series_radians_magnitude", checkSpatialSeriesRadiansMagnitude,
		registry.WithDescription("Angles in radians should lie within [-2pi, 2pi]."),
		registry.WithDefaults(registry.Params{"nelems": defaultNElems}))
}

func checkSpatialSeriesDims(obj *nwb.Object, _ registry.Params) ([]message.Message, error) {
	data := obj.Dataset("data")
	if data != nil && len(data.Shape) > 1 && data.Shape[1] > 3 {
		return found("SpatialSeries should have 1 column (x), 2 columns (x, y), or 3 columns (x, y, z).")
	}
	return nil, nil
}

func checkSpatialSeriesRadiansMagnitude(obj *nwb.Object, p registry.Params) ([]message.Message, error) {
	unit, _ := obj.String("unit")
	if unit != "radian" && unit != "radians" {
		return nil, nil
	}
	outOfRange := func(v float64) bool { return v > 2*math.Pi || v < -2*math.Pi }
	if slices.ContainsFunc(obj.Dataset("data").Head(p.Int("nelems", defaultNElems)), outOfRange) {
		return found("SpatialSeries with units of radians must have values between -2pi and 2pi.")
	}
	return nil, nil
}
