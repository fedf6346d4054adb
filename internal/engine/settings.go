package engine

import "math"

// Settings tunes the editing behavior. Lengths ending in Px are surface
// pixels; everything else is board units or radians.
type Settings struct {
	GridSize    float64
	BoardWidth  float64
	BoardHeight float64

	ZoomMin float64
	ZoomMax float64

	SnapTolerancePx float64

	RotationSnaps         []float64 // radians
	RotationSnapTolerance float64   // radians

	KeepRatio         bool
	KeepRatioInverted bool
	CenteredScaling   bool
	Padding           float64

	AnchorSizePx   float64
	RotateOffsetPx float64

	HistoryLimit int
}

// DefaultSettings returns the stock editor configuration: a 20-unit grid,
// zoom in [0.5, 5], 5px grid tolerance and rotation snapping to multiples of
// 45 degrees within 5 degrees.
func DefaultSettings() Settings {
	snaps := make([]float64, 8)
	for i := range snaps {
		snaps[i] = float64(i) * math.Pi / 4
	}
	return Settings{
		GridSize:              20,
		BoardWidth:            1280,
		BoardHeight:           720,
		ZoomMin:               0.5,
		ZoomMax:               5.0,
		SnapTolerancePx:       5,
		RotationSnaps:         snaps,
		RotationSnapTolerance: 5 * math.Pi / 180,
		AnchorSizePx:          10,
		RotateOffsetPx:        30,
		HistoryLimit:          100,
	}
}

// Degrees converts a list of degree values to radians.
func Degrees(values ...float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * math.Pi / 180
	}
	return out
}
