package engine

import "math"

// DefaultConvictionExponent is the convex weighting exponent used when the
// caller does not configure one.
const DefaultConvictionExponent = 2.0

// Normalize maps a raw conviction score onto the canonical [0,1] scale.
// The scale is an explicit parameter: upstream scorers have produced 1-10 and
// 1-100 scores at different times, and assuming a scale collapses everything
// above the assumed maximum to full conviction.
func Normalize(score, scaleMax float64) (float64, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, &InvalidScoreError{Score: score, ScaleMax: scaleMax, Reason: "score is not a finite number"}
	}
	if math.IsNaN(scaleMax) || scaleMax <= 0 {
		return 0, &InvalidScoreError{Score: score, ScaleMax: scaleMax, Reason: "scale max must be positive"}
	}
	if score < 0 {
		return 0, &InvalidScoreError{Score: score, ScaleMax: scaleMax, Reason: "score must not be negative"}
	}
	if score > scaleMax {
		return 0, &InvalidScoreError{Score: score, ScaleMax: scaleMax, Reason: "score exceeds its declared scale"}
	}

	normalized := score / scaleMax
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}
	return normalized, nil
}

// Weight converts a normalized conviction into an allocation weight using
// convex weighting: higher conviction receives disproportionately more
// capital. Monotonically increasing, Weight(0)=0, Weight(1)=1.
func Weight(normalized, exponent float64) float64 {
	if exponent <= 0 {
		exponent = DefaultConvictionExponent
	}
	if normalized <= 0 {
		return 0
	}
	if normalized >= 1 {
		return 1
	}
	return math.Pow(normalized, exponent)
}
