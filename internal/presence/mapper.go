package presence

import (
	"math"
)

// Profile describes how a smoothed breath amplitude maps onto one visual
// profile. Profiles are immutable once loaded.
type Profile struct {
	Name               string
	MinSize            float64
	MaxSize            float64
	MultiplierMin      float64
	MultiplierMax      float64
	ImmersionThreshold float64
	MaxImmersion       float64
	SmoothingFactor    float64
}

// Output is the bounded rendering input derived from one breath sample.
// Smoothed carries the updated amplitude the caller feeds back on the next
// sample; the mapping itself holds no state.
type Output struct {
	Size           float64
	ImmersionLevel float64
	Smoothed       float64
}

// Map converts a raw breath amplitude into a presence size and immersion
// level for the given profile.
//
// Raw amplitudes outside [0,1] are clamped; NaN is replaced by the previous
// smoothed value so a misbehaving sensor can never reach the renderer. The
// multiplier is the user's size preference, clamped to the profile's allowed
// range, and ceiling is the hard size bound shared by every profile.
func Map(profile Profile, raw, prevSmoothed, multiplier, ceiling float64) Output {
	prevSmoothed = clamp01(sanitize(prevSmoothed, 0))
	raw = clamp01(sanitize(raw, prevSmoothed))

	k := profile.SmoothingFactor
	if math.IsNaN(k) || k < 0 {
		k = 0
	} else if k >= 1 {
		k = 0
	}
	smoothed := prevSmoothed*k + raw*(1-k)

	multiplier = sanitize(multiplier, 1)
	multiplier = clamp(multiplier, profile.MultiplierMin, profile.MultiplierMax)

	maxSize := profile.MaxSize * multiplier
	if maxSize < profile.MinSize {
		maxSize = profile.MinSize
	}

	size := profile.MinSize + (maxSize-profile.MinSize)*smoothed
	if ceiling > 0 && size > ceiling {
		size = ceiling
	}

	return Output{
		Size:           size,
		ImmersionLevel: immersionLevel(size, profile),
		Smoothed:       smoothed,
	}
}

// immersionLevel blends linearly from zero at the threshold to one at
// MaxImmersion. Continuous and monotonic in size.
func immersionLevel(size float64, profile Profile) float64 {
	span := profile.MaxImmersion - profile.ImmersionThreshold
	if span <= 0 {
		if size >= profile.ImmersionThreshold {
			return 1
		}
		return 0
	}
	return clamp01((size - profile.ImmersionThreshold) / span)
}

func sanitize(value, fallback float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}
	return value
}

func clamp01(value float64) float64 {
	return clamp(value, 0, 1)
}

func clamp(value, low, high float64) float64 {
	if high < low {
		return low
	}
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
