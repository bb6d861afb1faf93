// Package presence converts noisy breath-amplitude samples into bounded
// visual parameters.
//
// Map is a pure function: exponential smoothing, linear size interpolation
// within a profile's range, and an immersion level blended from the size.
// Out-of-range and NaN sensor readings are clamped or replaced at this
// boundary so rendering input is always finite and bounded.
package presence
