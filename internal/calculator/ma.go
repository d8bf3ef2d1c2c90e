package calculator

import (
	"errors"
	"math"
)

var (
	// ErrInvalidPeriod is returned for non-positive periods or windows.
	ErrInvalidPeriod = errors.New("period must be positive")
	// ErrInsufficientData is returned when the series is shorter than required.
	ErrInsufficientData = errors.New("not enough data")
	// ErrZeroDeviation is returned when a denominator (stdev, path length) is zero.
	ErrZeroDeviation = errors.New("zero deviation")
)

const epsilon = 1e-12

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	return Mean(prices[len(prices)-period:]), nil
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	vs := 0.0
	for _, v := range values {
		d := v - m
		vs += d * d
	}
	return math.Sqrt(vs / float64(len(values)))
}

// trailing returns the last window values. window <= 0 selects the whole series.
func trailing(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		window = len(values)
	}
	if window == 0 || len(values) < window {
		return nil, ErrInsufficientData
	}
	return values[len(values)-window:], nil
}

// negligible reports whether a deviation is zero relative to the price scale.
func negligible(dev, scale float64) bool {
	return dev <= epsilon*math.Max(1, math.Abs(scale))
}
