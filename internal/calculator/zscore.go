package calculator

import "math"

// CalculateZScore returns (last - mean(window)) / stdev(window).
// window <= 0 uses the whole series.
func CalculateZScore(prices []float64, window int) (float64, error) {
	w, err := trailing(prices, window)
	if err != nil {
		return 0, err
	}
	if len(w) < 2 {
		return 0, ErrInsufficientData
	}
	m := Mean(w)
	sd := StdDev(w)
	if negligible(sd, m) {
		return 0, ErrZeroDeviation
	}
	return (w[len(w)-1] - m) / sd, nil
}

// Bands are Bollinger-style bands around the window mean.
type Bands struct {
	Middle float64
	Upper  float64
	Lower  float64
}

// CalculateBands computes middle ± k·stdev over the trailing window.
func CalculateBands(prices []float64, window int, k float64) (Bands, error) {
	if window <= 0 {
		return Bands{}, ErrInvalidPeriod
	}
	w, err := trailing(prices, window)
	if err != nil {
		return Bands{}, err
	}
	m := Mean(w)
	sd := StdDev(w)
	return Bands{Middle: m, Upper: m + k*sd, Lower: m - k*sd}, nil
}

// CalculateVolatility returns the population stdev of simple returns over the trailing window.
func CalculateVolatility(prices []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, ErrInvalidPeriod
	}
	w, err := trailing(prices, window)
	if err != nil {
		return 0, err
	}
	if len(w) < 3 {
		return 0, ErrInsufficientData
	}
	returns := make([]float64, 0, len(w)-1)
	for i := 1; i < len(w); i++ {
		if w[i-1] == 0 {
			return 0, ErrZeroDeviation
		}
		returns = append(returns, w[i]/w[i-1]-1)
	}
	vol := StdDev(returns)
	if vol == 0 || math.IsNaN(vol) {
		return 0, ErrZeroDeviation
	}
	return vol, nil
}
