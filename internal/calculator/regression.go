package calculator

import "math"

// Fit is an ordinary least-squares line of price against tick index.
type Fit struct {
	Slope       float64
	Intercept   float64
	ResidualStd float64
	Fitted      float64 // fitted value at the last index
}

// CalculateRegression fits price = intercept + slope*i over the trailing window,
// where i runs from 0 (oldest) to window-1 (latest).
func CalculateRegression(prices []float64, window int) (Fit, error) {
	if window <= 0 {
		return Fit{}, ErrInvalidPeriod
	}
	if window < 3 {
		return Fit{}, ErrInsufficientData
	}
	w, err := trailing(prices, window)
	if err != nil {
		return Fit{}, err
	}

	n := float64(len(w))
	xMean := (n - 1) / 2
	yMean := Mean(w)
	var sxy, sxx float64
	for i, y := range w {
		dx := float64(i) - xMean
		sxy += dx * (y - yMean)
		sxx += dx * dx
	}
	slope := sxy / sxx
	intercept := yMean - slope*xMean

	var ss float64
	for i, y := range w {
		r := y - (intercept + slope*float64(i))
		ss += r * r
	}
	return Fit{
		Slope:       slope,
		Intercept:   intercept,
		ResidualStd: math.Sqrt(ss / n),
		Fitted:      intercept + slope*(n-1),
	}, nil
}

// CalculateRegressionZScore measures the latest price's deviation from the local
// trend line in residual standard deviations.
func CalculateRegressionZScore(prices []float64, window int) (float64, Fit, error) {
	fit, err := CalculateRegression(prices, window)
	if err != nil {
		return 0, fit, err
	}
	if negligible(fit.ResidualStd, fit.Fitted) {
		return 0, fit, ErrZeroDeviation
	}
	last := prices[len(prices)-1]
	return (last - fit.Fitted) / fit.ResidualStd, fit, nil
}

// CalculateEfficiencyRatio returns net move over path length for the trailing window.
// Near 1 is a smooth trend, near 0 is noise.
func CalculateEfficiencyRatio(prices []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, ErrInvalidPeriod
	}
	if window < 2 {
		return 0, ErrInsufficientData
	}
	w, err := trailing(prices, window)
	if err != nil {
		return 0, err
	}
	path := 0.0
	for i := 1; i < len(w); i++ {
		path += math.Abs(w[i] - w[i-1])
	}
	if path == 0 {
		return 0, ErrZeroDeviation
	}
	return math.Abs(w[len(w)-1]-w[0]) / path, nil
}
