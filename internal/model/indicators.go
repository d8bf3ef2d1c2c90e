package model

// Reading is an indicator value that may be undefined.
// An undefined reading means "not enough data" and must never be read as zero.
type Reading struct {
	Value float64
	Valid bool
}

// Defined wraps a computed value.
func Defined(v float64) Reading { return Reading{Value: v, Valid: true} }

// Undefined is the reading for insufficient data or a zero denominator.
func Undefined() Reading { return Reading{} }

// IndicatorSnapshot holds all indicators computed for one symbol on one tick.
type IndicatorSnapshot struct {
	Last          Reading
	Prev          Reading
	Mean          Reading
	StdDev        Reading
	ZScore        Reading
	RSI           Reading
	Slope         Reading
	Intercept     Reading
	ResidualStd   Reading
	RegressionZ   Reading
	Efficiency    Reading
	UpperBand     Reading
	LowerBand     Reading
	RangePosition Reading // 0.0 ~ 1.0
	Volatility    Reading
}

// Deviation returns the regression z-score when useRegression is set,
// otherwise the plain z-score against the window mean.
func (s IndicatorSnapshot) Deviation(useRegression bool) Reading {
	if useRegression {
		return s.RegressionZ
	}
	return s.ZScore
}
