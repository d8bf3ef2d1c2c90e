package calculator

import (
	"errors"
	"math"
	"testing"
)

func dipSeries() []float64 {
	prices := make([]float64, 0, 20)
	for i := 0; i < 19; i++ {
		prices = append(prices, 100)
	}
	return append(prices, 80)
}

func trendWithDip() []float64 {
	prices := make([]float64, 0, 21)
	for i := 0; i < 20; i++ {
		prices = append(prices, 100+float64(i))
	}
	return append(prices, 117)
}

func TestZScoreDipSeries(t *testing.T) {
	prices := dipSeries()
	if m := Mean(prices); math.Abs(m-99) > 1e-9 {
		t.Fatalf("expected mean 99, got %.4f", m)
	}
	if sd := StdDev(prices); sd <= 0 {
		t.Fatalf("expected positive stdev, got %.4f", sd)
	}
	z, err := CalculateZScore(prices, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if z >= -4 {
		t.Fatalf("expected z < -4, got %.3f", z)
	}
}

func TestZScoreUndefinedCases(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		window int
		want   error
	}{
		{"window longer than data", []float64{1, 2, 3}, 5, ErrInsufficientData},
		{"constant series", []float64{5, 5, 5, 5}, 0, ErrZeroDeviation},
		{"single point", []float64{5}, 0, ErrInsufficientData},
		{"empty", nil, 0, ErrInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CalculateZScore(tt.prices, tt.window); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestZScoreTrailingWindow(t *testing.T) {
	prices := []float64{1000, 10, 12, 10, 12, 8}
	z, err := CalculateZScore(prices, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if z >= 0 {
		t.Fatalf("expected negative z on the trailing window, got %.3f", z)
	}
}

func TestRSI(t *testing.T) {
	rising := []float64{1, 2, 3, 4, 5, 6}
	falling := []float64{6, 5, 4, 3, 2, 1}
	mixed := []float64{10, 11, 10, 11, 10, 11}

	tests := []struct {
		name   string
		prices []float64
		period int
		want   float64
	}{
		{"dip series", dipSeries(), 14, 0},
		{"only gains", rising, 5, 100},
		{"only losses", falling, 5, 0},
		{"flat", []float64{3, 3, 3, 3}, 3, 50},
		{"insufficient data is neutral", []float64{1, 2}, 14, 50},
		{"balanced", mixed, 4, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateRSI(tt.prices, tt.period)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("expected %.2f, got %.2f", tt.want, got)
			}
		})
	}

	if _, err := CalculateRSI(rising, 0); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected invalid period error, got %v", err)
	}
}

func TestRegressionZScoreSeparatesTrendFromMean(t *testing.T) {
	prices := trendWithDip()

	z, err := CalculateZScore(prices, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if z <= 0 {
		t.Fatalf("expected price above flat mean, got z=%.3f", z)
	}

	rz, fit, err := CalculateRegressionZScore(prices, len(prices))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fit.Slope <= 0 {
		t.Fatalf("expected positive slope, got %.3f", fit.Slope)
	}
	if rz > -3 {
		t.Fatalf("expected strong dip below trend, got %.3f", rz)
	}
}

func TestRegressionPerfectLineIsUndefined(t *testing.T) {
	prices := []float64{10, 12, 14, 16, 18}
	_, fit, err := CalculateRegressionZScore(prices, 5)
	if !errors.Is(err, ErrZeroDeviation) {
		t.Fatalf("expected zero deviation, got %v", err)
	}
	if math.Abs(fit.Slope-2) > 1e-9 || math.Abs(fit.Intercept-10) > 1e-9 {
		t.Fatalf("unexpected fit %+v", fit)
	}
}

func TestEfficiencyRatio(t *testing.T) {
	smooth, err := CalculateEfficiencyRatio([]float64{1, 2, 3, 4, 5}, 5)
	if err != nil || math.Abs(smooth-1) > 1e-9 {
		t.Fatalf("expected 1 for straight move, got %.3f (%v)", smooth, err)
	}
	noisy, err := CalculateEfficiencyRatio([]float64{10, 12, 10, 12, 10, 12, 10}, 7)
	if err != nil || noisy != 0 {
		t.Fatalf("expected 0 for round trip, got %.3f (%v)", noisy, err)
	}
	if _, err := CalculateEfficiencyRatio([]float64{4, 4, 4}, 3); !errors.Is(err, ErrZeroDeviation) {
		t.Fatalf("expected zero deviation for flat path, got %v", err)
	}
}

func TestBandsAndRange(t *testing.T) {
	prices := []float64{9, 11, 9, 11}
	b, err := CalculateBands(prices, 4, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Middle != 10 || b.Upper != 12 || b.Lower != 8 {
		t.Fatalf("unexpected bands %+v", b)
	}

	high, low, err := CalculateRange([]float64{5, 1, 9, 3}, 3)
	if err != nil || high != 9 || low != 1 {
		t.Fatalf("unexpected range %.0f/%.0f (%v)", high, low, err)
	}
	pos, _ := CalculateRangePosition(3, high, low)
	if pos != 0.25 {
		t.Fatalf("expected 0.25, got %.2f", pos)
	}
	if pos, _ := CalculateRangePosition(7, 7, 7); pos != 0.5 {
		t.Fatalf("expected 0.5 for empty range, got %.2f", pos)
	}
}

func TestSMA(t *testing.T) {
	if v, err := CalculateSMA([]float64{1, 2, 3, 4}, 2); err != nil || v != 3.5 {
		t.Fatalf("expected 3.5, got %.2f (%v)", v, err)
	}
	if _, err := CalculateSMA([]float64{1}, 2); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected insufficient data, got %v", err)
	}
}

func TestLibraryComputeIsPure(t *testing.T) {
	lib := NewLibrary(Params{RSIPeriod: 14, RegressionWindow: 20, EfficiencyWindow: 10, BandWindow: 20, RangeWindow: 20, VolWindow: 20})
	prices := dipSeries()

	first := lib.Compute(prices)
	second := lib.Compute(prices)
	if first != second {
		t.Fatalf("expected identical snapshots:\n%+v\n%+v", first, second)
	}
	if !first.ZScore.Valid || first.ZScore.Value >= -4 {
		t.Fatalf("unexpected z reading %+v", first.ZScore)
	}
	if !first.RSI.Valid || first.RSI.Value != 0 {
		t.Fatalf("unexpected rsi reading %+v", first.RSI)
	}
	if !first.Prev.Valid || first.Prev.Value != 100 {
		t.Fatalf("unexpected prev reading %+v", first.Prev)
	}
	if !first.LowerBand.Valid || first.Last.Value > first.LowerBand.Value {
		t.Fatalf("expected price below lower band, got %+v / %+v", first.Last, first.LowerBand)
	}
	if prices[19] != 80 {
		t.Fatalf("compute mutated input")
	}
}

func TestLibraryComputeShortHistory(t *testing.T) {
	lib := NewLibrary(Params{RSIPeriod: 14, RegressionWindow: 20, EfficiencyWindow: 10, VolWindow: 20})
	snap := lib.Compute([]float64{100})
	if snap.ZScore.Valid || snap.RegressionZ.Valid || snap.Efficiency.Valid || snap.Volatility.Valid {
		t.Fatalf("expected undefined readings, got %+v", snap)
	}
	if !snap.RSI.Valid || snap.RSI.Value != 50 {
		t.Fatalf("expected neutral RSI sentinel, got %+v", snap.RSI)
	}
}
