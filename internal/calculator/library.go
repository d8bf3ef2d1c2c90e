package calculator

import (
	"errors"

	"TickSentinel/internal/model"
)

// Params selects the windows used by Library. A zero window disables the
// indicator, except ZWindow where zero means the whole series.
type Params struct {
	ZWindow          int     `yaml:"z_window"`
	RSIPeriod        int     `yaml:"rsi_period"`
	RegressionWindow int     `yaml:"regression_window"`
	EfficiencyWindow int     `yaml:"efficiency_window"`
	BandWindow       int     `yaml:"band_window"`
	BandK            float64 `yaml:"band_k"`
	RangeWindow      int     `yaml:"range_window"`
	VolWindow        int     `yaml:"vol_window"`
}

// Library computes an IndicatorSnapshot from a price history.
type Library struct {
	Params Params
}

// NewLibrary returns a Library with the band multiplier defaulted to 2.
func NewLibrary(p Params) *Library {
	if p.BandK == 0 {
		p.BandK = 2
	}
	return &Library{Params: p}
}

// Compute evaluates every configured indicator. Any failure maps to an undefined reading.
func (l *Library) Compute(prices []float64) model.IndicatorSnapshot {
	var s model.IndicatorSnapshot
	n := len(prices)
	if n == 0 {
		return s
	}
	p := l.Params
	s.Last = model.Defined(prices[n-1])
	if n > 1 {
		s.Prev = model.Defined(prices[n-2])
	}

	if w, err := trailing(prices, p.ZWindow); err == nil && len(w) >= 2 {
		s.Mean = model.Defined(Mean(w))
		s.StdDev = model.Defined(StdDev(w))
	}
	if z, err := CalculateZScore(prices, p.ZWindow); err == nil {
		s.ZScore = model.Defined(z)
	}
	if p.RSIPeriod > 0 {
		if rsi, err := CalculateRSI(prices, p.RSIPeriod); err == nil {
			s.RSI = model.Defined(rsi)
		}
	}
	if p.RegressionWindow > 0 {
		z, fit, err := CalculateRegressionZScore(prices, p.RegressionWindow)
		switch {
		case err == nil:
			s.RegressionZ = model.Defined(z)
			fallthrough
		case errors.Is(err, ErrZeroDeviation):
			s.Slope = model.Defined(fit.Slope)
			s.Intercept = model.Defined(fit.Intercept)
			s.ResidualStd = model.Defined(fit.ResidualStd)
		}
	}
	if p.EfficiencyWindow > 0 {
		if er, err := CalculateEfficiencyRatio(prices, p.EfficiencyWindow); err == nil {
			s.Efficiency = model.Defined(er)
		}
	}
	if p.BandWindow > 0 {
		if b, err := CalculateBands(prices, p.BandWindow, p.BandK); err == nil {
			s.UpperBand = model.Defined(b.Upper)
			s.LowerBand = model.Defined(b.Lower)
		}
	}
	if p.RangeWindow > 0 {
		if high, low, err := CalculateRange(prices, p.RangeWindow); err == nil {
			if pos, err := CalculateRangePosition(prices[n-1], high, low); err == nil {
				s.RangePosition = model.Defined(pos)
			}
		}
	}
	if p.VolWindow > 0 {
		if vol, err := CalculateVolatility(prices, p.VolWindow); err == nil {
			s.Volatility = model.Defined(vol)
		}
	}
	return s
}
