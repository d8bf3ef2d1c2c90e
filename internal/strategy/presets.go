package strategy

import (
	"fmt"
	"sort"

	"TickSentinel/internal/calculator"
)

// Profile is one complete decision policy: indicator windows plus entry,
// exit and averaging rules.
type Profile struct {
	Indicators calculator.Params `yaml:"indicators"`
	Entry      Thresholds        `yaml:"entry"`
	Exit       ExitPolicy        `yaml:"exit"`
	Average    AveragePolicy     `yaml:"average"`
}

// RequiredHistory returns the series capacity needed by the largest indicator window.
func (p Profile) RequiredHistory() int {
	ind := p.Indicators
	n := 2
	for _, w := range []int{ind.ZWindow, ind.RSIPeriod + 1, ind.RegressionWindow, ind.EfficiencyWindow, ind.BandWindow, ind.RangeWindow, ind.VolWindow} {
		if w > n {
			n = w
		}
	}
	return n
}

var presets = map[string]Profile{
	"zscore_reversion": {
		Indicators: calculator.Params{ZWindow: 20, RSIPeriod: 14, EfficiencyWindow: 20, VolWindow: 20},
		Entry:      Thresholds{ZEntry: -2.5, RSIMax: 30, EfficiencyMax: 0.6},
		Exit:       ExitPolicy{StopLossPct: 0.08, TakeProfitPct: 0.04, Reversion: true, MaxHoldTicks: 120},
	},
	"regression_reversion": {
		Indicators: calculator.Params{ZWindow: 30, RSIPeriod: 14, RegressionWindow: 30, EfficiencyWindow: 30, VolWindow: 30},
		Entry:      Thresholds{ZEntry: -2.0, UseRegression: true, RSIMax: 35, RequireUptick: true},
		Exit:       ExitPolicy{StopLossPct: 0.06, TakeProfitPct: 0.03, Reversion: true, UseRegression: true, MaxHoldTicks: 90},
	},
	"bollinger_dca": {
		Indicators: calculator.Params{ZWindow: 20, RSIPeriod: 14, BandWindow: 20, BandK: 2, VolWindow: 20},
		Entry:      Thresholds{ZEntry: -2.0, RSIMax: 35, BandTouch: true},
		Exit:       ExitPolicy{StopLossPct: 0.15, TakeProfitPct: 0.03, MaxHoldTicks: 300},
		Average:    AveragePolicy{MaxTiers: 2, StepPct: 0.03, SizeMultiplier: 1},
	},
	"rsi_trailing": {
		Indicators: calculator.Params{ZWindow: 50, RSIPeriod: 14, RangeWindow: 50, VolWindow: 50},
		Entry:      Thresholds{ZEntry: -1.5, RSIMax: 25, RangePositionMax: 0.2},
		Exit:       ExitPolicy{StopLossPct: 0.05, TakeProfitPct: 0.10, MaxHoldTicks: 200, TrailingPct: 0.02, TrailingActivationPct: 0.01},
	},
}

// Preset returns a copy of a named profile.
func Preset(name string) (Profile, error) {
	p, ok := presets[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown strategy preset %q", name)
	}
	if p.Entry.MinChange24h != nil {
		v := *p.Entry.MinChange24h
		p.Entry.MinChange24h = &v
	}
	return p, nil
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
