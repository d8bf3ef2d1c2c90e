package strategy

import (
	"fmt"

	"TickSentinel/internal/model"
)

// Thresholds configures the entry filters. A zero value disables a filter,
// except ZEntry which always applies.
type Thresholds struct {
	ZEntry           float64  `yaml:"z_entry"`
	UseRegression    bool     `yaml:"use_regression"`
	RSIMax           float64  `yaml:"rsi_max"`
	EfficiencyMax    float64  `yaml:"efficiency_max"`
	BandTouch        bool     `yaml:"band_touch"`
	RangePositionMax float64  `yaml:"range_position_max"`
	MinLiquidity     float64  `yaml:"min_liquidity"`
	MinVolume24h     float64  `yaml:"min_volume_24h"`
	MinChange24h     *float64 `yaml:"min_change_24h"`
	RequireUptick    bool     `yaml:"require_uptick"`
}

// FilterResult is the outcome of one entry filter.
type FilterResult struct {
	Name   string
	Passed bool
	Tag    string
}

func undefined(name string) FilterResult {
	return FilterResult{Name: name, Tag: name + ":undefined"}
}

func result(name string, passed bool, format string, args ...any) FilterResult {
	return FilterResult{Name: name, Passed: passed, Tag: fmt.Sprintf(format, args...)}
}

// filterDeviation requires the statistical deviation to be below ZEntry.
// Uses the regression residual z-score for trending assets.
func filterDeviation(snap model.IndicatorSnapshot, th Thresholds) FilterResult {
	name := "zscore"
	if th.UseRegression {
		name = "regression_z"
	}
	dev := snap.Deviation(th.UseRegression)
	if !dev.Valid {
		return undefined(name)
	}
	if dev.Value < th.ZEntry {
		return result(name, true, "%s=%.2f<%.2f", name, dev.Value, th.ZEntry)
	}
	return result(name, false, "%s=%.2f>=%.2f", name, dev.Value, th.ZEntry)
}

func filterRSI(snap model.IndicatorSnapshot, th Thresholds) (FilterResult, bool) {
	if th.RSIMax <= 0 {
		return FilterResult{}, false
	}
	if !snap.RSI.Valid {
		return undefined("rsi"), true
	}
	return result("rsi", snap.RSI.Value < th.RSIMax, "rsi=%.1f/%.1f", snap.RSI.Value, th.RSIMax), true
}

// filterEfficiency is the regime gate: mean reversion only in noisy, range-bound motion.
func filterEfficiency(snap model.IndicatorSnapshot, th Thresholds) (FilterResult, bool) {
	if th.EfficiencyMax <= 0 {
		return FilterResult{}, false
	}
	if !snap.Efficiency.Valid {
		return undefined("efficiency"), true
	}
	return result("efficiency", snap.Efficiency.Value <= th.EfficiencyMax, "efficiency=%.2f/%.2f", snap.Efficiency.Value, th.EfficiencyMax), true
}

func filterBand(snap model.IndicatorSnapshot, th Thresholds) (FilterResult, bool) {
	if !th.BandTouch {
		return FilterResult{}, false
	}
	if !snap.LowerBand.Valid || !snap.Last.Valid {
		return undefined("band"), true
	}
	return result("band", snap.Last.Value <= snap.LowerBand.Value, "band=%.4f/%.4f", snap.Last.Value, snap.LowerBand.Value), true
}

func filterRange(snap model.IndicatorSnapshot, th Thresholds) (FilterResult, bool) {
	if th.RangePositionMax <= 0 {
		return FilterResult{}, false
	}
	if !snap.RangePosition.Valid {
		return undefined("range"), true
	}
	return result("range", snap.RangePosition.Value <= th.RangePositionMax, "range=%.2f/%.2f", snap.RangePosition.Value, th.RangePositionMax), true
}

// filterFloor checks optional quote metadata. Absent metadata makes the filter not applicable.
func filterFloor(name string, value *float64, floor float64) (FilterResult, bool) {
	if floor <= 0 || value == nil {
		return FilterResult{}, false
	}
	return result(name, *value >= floor, "%s=%.0f/%.0f", name, *value, floor), true
}

func filterChange(q model.Quote, th Thresholds) (FilterResult, bool) {
	if th.MinChange24h == nil || q.Change24h == nil {
		return FilterResult{}, false
	}
	return result("change_24h", *q.Change24h >= *th.MinChange24h, "change_24h=%.2f/%.2f", *q.Change24h, *th.MinChange24h), true
}

// filterUptick confirms the current tick is not lower than the previous one.
func filterUptick(snap model.IndicatorSnapshot, th Thresholds) (FilterResult, bool) {
	if !th.RequireUptick {
		return FilterResult{}, false
	}
	if !snap.Prev.Valid || !snap.Last.Valid {
		return undefined("uptick"), true
	}
	return result("uptick", snap.Last.Value >= snap.Prev.Value, "uptick=%.4f/%.4f", snap.Last.Value, snap.Prev.Value), true
}
