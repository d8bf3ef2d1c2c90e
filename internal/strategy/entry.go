// Package strategy turns indicator snapshots into entry, averaging and exit verdicts.
package strategy

import (
	"math"

	"TickSentinel/internal/model"
)

// EntryVerdict is the result of evaluating every entry filter for one symbol.
// Score only ranks candidates within one tick.
type EntryVerdict struct {
	Eligible   bool
	ReasonTags []string
	Score      float64
	Filters    []FilterResult
}

// EvaluateEntry runs all configured filters. Entry is eligible only if every
// applicable filter passes; undefined indicators never pass.
func EvaluateEntry(snap model.IndicatorSnapshot, q model.Quote, th Thresholds) EntryVerdict {
	filters := []FilterResult{filterDeviation(snap, th)}
	optional := []func() (FilterResult, bool){
		func() (FilterResult, bool) { return filterRSI(snap, th) },
		func() (FilterResult, bool) { return filterEfficiency(snap, th) },
		func() (FilterResult, bool) { return filterBand(snap, th) },
		func() (FilterResult, bool) { return filterRange(snap, th) },
		func() (FilterResult, bool) { return filterFloor("liquidity", q.Liquidity, th.MinLiquidity) },
		func() (FilterResult, bool) { return filterFloor("volume_24h", q.Volume24h, th.MinVolume24h) },
		func() (FilterResult, bool) { return filterChange(q, th) },
		func() (FilterResult, bool) { return filterUptick(snap, th) },
	}
	for _, f := range optional {
		if r, applies := f(); applies {
			filters = append(filters, r)
		}
	}

	v := EntryVerdict{Eligible: true, Filters: filters}
	var passed, failed []string
	for _, f := range filters {
		if f.Passed {
			passed = append(passed, f.Tag)
		} else {
			v.Eligible = false
			failed = append(failed, f.Tag)
		}
	}
	if !v.Eligible {
		v.ReasonTags = failed
		return v
	}
	v.ReasonTags = passed
	v.Score = score(snap, th)
	return v
}

// score grows with the depth of the deviation and how far RSI sits below its cap.
func score(snap model.IndicatorSnapshot, th Thresholds) float64 {
	s := math.Abs(snap.Deviation(th.UseRegression).Value)
	if th.RSIMax > 0 && snap.RSI.Valid {
		s += math.Max(0, th.RSIMax-snap.RSI.Value)
	}
	return s
}
