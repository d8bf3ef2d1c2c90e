package calculator

import (
	"errors"
	"math"
)

// CalculateRange scans the trailing window and returns its high and low.
func CalculateRange(prices []float64, window int) (high, low float64, err error) {
	w, err := trailing(prices, window)
	if err != nil {
		return 0, 0, err
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, p := range w {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	return high, low, nil
}

// CalculateRangePosition returns where the current price sits within the range (0.0~1.0).
func CalculateRangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
