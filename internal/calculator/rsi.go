package calculator

// CalculateRSI computes RSI from simple averages of the last period price changes.
// Requires at least period+1 prices. Returns 50.0 if data is insufficient.
func CalculateRSI(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(prices) < period+1 {
		return 50.0, nil // neutral until there is enough history
	}

	var gain, loss float64
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50.0, nil
	case avgLoss == 0:
		return 100.0, nil
	case avgGain == 0:
		return 0.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}
