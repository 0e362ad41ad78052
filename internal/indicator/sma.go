package indicator

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	// Calculate first SMA
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// SMAAt calculates the simple moving average of the window ending at
// index end (inclusive). Returns false when the window does not fit.
func SMAAt(prices []float64, end, period int) (float64, bool) {
	if period <= 0 || end < period-1 || end >= len(prices) {
		return 0, false
	}
	var sum float64
	for i := end - period + 1; i <= end; i++ {
		sum += prices[i]
	}
	return sum / float64(period), true
}

// ROC calculates the percent rate of change over the trailing window of
// the given period: the change from the first to the last of the final
// `period` values, as a percentage of the first.
func ROC(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}
	start := prices[len(prices)-period]
	end := prices[len(prices)-1]
	if start == 0 {
		return 0, false
	}
	return (end - start) / start * 100, true
}
