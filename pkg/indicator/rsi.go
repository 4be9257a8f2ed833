package indicator

// RSI calculates the Relative Strength Index over the given period.
// RSI = 100 - (100 / (1 + RS)) where RS = average gain / average loss.
//
// The first `period` indices are undefined. The value at index `period` is
// seeded from the simple average of the first `period` gains and losses;
// later values use Wilder smoothing:
//
//	avg_t = (avg_{t-1}*(period-1) + x_t) / period
//
// When the average loss is exactly zero, RS is defined as 100 by convention
// rather than infinity, so an all-gain series yields ~99.01, not 100.
func RSI(closes []float64, period int) []Value {
	result := make([]Value, len(closes))
	if period < 2 || len(closes) < period+1 {
		return result
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	result[period] = Some(rsiFrom(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i-1]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i-1]) / float64(period)
		result[i] = Some(rsiFrom(avgGain, avgLoss))
	}

	return result
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	rs := 100.0
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100.0 - 100.0/(1.0+rs)
}
