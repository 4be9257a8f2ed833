package indicator

// MACD periods. The signal line is a 9-period EMA of the MACD line.
const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// MACD calculates the MACD line (EMA12 - EMA26), signal line and histogram
// for a close series. All three outputs match the input length. With fewer
// than 26 closes everything is undefined; otherwise the MACD line starts at
// index 25 and the signal line 8 elements later, at index 33.
func MACD(closes []float64) (line, signal, histogram []Value) {
	n := len(closes)
	line = nones(n)
	signal = nones(n)
	histogram = nones(n)

	if n < macdSlowPeriod {
		return line, signal, histogram
	}

	fast := ema(closes, macdFastPeriod)
	slow := ema(closes, macdSlowPeriod)

	macdValues := make([]float64, 0, n-macdSlowPeriod+1)
	for i := macdSlowPeriod - 1; i < n; i++ {
		v := fast[i] - slow[i]
		line[i] = Some(v)
		macdValues = append(macdValues, v)
	}

	if len(macdValues) >= macdSignalPeriod {
		sig := ema(macdValues, macdSignalPeriod)
		for i := macdSignalPeriod - 1; i < len(sig); i++ {
			signal[i+macdSlowPeriod-1] = Some(sig[i])
		}
	}

	for i := 0; i < n; i++ {
		if line[i].Valid && signal[i].Valid {
			histogram[i] = Some(line[i].V - signal[i].V)
		}
	}

	return line, signal, histogram
}

// ema computes an exponential moving average seeded with the simple average
// of the first `period` values at index period-1. Indices before the seed
// are unspecified and must not be read by callers.
func ema(data []float64, period int) []float64 {
	out := make([]float64, len(data))
	if len(data) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	out[period-1] = sum / float64(period)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(data); i++ {
		out[i] = (data[i]-out[i-1])*multiplier + out[i-1]
	}

	return out
}
