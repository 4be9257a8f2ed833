package indicator

// MA calculates the simple moving average over the trailing `period` closes.
// The first `period-1` indices use a shrinking window over however many
// closes are available, except index 0 which is always undefined: a single
// point carries no average signal. The output has the same length as the
// input. Values are rounded to 2 decimal places.
func MA(closes []float64, period int) []Value {
	result := make([]Value, len(closes))
	if period < 2 {
		return result
	}

	for i := range closes {
		available := i + 1
		if available > period {
			available = period
		}
		if available < 2 {
			continue
		}

		var sum float64
		for j := 0; j < available; j++ {
			sum += closes[i-j]
		}
		result[i] = Some(round2(sum / float64(available)))
	}

	return result
}
