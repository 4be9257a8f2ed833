package indicator

// Series bundles every indicator sequence a chart or screening view needs.
// It is ephemeral: recomputed from the raw close series on every request and
// never persisted.
type Series struct {
	MAShort   []Value `json:"maShort"`
	MAMid     []Value `json:"maMid"`
	MALong    []Value `json:"maLong"`
	RSI       []Value `json:"rsi"`
	MACD      []Value `json:"macd"`
	Signal    []Value `json:"signal"`
	Histogram []Value `json:"histogram"`
}

// Compute calculates the full indicator set for a close series. rsiPeriod
// selects between the list-view (9) and detail-view (14) RSI.
func Compute(closes []float64, rsiPeriod int) *Series {
	s := &Series{
		MAShort: MA(closes, ShortMAPeriod),
		MAMid:   MA(closes, MidMAPeriod),
		MALong:  MA(closes, LongMAPeriod),
		RSI:     RSI(closes, rsiPeriod),
	}
	s.MACD, s.Signal, s.Histogram = MACD(closes)
	return s
}
