package indicator

import (
	"math"
	"testing"
)

func TestMA_FirstIndexUndefined(t *testing.T) {
	result := MA([]float64{100, 101, 102, 103, 104}, 5)

	if len(result) != 5 {
		t.Fatalf("Expected length 5, got %d", len(result))
	}
	if result[0].Valid {
		t.Error("Index 0 should be undefined")
	}
}

func TestMA_RampUp(t *testing.T) {
	result := MA([]float64{100, 102, 104, 106, 108}, 5)

	// Index 1 averages 2 closes, index 2 averages 3, and so on.
	cases := []struct {
		index    int
		expected float64
	}{
		{1, 101},
		{2, 102},
		{3, 103},
		{4, 104},
	}
	for _, c := range cases {
		if !result[c.index].Valid {
			t.Fatalf("Index %d should be defined", c.index)
		}
		if result[c.index].V != c.expected {
			t.Errorf("Index %d: expected %f, got %f", c.index, c.expected, result[c.index].V)
		}
	}
}

func TestMA_FullWindow(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	result := MA(closes, 5)

	// Index 9 averages closes 105..109.
	expected := (105.0 + 106.0 + 107.0 + 108.0 + 109.0) / 5.0
	if result[9].V != expected {
		t.Errorf("Expected MA %f, got %f", expected, result[9].V)
	}
}

func TestMA_ShortSeriesKeepsLength(t *testing.T) {
	result := MA([]float64{100, 101, 102}, 25)

	if len(result) != 3 {
		t.Fatalf("Expected length 3, got %d", len(result))
	}
	if result[0].Valid {
		t.Error("Index 0 should be undefined")
	}
	// Ramp-up still applies below the full period.
	if !result[1].Valid || result[1].V != 100.5 {
		t.Errorf("Index 1: expected 100.50, got %+v", result[1])
	}
	if !result[2].Valid || result[2].V != 101 {
		t.Errorf("Index 2: expected 101.00, got %+v", result[2])
	}
}

func TestMA_Rounding(t *testing.T) {
	result := MA([]float64{100, 100.333}, 5)

	if math.Abs(result[1].V-100.17) > 1e-9 {
		t.Errorf("Expected 100.17, got %f", result[1].V)
	}
}

func TestMA_EmptyInput(t *testing.T) {
	if got := MA(nil, 5); len(got) != 0 {
		t.Errorf("Expected empty output, got %d elements", len(got))
	}
}
