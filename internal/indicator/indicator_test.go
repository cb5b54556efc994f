package indicator

import (
	"testing"

	"github.com/forex24/czsc-go/internal/bar"
)

func TestMACDInvalidOnFirstTick(t *testing.T) {
	m := NewMACD()
	a := NewConstantArena(t, m)
	if a.At(0).Indicators.MACD.Valid {
		t.Fatalf("expected MACD invalid after a single bar")
	}
}

func TestRSIAllGainsSaturatesAt100(t *testing.T) {
	r := NewRSI()
	a := bar.NewArena(bar.Config{}, r)
	price := 100.0
	for i := int64(0); i < 20; i++ {
		price += 1
		if _, err := a.Push(bar.Bar{TimestampSec: i, Open: price, High: price, Low: price, Close: price}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	last := a.At(a.Len() - 1)
	if !last.Indicators.RSI.Valid {
		t.Fatalf("expected RSI to be valid after warm-up")
	}
	if last.Indicators.RSI.Value != 100 {
		t.Fatalf("expected RSI 100 on an all-gains run, got %v", last.Indicators.RSI.Value)
	}
}

func TestBOLLInvalidUntilWindowFull(t *testing.T) {
	b := NewBOLL()
	a := bar.NewArena(bar.Config{}, b)
	for i := int64(0); i < 19; i++ {
		if _, err := a.Push(bar.Bar{TimestampSec: i, Open: 1, High: 1, Low: 1, Close: 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if a.At(18).Indicators.BOLL.Valid {
		t.Fatalf("expected BOLL invalid before the 20-period window fills")
	}
	if _, err := a.Push(bar.Bar{TimestampSec: 19, Open: 1, High: 1, Low: 1, Close: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.At(19).Indicators.BOLL.Valid {
		t.Fatalf("expected BOLL valid once the window fills")
	}
}

// NewConstantArena pushes one bar through hook and returns the arena, for
// tests that only need to inspect the first tick's output.
func NewConstantArena(t *testing.T, hooks ...bar.Hook) *bar.Arena {
	t.Helper()
	a := bar.NewArena(bar.Config{}, hooks...)
	if _, err := a.Push(bar.Bar{TimestampSec: 1, Open: 1, High: 1, Low: 1, Close: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}
