package stroke

import (
	"testing"

	"github.com/forex24/czsc-go/internal/merge"
)

// buildV pushes the scenario S2 bar sequence through a MergedBarList and
// drains every settled fractal into a fresh StrokeList.
func buildV(t *testing.T) (*merge.List, *List) {
	t.Helper()
	highs := []float64{10, 9, 8, 7, 6, 7, 8, 9, 10, 11}
	lows := []float64{9, 8, 7, 6, 5, 6, 7, 8, 9, 10}

	ml := merge.NewList(merge.DefaultConfig())
	sl := NewList(DefaultConfig(), ml)
	for i := range highs {
		settled, err := ml.Push(merge.Bar{Idx: i, High: highs[i], Low: lows[i]})
		if err != nil {
			t.Fatalf("unexpected merge error: %v", err)
		}
		if settled >= 0 {
			if err := sl.OnSettledMergedBar(settled); err != nil {
				t.Fatalf("unexpected stroke error: %v", err)
			}
		}
	}
	return ml, sl
}

func TestAlternatingDirectionAndChaining(t *testing.T) {
	_, sl := buildV(t)
	if sl.Len() == 0 {
		t.Fatalf("expected at least one stroke from the V sequence")
	}
	for k := 1; k < sl.Len(); k++ {
		prev, cur := sl.At(k - 1), sl.At(k)
		if cur.Dir() == prev.Dir() {
			t.Fatalf("stroke %d should have opposite direction from stroke %d", k, k-1)
		}
		if cur.BeginMB() != prev.EndMB() {
			t.Fatalf("stroke %d should begin where stroke %d ends", k, k-1)
		}
		if cur.Idx() != k {
			t.Fatalf("expected dense stroke index %d, got %d", k, cur.Idx())
		}
	}
}

func TestStrokeEndpointsMatchFractalAndDirection(t *testing.T) {
	ml, sl := buildV(t)
	for k := 0; k < sl.Len(); k++ {
		s := sl.At(k)
		beginFractal := ml.At(s.BeginMB()).Fractal
		endFractal := ml.At(s.EndMB()).Fractal
		if s.Dir() == merge.Up {
			if beginFractal != merge.Bottom || endFractal != merge.Top {
				t.Fatalf("up stroke %d should run Bottom->Top, got %v->%v", k, beginFractal, endFractal)
			}
			if sl.EndVal(k) <= sl.BeginVal(k) {
				t.Fatalf("up stroke %d end value should exceed begin value", k)
			}
		} else {
			if beginFractal != merge.Top || endFractal != merge.Bottom {
				t.Fatalf("down stroke %d should run Top->Bottom, got %v->%v", k, beginFractal, endFractal)
			}
			if sl.EndVal(k) >= sl.BeginVal(k) {
				t.Fatalf("down stroke %d end value should be below begin value", k)
			}
		}
	}
}

func TestSpanRuleInStrictMode(t *testing.T) {
	_, sl := buildV(t)
	for k := 0; k < sl.Len(); k++ {
		s := sl.At(k)
		span := s.EndMB() - s.BeginMB()
		if span < 4 {
			t.Fatalf("strict-mode stroke %d spans only %d merged bars, want >= 4", k, span)
		}
	}
}

func TestTruncateAfterRestoresLastEnd(t *testing.T) {
	_, sl := buildV(t)
	if sl.Len() < 2 {
		t.Skip("sequence produced fewer than two strokes")
	}
	sl.TruncateAfter(0)
	if sl.Len() != 1 {
		t.Fatalf("expected len 1 after truncate, got %d", sl.Len())
	}
	if sl.lastEnd != sl.At(0).EndMB() {
		t.Fatalf("expected lastEnd to match the remaining tail stroke's end")
	}
}
