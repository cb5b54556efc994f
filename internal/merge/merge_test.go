package merge

import "testing"

// TestTrivialAscendingProducesNoFractal covers scenario S1: a strictly
// ascending run never folds (no containment) and never settles a fractal
// (a monotone run has no local extremum).
func TestTrivialAscendingProducesNoFractal(t *testing.T) {
	l := NewList(DefaultConfig())
	for i := 0; i < 10; i++ {
		v := float64(i + 1)
		if _, err := l.Push(Bar{Idx: i, High: v, Low: v}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for i := 0; i < l.Len(); i++ {
		if l.At(i).Fractal != NoFractal {
			t.Fatalf("expected no fractal in a monotone run, found one at merged index %d", i)
		}
	}
}

// TestNoContiguousContainment covers invariant 1: no settled merged bar
// contains, or is contained by, its immediate neighbor.
func TestNoContiguousContainment(t *testing.T) {
	l := NewList(DefaultConfig())
	highs := []float64{10, 9, 8, 7, 6, 7, 8, 9, 10, 11}
	lows := []float64{9, 8, 7, 6, 5, 6, 7, 8, 9, 10}
	for i := range highs {
		if _, err := l.Push(Bar{Idx: i, High: highs[i], Low: lows[i]}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	for i := 0; i+1 < l.Len(); i++ {
		a, b := l.At(i), l.At(i+1)
		contains := (a.High >= b.High && a.Low <= b.Low) || (b.High >= a.High && b.Low <= a.Low)
		if contains {
			t.Fatalf("merged bars %d and %d violate the no-containment invariant", i, i+1)
		}
	}
}

// TestSingleVProducesDownThenUpFractals mirrors scenario S2's bar sequence
// at the merge layer: a V shape settles a Top then, later, is positioned to
// settle a Bottom once a third merged bar opens past it.
func TestSingleVProducesDownThenUpFractals(t *testing.T) {
	l := NewList(DefaultConfig())
	highs := []float64{10, 9, 8, 7, 6, 7, 8, 9, 10, 11}
	lows := []float64{9, 8, 7, 6, 5, 6, 7, 8, 9, 10}
	var settledFractals []Fractal
	for i := range highs {
		settled, err := l.Push(Bar{Idx: i, High: highs[i], Low: lows[i]})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settled >= 0 {
			settledFractals = append(settledFractals, l.At(settled).Fractal)
		}
	}
	foundTop, foundBottom := false, false
	for _, f := range settledFractals {
		if f == Top {
			foundTop = true
		}
		if f == Bottom {
			foundBottom = true
		}
	}
	if !foundTop || !foundBottom {
		t.Fatalf("expected both a Top and a Bottom fractal to settle, got %v", settledFractals)
	}
}

func TestTruncateAfterIdempotent(t *testing.T) {
	l := NewList(DefaultConfig())
	for i := 0; i < 6; i++ {
		v := float64(i)
		if _, err := l.Push(Bar{Idx: i, High: v + 1, Low: v}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	l.TruncateAfter(1)
	l.TruncateAfter(1)
	if l.Len() != 2 {
		t.Fatalf("expected len 2, got %d", l.Len())
	}
}
