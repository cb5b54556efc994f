package signal

import (
	"testing"

	"github.com/forex24/czsc-go/internal/bar"
	"github.com/forex24/czsc-go/internal/merge"
	"github.com/forex24/czsc-go/internal/segment"
	"github.com/forex24/czsc-go/internal/stroke"
	"github.com/forex24/czsc-go/internal/structline"
	"github.com/forex24/czsc-go/internal/zone"
)

// buildZigzag pushes a long alternating up/down price run through the bar
// arena, merge, stroke, segment and zone layers, returning every piece a
// signal.List needs so Update can be exercised end to end.
func buildZigzag(t *testing.T) (*bar.Arena, *stroke.List, *segment.List, *zone.List) {
	t.Helper()
	a := bar.NewArena(bar.Config{})
	ml := merge.NewList(merge.DefaultConfig())
	sl := stroke.NewList(stroke.DefaultConfig(), ml)

	// Six legs of a widening zigzag, each long enough to clear the strict
	// span rule, so several alternating strokes settle.
	legs := [][2]float64{
		{100, 80}, {80, 115}, {115, 90}, {90, 130}, {130, 95}, {95, 140},
	}
	idx := 0
	for _, leg := range legs {
		from, to := leg[0], leg[1]
		step := 1.0
		if to < from {
			step = -1.0
		}
		for v := from; (step > 0 && v <= to) || (step < 0 && v >= to); v += step {
			ts := int64(idx)
			if _, err := a.Push(bar.Bar{TimestampSec: ts, Open: v, High: v + 0.5, Low: v - 0.5, Close: v}); err != nil {
				t.Fatalf("bar push: %v", err)
			}
			settled, err := ml.Push(merge.Bar{Idx: idx, High: v + 0.5, Low: v - 0.5})
			if err != nil {
				t.Fatalf("merge push: %v", err)
			}
			if settled >= 0 {
				if err := sl.OnSettledMergedBar(settled); err != nil {
					t.Fatalf("stroke settle: %v", err)
				}
			}
			idx++
		}
	}

	strokeLine := func(i int) structline.Line { return sl.LineAt(i) }
	segs := segment.NewList(segment.DefaultConfig(), strokeLine, sl.Len)
	if err := segs.Update(); err != nil {
		t.Fatalf("segment update: %v", err)
	}
	zones := zone.NewList(zone.DefaultConfig(), strokeLine, sl.Len)
	zones.Update()

	return a, sl, segs, zones
}

func TestSignalUpdateProducesNoDuplicateEndBars(t *testing.T) {
	a, sl, segs, zones := buildZigzag(t)
	sigs := NewList(DefaultConfig(), sl, segs, zones, a)
	if err := sigs.Update(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[int]bool{}
	for i := 0; i < sigs.Len(); i++ {
		s := sigs.At(i)
		if seen[s.endBar] {
			t.Fatalf("duplicate signal end-bar %d", s.endBar)
		}
		seen[s.endBar] = true
	}
}

func TestSignalPruneToSegCountDropsStaleSignals(t *testing.T) {
	a, sl, segs, zones := buildZigzag(t)
	sigs := NewList(DefaultConfig(), sl, segs, zones, a)
	if err := sigs.Update(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := sigs.Len()
	if before == 0 {
		t.Skip("synthetic zigzag produced no signals to prune")
	}

	// Truncate the segment list to empty and re-run Update;
	// pruneToSegCount must drop every signal whose segment no longer
	// exists.
	segs.TruncateAfter(-1)
	if err := sigs.Update(); err != nil {
		t.Fatalf("unexpected error on second update: %v", err)
	}
	if sigs.Len() != 0 {
		t.Fatalf("expected pruning to clear all signals once segments are truncated away, got %d", sigs.Len())
	}
}

func TestTypeStringCoversKnownTypes(t *testing.T) {
	for _, tt := range []Type{T1, T1Peak, T2, T2Strict, T3After, T3Before} {
		if tt.String() == "UNKNOWN" {
			t.Fatalf("expected a named string for type %d", tt)
		}
	}
}
