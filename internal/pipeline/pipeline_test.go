package pipeline

import "testing"

func mkInput(ts int64, v float64) Input {
	return Input{TimestampSec: ts, Open: v, High: v + 0.5, Low: v - 0.5, Close: v, Volume: 100}
}

// TestAscendingRunProducesNoStructure covers scenario S1: a strictly
// ascending run never folds and never settles a fractal, so every
// downstream layer (strokes, segments, zones, signals) stays empty.
func TestAscendingRunProducesNoStructure(t *testing.T) {
	p := New(DefaultConfig())
	for i := 0; i < 10; i++ {
		if err := p.Append(mkInput(int64(i), float64(i+1))); err != nil {
			t.Fatalf("unexpected error on bar %d: %v", i, err)
		}
	}
	snap := p.Snapshot()
	if snap.BarCount != 10 {
		t.Fatalf("expected 10 bars, got %d", snap.BarCount)
	}
	if snap.StrokeCount != 0 || snap.SegmentCount != 0 || snap.ZoneCount != 0 || snap.SignalCount != 0 {
		t.Fatalf("expected no structure over a monotone run, got %+v", snap)
	}
}

func TestAppendRejectsNonMonotoneTimestampWithoutMutatingState(t *testing.T) {
	p := New(DefaultConfig())
	if err := p.Append(mkInput(10, 100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := p.Snapshot()
	if err := p.Append(mkInput(5, 101)); err == nil {
		t.Fatalf("expected an error for a non-monotone timestamp")
	}
	after := p.Snapshot()
	if before != after {
		t.Fatalf("expected snapshot to be unchanged after a rejected append, before=%+v after=%+v", before, after)
	}
}

func TestAppendManyContinuesPastKLDataErrors(t *testing.T) {
	p := New(DefaultConfig())
	inputs := []Input{
		mkInput(1, 100),
		mkInput(1, 101), // duplicate timestamp: KL-data rejection, should not abort
		mkInput(2, 102),
	}
	errs := p.AppendMany(inputs)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one reported rejection, got %d: %v", len(errs), errs)
	}
	if p.Bars().Len() != 2 {
		t.Fatalf("expected the two valid bars to land, got %d", p.Bars().Len())
	}
}

// TestBarTruncateAfterTailIsNoOp mirrors invariant 8 (truncate idempotence)
// on the pipeline's bar arena: truncating it at its own tail, twice, leaves
// its length unchanged.
func TestBarTruncateAfterTailIsNoOp(t *testing.T) {
	p := New(DefaultConfig())
	for i := 0; i < 6; i++ {
		v := float64(10 + i)
		if i%2 == 1 {
			v = float64(10 - i)
		}
		if err := p.Append(mkInput(int64(i), v)); err != nil {
			t.Fatalf("unexpected error on bar %d: %v", i, err)
		}
	}
	before := p.Bars().Len()
	p.Bars().TruncateAfter(before - 1)
	p.Bars().TruncateAfter(before - 1)
	if p.Bars().Len() != before {
		t.Fatalf("expected bar truncate-after-tail to be a no-op, got %d want %d", p.Bars().Len(), before)
	}
}

// TestEveryLayerTruncateAfterTailIsNoOp mirrors invariant 8 at every layer,
// not just the bar arena: truncating each layer once at its own current tail
// leaves every count in the snapshot unchanged.
func TestEveryLayerTruncateAfterTailIsNoOp(t *testing.T) {
	p := New(DefaultConfig())
	highs := []float64{10, 9, 8, 7, 6, 7, 8, 9, 10, 11, 10, 9, 8, 7}
	for i, h := range highs {
		if err := p.Append(mkInput(int64(i), h)); err != nil {
			t.Fatalf("unexpected error on bar %d: %v", i, err)
		}
	}
	before := p.Snapshot()
	p.Bars().TruncateAfter(p.Bars().Len() - 1)
	p.Merged().TruncateAfter(p.Merged().Len() - 1)
	p.Strokes().TruncateAfter(p.Strokes().Len() - 1)
	p.Segments().TruncateAfter(p.Segments().Len() - 1)
	p.Zones().TruncateAfter(p.Zones().Len() - 1)
	p.SegLevel().Segments.TruncateAfter(p.SegLevel().Segments.Len() - 1)
	p.SegLevel().Zones.TruncateAfter(p.SegLevel().Zones.Len() - 1)
	after := p.Snapshot()
	if before != after {
		t.Fatalf("expected layer-local truncate-after-tail to be a no-op, before=%+v after=%+v", before, after)
	}
}

// TestSpeculativeTailNeverShrinksOnExtension covers the speculative-update
// requirement: a bar extending the run shows up immediately as a not-sure
// stroke against the merged bar list's unsettled tail, without shrinking
// the confirmed stroke count built up so far.
func TestSpeculativeTailNeverShrinksOnExtension(t *testing.T) {
	p := New(DefaultConfig())
	seq := []float64{10, 9, 8, 7, 6, 7, 8, 9, 10, 11}
	for i, v := range seq {
		if err := p.Append(mkInput(int64(i), v)); err != nil {
			t.Fatalf("unexpected error on bar %d: %v", i, err)
		}
	}
	if p.Strokes().Len() == 0 {
		t.Skip("scenario produced no confirmed strokes to speculate from")
	}
	beforeLen := p.Strokes().Len()
	if err := p.Append(mkInput(int64(len(seq)), 12)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Strokes().Len() < beforeLen {
		t.Fatalf("expected a further extending bar to not shrink stroke count, got %d want >= %d", p.Strokes().Len(), beforeLen)
	}
}

// TestTruncateAfterMergedBarCascadesDownstream covers the pop-and-retry
// rollback path: rolling the merged-bar arena back mid-history must shrink
// every layer built on top of it, not just the merged bars themselves.
func TestTruncateAfterMergedBarCascadesDownstream(t *testing.T) {
	p := New(DefaultConfig())
	highs := []float64{10, 9, 8, 7, 6, 7, 8, 9, 10, 11, 10, 9, 8, 7, 8, 9, 10, 11}
	for i, h := range highs {
		if err := p.Append(mkInput(int64(i), h)); err != nil {
			t.Fatalf("unexpected error on bar %d: %v", i, err)
		}
	}
	beforeMerged := p.Merged().Len()
	if beforeMerged < 4 {
		t.Skip("scenario did not settle enough merged bars to exercise a mid-history rollback")
	}
	cut := beforeMerged / 2
	if err := p.TruncateAfterMergedBar(cut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Merged().Len() != cut+1 {
		t.Fatalf("expected merged-bar arena truncated to %d, got %d", cut+1, p.Merged().Len())
	}
	for i := 0; i < p.Strokes().Len(); i++ {
		if p.Strokes().At(i).EndMB() > cut {
			t.Fatalf("expected every remaining stroke to end at or before merged bar %d, stroke %d ends at %d", cut, i, p.Strokes().At(i).EndMB())
		}
	}
}
