package zone

import (
	"testing"

	"github.com/forex24/czsc-go/internal/structline"
)

type fakeLine struct {
	idx       int
	dir       structline.Dir
	high, low float64
	sure      bool
}

func (f fakeLine) Idx() int            { return f.idx }
func (f fakeLine) Dir() structline.Dir { return f.dir }
func (f fakeLine) IsSure() bool        { return f.sure }
func (f fakeLine) BeginVal() float64   { return f.low }
func (f fakeLine) EndVal() float64     { return f.high }
func (f fakeLine) High() float64       { return f.high }
func (f fakeLine) Low() float64        { return f.low }
func (f fakeLine) BeginBar() int       { return f.idx }
func (f fakeLine) EndBar() int         { return f.idx }

// TestThreeOverlappingLinesFormZone covers scenario S3: three consecutive
// against-segment strokes with ranges [5,7],[4,6],[5,7] form one zone with
// low=max(5,4,5)=5, high=min(7,6,7)=6.
func TestThreeOverlappingLinesFormZone(t *testing.T) {
	lines := []fakeLine{
		{idx: 0, dir: structline.Up, high: 7, low: 5, sure: true},
		{idx: 1, dir: structline.Down, high: 6, low: 4, sure: true},
		{idx: 2, dir: structline.Up, high: 7, low: 5, sure: true},
	}
	accessor := func(i int) structline.Line { return lines[i] }
	count := func() int { return len(lines) }

	l := NewList(DefaultConfig(), accessor, count)
	l.Update()

	if l.Len() != 1 {
		t.Fatalf("expected exactly one zone, got %d", l.Len())
	}
	z := l.At(0)
	if z.Low() != 5 || z.High() != 6 {
		t.Fatalf("expected zone [5,6], got [%v,%v]", z.Low(), z.High())
	}
}

func TestNonOverlappingLinesFormNoZone(t *testing.T) {
	lines := []fakeLine{
		{idx: 0, dir: structline.Up, high: 2, low: 1, sure: true},
		{idx: 1, dir: structline.Down, high: 10, low: 9, sure: true},
		{idx: 2, dir: structline.Up, high: 20, low: 19, sure: true},
	}
	accessor := func(i int) structline.Line { return lines[i] }
	count := func() int { return len(lines) }

	l := NewList(DefaultConfig(), accessor, count)
	l.Update()
	if l.Len() != 0 {
		t.Fatalf("expected no zone for disjoint ranges, got %d", l.Len())
	}
}

func TestTruncateAfterIdempotent(t *testing.T) {
	accessor := func(i int) structline.Line { return nil }
	count := func() int { return 0 }
	l := NewList(DefaultConfig(), accessor, count)
	l.zones = append(l.zones, Zone{idx: 0}, Zone{idx: 1})
	l.TruncateAfter(0)
	l.TruncateAfter(0)
	if l.Len() != 1 {
		t.Fatalf("expected len 1, got %d", l.Len())
	}
}
