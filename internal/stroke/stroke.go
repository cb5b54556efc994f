// Package stroke maintains alternating up/down strokes between fractal
// merged bars. Grounded on original_source/chan_core/src/bi/bi.rs (Bi) and
// bi_list.rs (BiList::try_create_first_bi / update_bi_sure / try_update_end
// / update_peak). Per-field Rust-style memoization is replaced with plain
// computed getters since every underlying lookup here is already O(1) slice
// access. Every same-fractal extension pushes the superseded end onto
// sureEndStack, and TruncateAfterMerged pops back through it on a rollback
// instead of discarding the whole stroke. The forward path has no
// update_peak step: a fractal that neither extends the tail stroke nor makes
// a new stroke is ignored, and Config.AllowSubPeak is not read.
package stroke

import (
	"github.com/forex24/czsc-go/internal/czerr"
	"github.com/forex24/czsc-go/internal/merge"
	"github.com/forex24/czsc-go/internal/structline"
)

// FxCheck selects how permissively fractal validity is checked across the
// window between two stroke ends.
type FxCheck int

const (
	FxStrict FxCheck = iota
	FxHalf
	FxLoss
	FxTotally
)

// Config mirrors the reference BiConfig defaults (normal, strict, half,
// gap_as_kl=true, end_is_peak=true, allow_sub_peak=true).
type Config struct {
	Algo          string // "normal" | "fx"
	IsStrict      bool
	FxCheck       FxCheck
	GapAsExtraBar bool
	EndIsPeak     bool
	AllowSubPeak  bool
}

// DefaultConfig returns the reference's default stroke configuration.
func DefaultConfig() Config {
	return Config{Algo: "normal", IsStrict: true, FxCheck: FxHalf, GapAsExtraBar: true, EndIsPeak: true, AllowSubPeak: true}
}

// Stroke is a directional move between two opposite-fractal merged bars.
type Stroke struct {
	idx     int
	dir     merge.Dir
	beginMB int
	endMB   int
	sure    bool

	// sureEndStack holds the merged-bar indices this stroke's end held
	// before each confirmed same-fractal extension, so TruncateAfterMerged
	// can restore an earlier end instead of dropping the stroke.
	sureEndStack []int

	segIdx *int
}

func (s *Stroke) Idx() int     { return s.idx }
func (s *Stroke) Dir() merge.Dir { return s.dir }
func (s *Stroke) IsSure() bool { return s.sure }
func (s *Stroke) BeginMB() int { return s.beginMB }
func (s *Stroke) EndMB() int   { return s.endMB }
func (s *Stroke) SegIdx() (int, bool) {
	if s.segIdx == nil {
		return 0, false
	}
	return *s.segIdx, true
}
func (s *Stroke) SetSegIdx(i int) { v := i; s.segIdx = &v }
func (s *Stroke) ClearSegIdx()    { s.segIdx = nil }

// speculative tracks the not-sure tail stroke produced by the most recent
// SpeculateTail call, so the next call (or an explicit RevokeSpeculative)
// can cleanly undo it before a fresh confirmed or speculative state is
// computed. Unlike sureEndStack, this never survives a confirmed mutation.
type speculative struct {
	active    bool
	appended  bool // true: a whole virtual stroke was appended; false: the tail stroke's end was pushed out
	savedEnd  int
	savedSure bool
}

// List maintains the append-only stroke sequence over a MergedBarList.
type List struct {
	cfg      Config
	mb       *merge.List
	strokes  []Stroke
	lastEnd  int // merged-bar index of the current sure tail end, -1 if none
	freeList []int
	spec     speculative
}

// NewList creates an empty stroke list over mb.
func NewList(cfg Config, mb *merge.List) *List {
	return &List{cfg: cfg, mb: mb, lastEnd: -1}
}

func (l *List) Len() int            { return len(l.strokes) }
func (l *List) At(i int) *Stroke    { return &l.strokes[i] }
func (l *List) Last() *Stroke {
	if len(l.strokes) == 0 {
		return nil
	}
	return &l.strokes[len(l.strokes)-1]
}

// BeginVal/EndVal/High/Low/BeginBar/EndBar implement structline.Line-style
// accessors for a stroke at index i, reading straight through to the
// underlying merged-bar / raw-bar data.
func (l *List) BeginVal(i int) float64 {
	s := &l.strokes[i]
	m := l.mb.At(s.beginMB)
	if s.dir == merge.Up {
		return m.Low
	}
	return m.High
}

func (l *List) EndVal(i int) float64 {
	s := &l.strokes[i]
	m := l.mb.At(s.endMB)
	if s.dir == merge.Up {
		return m.High
	}
	return m.Low
}

func (l *List) High(i int) float64 {
	s := &l.strokes[i]
	hi := l.mb.At(s.beginMB).High
	for k := s.beginMB; k <= s.endMB; k++ {
		if h := l.mb.At(k).High; h > hi {
			hi = h
		}
	}
	return hi
}

func (l *List) Low(i int) float64 {
	s := &l.strokes[i]
	lo := l.mb.At(s.beginMB).Low
	for k := s.beginMB; k <= s.endMB; k++ {
		if v := l.mb.At(k).Low; v < lo {
			lo = v
		}
	}
	return lo
}

func (l *List) BeginBar(i int) int { return l.mb.At(l.strokes[i].beginMB).BeginBar }
func (l *List) EndBar(i int) int   { return l.mb.At(l.strokes[i].endMB).EndBar }

// MergedSpan returns the count of merged bars strictly between two indices.
func mergedSpanBetween(a, b int) int { return b - a - 1 }

func (l *List) rawBarCountBetween(a, b int) int {
	n := 0
	for i := a + 1; i < b; i++ {
		n += len(l.mb.At(i).Members)
	}
	return n
}

func (l *List) gapBonus(a, b int) int {
	if !l.cfg.GapAsExtraBar {
		return 0
	}
	bonus := 0
	for i := a; i < b; i++ {
		cur, next := l.mb.At(i), l.mb.At(i+1)
		if next.Low > cur.High || next.High < cur.Low {
			bonus++
		}
	}
	return bonus
}

// canMakeStroke implements spec.md 4.3's can_make_stroke for a candidate
// stroke from prevEnd to newEnd in direction dir.
func (l *List) canMakeStroke(prevEnd, newEnd int, dir merge.Dir) bool {
	if l.cfg.Algo != "fx" {
		span := mergedSpanBetween(prevEnd, newEnd)
		bonus := l.gapBonus(prevEnd, newEnd)
		for b := 0; b < bonus && span < 4; b++ {
			span++
		}
		if l.cfg.IsStrict {
			if span < 4 {
				return false
			}
		} else {
			if span < 3 || l.rawBarCountBetween(prevEnd, newEnd) < 3 {
				return false
			}
		}
	}

	if !l.fractalValid(prevEnd, newEnd, dir) {
		return false
	}

	if l.cfg.EndIsPeak && !l.endIsPeak(prevEnd, newEnd, dir) {
		return false
	}
	return true
}

func (l *List) fractalValid(prevEnd, newEnd int, dir merge.Dir) bool {
	intermediate := newEnd - prevEnd - 1
	if intermediate <= 0 {
		return true
	}
	prevExtreme := l.extreme(prevEnd, dir)
	breach := 0
	for i := prevEnd + 1; i < newEnd; i++ {
		m := l.mb.At(i)
		if dir == merge.Up {
			if m.Low < prevExtreme {
				breach++
			}
		} else {
			if m.High > prevExtreme {
				breach++
			}
		}
	}
	switch l.cfg.FxCheck {
	case FxStrict:
		return breach == 0
	case FxHalf:
		return breach*2 <= intermediate
	case FxLoss:
		return breach < intermediate
	case FxTotally:
		return true
	default:
		return breach == 0
	}
}

func (l *List) extreme(mbIdx int, dir merge.Dir) float64 {
	m := l.mb.At(mbIdx)
	if dir == merge.Up {
		return m.Low
	}
	return m.High
}

func (l *List) endIsPeak(prevEnd, newEnd int, dir merge.Dir) bool {
	newExtreme := l.endExtreme(newEnd, dir)
	for i := prevEnd + 1; i < newEnd; i++ {
		m := l.mb.At(i)
		if dir == merge.Up {
			if m.High > newExtreme {
				return false
			}
		} else {
			if m.Low < newExtreme {
				return false
			}
		}
	}
	return true
}

func (l *List) endExtreme(mbIdx int, dir merge.Dir) float64 {
	m := l.mb.At(mbIdx)
	if dir == merge.Up {
		return m.High
	}
	return m.Low
}

func (l *List) addNewStroke(beginMB, endMB int) error {
	beginFractal := l.mb.At(beginMB).Fractal
	var dir merge.Dir
	switch beginFractal {
	case merge.Bottom:
		dir = merge.Up
	case merge.Top:
		dir = merge.Down
	default:
		return czerr.New(czerr.StrokeError, "stroke begin merged bar has no fractal")
	}

	idx := len(l.strokes)
	l.strokes = append(l.strokes, Stroke{idx: idx, dir: dir, beginMB: beginMB, endMB: endMB, sure: true})

	if dir == merge.Up && l.EndVal(idx) <= l.BeginVal(idx) {
		return czerr.New(czerr.StrokeError, "up stroke end value must exceed begin value")
	}
	if dir == merge.Down && l.EndVal(idx) >= l.BeginVal(idx) {
		return czerr.New(czerr.StrokeError, "down stroke end value must be below begin value")
	}
	l.lastEnd = endMB
	return nil
}

// OnSettledMergedBar is called once a merged bar's fractal is fixed (i.e. it
// is no longer the MergedBarList tail). It drives first-stroke formation,
// extension, and new-stroke emission per spec.md 4.3.
func (l *List) OnSettledMergedBar(k int) error {
	mbk := l.mb.At(k)
	if mbk.Fractal == merge.NoFractal {
		return nil
	}

	if len(l.strokes) == 0 {
		for _, f := range l.freeList {
			ff := l.mb.At(f).Fractal
			if ff == merge.NoFractal || ff == mbk.Fractal {
				continue
			}
			dir := merge.Down
			if ff == merge.Bottom {
				dir = merge.Up
			}
			if l.canMakeStroke(f, k, dir) {
				if err := l.addNewStroke(f, k); err != nil {
					return err
				}
				l.freeList = nil
				return nil
			}
		}
		l.freeList = append(l.freeList, k)
		return nil
	}

	last := l.Last()
	lastEndFractal := l.mb.At(last.endMB).Fractal

	switch {
	case mbk.Fractal == lastEndFractal:
		if l.extendsExtreme(last, k) {
			last.sureEndStack = append(last.sureEndStack, last.endMB)
			last.endMB = k
			l.lastEnd = k
		}
		return nil

	case l.canMakeStroke(last.endMB, k, last.dir.Opposite()):
		return l.addNewStroke(last.endMB, k)

	default:
		return nil
	}
}

func (l *List) extendsExtreme(s *Stroke, k int) bool {
	m := l.mb.At(k)
	cur := l.mb.At(s.endMB)
	if s.dir == merge.Up {
		return m.High > cur.High
	}
	return m.Low < cur.Low
}

// RevokeSpeculative undoes the effect of the previous SpeculateTail call, if
// any, restoring the stroke list to the last genuinely confirmed state. It
// is idempotent: calling it twice in a row with no intervening
// SpeculateTail is a no-op the second time.
func (l *List) RevokeSpeculative() {
	if !l.spec.active {
		return
	}
	if l.spec.appended {
		l.strokes = l.strokes[:len(l.strokes)-1]
		if len(l.strokes) == 0 {
			l.lastEnd = -1
		} else {
			l.lastEnd = l.strokes[len(l.strokes)-1].endMB
		}
	} else if last := l.Last(); last != nil {
		last.endMB = l.spec.savedEnd
		last.sure = l.spec.savedSure
		l.lastEnd = last.endMB
	}
	l.spec = speculative{}
}

// SpeculateTail applies a tentative, not-sure extension or append against
// the merged-bar list's current unsettled tail bar, mirroring
// OnSettledMergedBar's extend/append decision without requiring the tail to
// carry a fixed fractal yet. It always starts by reverting the previous
// tick's speculation, so repeated calls across ticks never stack.
func (l *List) SpeculateTail() error {
	l.RevokeSpeculative()

	k := l.mb.Len() - 1
	if k < 0 || len(l.strokes) == 0 {
		return nil
	}

	last := l.Last()
	if k <= last.endMB {
		return nil
	}

	if l.extendsExtreme(last, k) {
		l.spec = speculative{active: true, appended: false, savedEnd: last.endMB, savedSure: last.sure}
		last.endMB = k
		last.sure = false
		l.lastEnd = k
		return nil
	}

	if l.canMakeStroke(last.endMB, k, last.dir.Opposite()) {
		idx := len(l.strokes)
		l.strokes = append(l.strokes, Stroke{idx: idx, dir: last.dir.Opposite(), beginMB: last.endMB, endMB: k, sure: false})
		l.lastEnd = k
		l.spec = speculative{active: true, appended: true}
	}
	return nil
}

// TruncateAfterMerged rolls the stroke list back so no stroke references a
// merged-bar index beyond mbIdx. Any speculative tail is dropped outright;
// strokes that begin beyond mbIdx are dropped entirely; a surviving tail
// stroke whose end lies beyond mbIdx is walked back through its
// sureEndStack (update_peak's pop-and-retry) to the last end at or before
// mbIdx, or dropped if the stack runs out before reaching one.
func (l *List) TruncateAfterMerged(mbIdx int) {
	l.spec = speculative{}
	for len(l.strokes) > 0 && l.strokes[len(l.strokes)-1].beginMB > mbIdx {
		l.strokes = l.strokes[:len(l.strokes)-1]
	}
	if len(l.strokes) == 0 {
		l.lastEnd = -1
		return
	}
	last := l.Last()
	for last.endMB > mbIdx && len(last.sureEndStack) > 0 {
		n := len(last.sureEndStack)
		last.endMB = last.sureEndStack[n-1]
		last.sureEndStack = last.sureEndStack[:n-1]
	}
	if last.endMB > mbIdx {
		l.strokes = l.strokes[:len(l.strokes)-1]
		l.TruncateAfterMerged(mbIdx)
		return
	}
	last.sure = true
	l.lastEnd = last.endMB
}

// TruncateAfter drops every stroke with index > idx, restoring lastEnd.
func (l *List) TruncateAfter(idx int) {
	l.spec = speculative{}
	if idx+1 >= len(l.strokes) {
		return
	}
	if idx < -1 {
		idx = -1
	}
	l.strokes = l.strokes[:idx+1]
	if len(l.strokes) == 0 {
		l.lastEnd = -1
		return
	}
	l.lastEnd = l.strokes[len(l.strokes)-1].endMB
}

// Line adapts stroke i to the structline.Line capability set consumed by
// ZoneList and SignalList.
type Line struct {
	l *List
	i int
}

// LineAt returns the structline.Line view of stroke i.
func (l *List) LineAt(i int) Line { return Line{l: l, i: i} }

func (s Line) Idx() int    { return s.i }
func (s Line) IsSure() bool { return s.l.At(s.i).sure }
func (s Line) Dir() structline.Dir {
	if s.l.At(s.i).dir == merge.Up {
		return structline.Up
	}
	return structline.Down
}
func (s Line) BeginVal() float64 { return s.l.BeginVal(s.i) }
func (s Line) EndVal() float64   { return s.l.EndVal(s.i) }
func (s Line) High() float64     { return s.l.High(s.i) }
func (s Line) Low() float64      { return s.l.Low(s.i) }
func (s Line) BeginBar() int     { return s.l.BeginBar(s.i) }
func (s Line) EndBar() int       { return s.l.EndBar(s.i) }
