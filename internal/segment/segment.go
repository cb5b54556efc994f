// Package segment builds segments over strokes via the characteristic
// sequence fractal (CSF) procedure. Grounded on
// original_source/chan_core/src/seg/eigen.rs (characteristic element
// folding), eigen_fx.rs (the 3-slot state machine), seg.rs (Seg), and
// seg_list_chan.rs (the "chan" algorithm variant, the only non-deprecated
// one per spec.md's configuration table).
//
// Simplifications relative to the reference, recorded in DESIGN.md: the
// gap-validated termination reverse search (find_revert_fx) is replaced by a
// bounded forward-confirmation heuristic, and a characteristic element's
// "peak line" is taken to be the last line folded into it rather than a
// derived raw-bar offset.
package segment

import (
	"github.com/forex24/czsc-go/internal/czerr"
	"github.com/forex24/czsc-go/internal/merge"
	"github.com/forex24/czsc-go/internal/structline"
)

// LeftMethod selects the trailing-segment wrap policy.
type LeftMethod int

const (
	LeftPeak LeftMethod = iota
	LeftAll
)

// Config mirrors the reference SegConfig surface for the "chan" algorithm.
type Config struct {
	LeftMethod      LeftMethod
	ExcludeIncluded bool
}

func DefaultConfig() Config { return Config{LeftMethod: LeftPeak} }

// eigen is one characteristic element: a folded run of against-candidate
// direction lines.
type eigen struct {
	dir      structline.Dir
	high     float64
	low      float64
	beginIdx int // first member line index
	endIdx   int // last member line index (the most recently folded line)
	gap      bool
}

func newEigen(l structline.Line) *eigen {
	return &eigen{dir: l.Dir(), high: l.High(), low: l.Low(), beginIdx: l.Idx(), endIdx: l.Idx()}
}

// tryFold attempts to fold l into e using the same containment rule as
// MergedBarList.Push, extending by e.dir on full containment.
func (e *eigen) tryFold(l structline.Line) bool {
	c := classify(e.high, e.low, l.High(), l.Low())
	if c != merge.CombineFold {
		return false
	}
	if e.dir == structline.Up {
		e.high = maxF(e.high, l.High())
		e.low = maxF(e.low, l.Low())
	} else {
		e.high = minF(e.high, l.High())
		e.low = minF(e.low, l.Low())
	}
	e.endIdx = l.Idx()
	return true
}

func classify(tailHigh, tailLow, high, low float64) merge.Combine {
	contains := (tailHigh >= high && tailLow <= low) || (high >= tailHigh && low <= tailLow)
	if contains {
		return merge.CombineFold
	}
	if high > tailHigh && low > tailLow {
		return merge.CombineUp
	}
	return merge.CombineDown
}

// eigenFX is the 3-slot characteristic-sequence fractal state machine for
// one candidate segment direction.
type eigenFX struct {
	candidateDir structline.Dir
	cfg          Config
	ele          [3]*eigen
	fedAfterE2   int // lines fed in since ele[2] opened, for the gap heuristic
}

func newEigenFX(dir structline.Dir, cfg Config) *eigenFX {
	return &eigenFX{candidateDir: dir, cfg: cfg}
}

// add feeds one against-direction line into the machine. Returns true when
// the third slot completes a candidate characteristic fractal matching the
// candidate direction.
func (fx *eigenFX) add(l structline.Line) bool {
	switch {
	case fx.ele[0] == nil:
		fx.ele[0] = newEigen(l)
		return false

	case fx.ele[1] == nil:
		if fx.ele[0].tryFold(l) {
			return false
		}
		fx.ele[1] = newEigen(l)
		if fx.contradicts(fx.ele[1], fx.ele[0]) {
			fx.reset()
		}
		return false

	case fx.ele[2] == nil:
		if fx.ele[1].tryFold(l) {
			return false
		}
		fx.ele[2] = newEigen(l)
		fx.ele[1].gap = fx.hasGap(fx.ele[0], fx.ele[1])
		fx.fedAfterE2 = 0
		if !fx.actualBreak() {
			fx.reset()
			return false
		}
		if !fx.fractalMatches() {
			fx.reset()
			return false
		}
		return true

	default:
		// All three slots full: a completed fractal whose end is still
		// pending on the gap check; count the further lines fed to it.
		fx.fedAfterE2++
		return false
	}
}

func (fx *eigenFX) contradicts(ele1, ele0 *eigen) bool {
	if fx.candidateDir == structline.Up {
		return ele1.high < ele0.high
	}
	return ele1.low > ele0.low
}

func (fx *eigenFX) hasGap(ele0, ele1 *eigen) bool {
	if fx.candidateDir == structline.Up {
		return ele0.low > ele1.high
	}
	return ele0.high < ele1.low
}

// actualBreak reports whether ele2 actually breaks ele1's extreme in the
// candidate direction. The check applies only in exclude_included mode and
// looks at ele2 alone, with no peek ahead at later strokes; in
// non-exclude_included mode it is always true.
func (fx *eigenFX) actualBreak() bool {
	if !fx.cfg.ExcludeIncluded {
		return true
	}
	if fx.candidateDir == structline.Up {
		return fx.ele[2].high > fx.ele[1].high
	}
	return fx.ele[2].low < fx.ele[1].low
}

func (fx *eigenFX) fractalMatches() bool {
	if fx.candidateDir == structline.Up {
		return fx.ele[1].high > fx.ele[0].high && fx.ele[1].high > fx.ele[2].high
	}
	return fx.ele[1].low < fx.ele[0].low && fx.ele[1].low < fx.ele[2].low
}

func (fx *eigenFX) reset() {
	if fx.cfg.ExcludeIncluded {
		fx.ele[0], fx.ele[1], fx.ele[2] = nil, nil, nil
		return
	}
	fx.ele[0] = fx.ele[1]
	fx.ele[1] = fx.ele[2]
	fx.ele[2] = nil
}

// canBeEnd reports whether the just-completed fractal should be trusted
// immediately. true/false are definite; nil means "wait for more strokes"
// (the gap-validated termination case, simplified to a bounded wait rather
// than the reference's reverse-fractal search).
func (fx *eigenFX) canBeEnd() *bool {
	if !fx.ele[1].gap {
		t := true
		return &t
	}
	if fx.fedAfterE2 >= 2 {
		t := true
		return &t
	}
	return nil
}

// endLineIdx is the candidate segment's end stroke index: the last line
// folded into ele[1].
func (fx *eigenFX) endLineIdx() int { return fx.ele[1].endIdx }

func (fx *eigenFX) allSure(lines func(int) structline.Line) bool {
	for i := fx.ele[0].beginIdx; i <= fx.ele[2].endIdx; i++ {
		if !lines(i).IsSure() {
			return false
		}
	}
	return true
}

// Segment is a directional structural unit built from strokes.
type Segment struct {
	idx          int
	dir          structline.Dir
	beginLine    int
	endLine      int
	sure         bool
	memberLines  []int
	segIdx       *int // back-reference into the level above, when attached
}

func (s *Segment) Idx() int       { return s.idx }
func (s *Segment) BeginLine() int { return s.beginLine }
func (s *Segment) EndLine() int   { return s.endLine }
func (s *Segment) IsSure() bool   { return s.sure }
func (s *Segment) Dir() structline.Dir { return s.dir }
func (s *Segment) Members() []int { return s.memberLines }

// List builds and maintains segments over an ordered backing line source
// (typically a stroke.List, or — for the second structural level — another
// segment.List).
type List struct {
	cfg      Config
	lines    func(i int) structline.Line
	lineCnt  func() int
	segs     []Segment
}

// NewList creates an empty segment list over a backing line source.
func NewList(cfg Config, lines func(i int) structline.Line, lineCnt func() int) *List {
	return &List{cfg: cfg, lines: lines, lineCnt: lineCnt}
}

func (l *List) Len() int          { return len(l.segs) }
func (l *List) At(i int) *Segment { return &l.segs[i] }
func (l *List) Last() *Segment {
	if len(l.segs) == 0 {
		return nil
	}
	return &l.segs[len(l.segs)-1]
}

// Update re-runs the CSF engine from the first line past the last confirmed
// segment's end, then attaches a leftover tentative segment. It first
// truncates any not-sure tail segment, matching SegListChan::do_init.
func (l *List) Update() error {
	l.doInit()

	begin := 0
	if last := l.Last(); last != nil {
		begin = last.endLine + 1
	}
	if err := l.calSegSure(begin); err != nil {
		return err
	}
	l.collectLeft()
	return nil
}

func (l *List) doInit() {
	for len(l.segs) > 0 && !l.segs[len(l.segs)-1].sure {
		l.segs = l.segs[:len(l.segs)-1]
	}
}

func (l *List) calSegSure(begin int) error {
	up := newEigenFX(structline.Up, l.cfg)
	down := newEigenFX(structline.Down, l.cfg)
	var lastDir *structline.Dir
	if last := l.Last(); last != nil {
		d := last.dir
		lastDir = &d
	}

	n := l.lineCnt()
	var pending *eigenFX // completed fractal still waiting on canBeEnd
	for i := begin; i < n; i++ {
		line := l.lines(i)
		var completed *eigenFX
		if line.Dir() == structline.Down && (lastDir == nil || *lastDir != structline.Up) {
			if up.add(line) {
				completed = up
			}
		} else if line.Dir() == structline.Up && (lastDir == nil || *lastDir != structline.Down) {
			if down.add(line) {
				completed = down
			}
		}

		if pending != nil {
			if pending.canBeEnd() == nil && i+1 < n {
				continue
			}
			completed = pending
		} else if completed != nil && completed.canBeEnd() == nil && i+1 < n {
			pending = completed
			continue
		}

		if completed != nil {
			advance, err := l.treatFxEigen(completed, begin)
			if err != nil {
				return err
			}
			if advance < 0 {
				return nil
			}
			return l.calSegSure(advance)
		}
	}
	return nil
}

// treatFxEigen mirrors SegListChan::treat_fx_eigen. It returns the next
// begin index to resume scanning from, or -1 if the caller should stop (the
// whole available line range has been consumed for this pass).
func (l *List) treatFxEigen(fx *eigenFX, scanBegin int) (int, error) {
	test := fx.canBeEnd()
	endIdx := fx.endLineIdx()

	if test == nil || *test {
		isTrue := test != nil
		sure := isTrue && fx.allSure(l.lines)
		ok, err := l.addNewSeg(endIdx, sure)
		if err != nil {
			return -1, err
		}
		if !ok {
			if endIdx+1 >= l.lineCnt() {
				return -1, nil
			}
			return endIdx + 1, nil
		}
		if isTrue {
			if endIdx+1 >= l.lineCnt() {
				return -1, nil
			}
			return endIdx + 1, nil
		}
		return -1, nil
	}

	// test == false: retry from the gap-rejected candidate's start.
	retryFrom := fx.ele[1].beginIdx
	if retryFrom <= scanBegin {
		retryFrom = scanBegin + 1
	}
	if retryFrom >= l.lineCnt() {
		return -1, nil
	}
	return retryFrom, nil
}

// addNewSeg constructs and appends a new segment ending at endIdx. Returns
// false (not an error) when the list is still empty and the endpoint check
// fails, matching add_new_seg's swallow-on-empty-list behavior.
func (l *List) addNewSeg(endIdx int, sure bool) (bool, error) {
	begin := 0
	if last := l.Last(); last != nil {
		begin = last.endLine + 1
	}
	if endIdx < begin {
		return false, nil
	}

	beginLine := l.lines(begin)
	endLine := l.lines(endIdx)
	dir := endLine.Dir()

	if sure {
		if dir == structline.Up && endLine.EndVal() <= beginLine.BeginVal() {
			if l.Len() == 0 {
				return false, nil
			}
			return false, czerr.New(czerr.SegEndValueError, "up segment end value must exceed begin value")
		}
		if dir == structline.Down && endLine.EndVal() >= beginLine.BeginVal() {
			if l.Len() == 0 {
				return false, nil
			}
			return false, czerr.New(czerr.SegEndValueError, "down segment end value must be below begin value")
		}
		if endIdx-begin < 2 {
			if l.Len() == 0 {
				return false, nil
			}
			return false, czerr.New(czerr.SegLenError, "confirmed segment must span at least two lines")
		}
	}

	members := make([]int, 0, endIdx-begin+1)
	for i := begin; i <= endIdx; i++ {
		members = append(members, i)
	}

	l.segs = append(l.segs, Segment{
		idx: len(l.segs), dir: dir, beginLine: begin, endLine: endIdx,
		sure: sure, memberLines: members,
	})
	return true, nil
}

// collectLeft wraps any trailing lines that did not form a confirmed segment
// as a tentative segment, per the Peak/All leftover policies.
func (l *List) collectLeft() {
	begin := 0
	if last := l.Last(); last != nil {
		begin = last.endLine + 1
	}
	n := l.lineCnt()
	if n-begin < 3 {
		return
	}

	switch l.cfg.LeftMethod {
	case LeftAll:
		l.wrapLeft(begin, n-1)
	case LeftPeak:
		peak := begin
		for i := begin + 1; i < n; i++ {
			if l.lines(i).High() > l.lines(peak).High() || l.lines(i).Low() < l.lines(peak).Low() {
				peak = i
			}
		}
		if peak > begin && peak < n-1 {
			l.wrapLeft(begin, peak)
			if n-1-peak >= 3 {
				l.wrapLeft(peak+1, n-1)
			}
			return
		}
		l.wrapLeft(begin, n-1)
	}
}

func (l *List) wrapLeft(begin, end int) {
	if begin >= end {
		return
	}
	dir := structline.Up
	if l.lines(end).EndVal() < l.lines(begin).BeginVal() {
		dir = structline.Down
	}
	members := make([]int, 0, end-begin+1)
	for i := begin; i <= end; i++ {
		members = append(members, i)
	}
	l.segs = append(l.segs, Segment{
		idx: len(l.segs), dir: dir, beginLine: begin, endLine: end,
		sure: false, memberLines: members,
	})
}

// IndexBefore returns the index of the last segment whose EndLine is
// strictly less than lineLen, or -1 if none qualify. Used by the pipeline to
// translate a shrunk stroke-arena length into a segment truncation point.
func (l *List) IndexBefore(lineLen int) int {
	for i := len(l.segs) - 1; i >= 0; i-- {
		if l.segs[i].endLine < lineLen {
			return i
		}
	}
	return -1
}

// TruncateAfter drops every segment with index > idx.
func (l *List) TruncateAfter(idx int) {
	if idx+1 >= len(l.segs) {
		return
	}
	if idx < -1 {
		idx = -1
	}
	l.segs = l.segs[:idx+1]
}

// Line adapts segment i to the structline.Line capability set, so segments
// can themselves feed a second-level segment.List or a ZoneList.
type Line struct {
	l *List
	i int
}

func (l *List) LineAt(i int) Line { return Line{l: l, i: i} }

func (s Line) Idx() int           { return s.i }
func (s Line) IsSure() bool       { return s.l.At(s.i).sure }
func (s Line) Dir() structline.Dir { return s.l.At(s.i).dir }
func (s Line) BeginVal() float64  { return s.l.lines(s.l.At(s.i).beginLine).BeginVal() }
func (s Line) EndVal() float64    { return s.l.lines(s.l.At(s.i).endLine).EndVal() }
func (s Line) High() float64 {
	seg := s.l.At(s.i)
	hi := s.l.lines(seg.beginLine).High()
	for _, m := range seg.memberLines {
		if h := s.l.lines(m).High(); h > hi {
			hi = h
		}
	}
	return hi
}
func (s Line) Low() float64 {
	seg := s.l.At(s.i)
	lo := s.l.lines(seg.beginLine).Low()
	for _, m := range seg.memberLines {
		if v := s.l.lines(m).Low(); v < lo {
			lo = v
		}
	}
	return lo
}
func (s Line) BeginBar() int { return s.l.lines(s.l.At(s.i).beginLine).BeginBar() }
func (s Line) EndBar() int   { return s.l.lines(s.l.At(s.i).endLine).EndBar() }

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
