// Package signal derives typed buy/sell points (BSP) from confirmed
// segments, their attached zones, and divergence tests over strokes.
// Grounded on original_source/chan_core/src/bsp/bs_point_list.rs
// (treat_bsp1/treat_bsp2/treat_bsp2s/treat_bsp3) and bs_point_config.rs.
//
// Simplified relative to the reference: the zone-exit chain Type-2 search
// scans a segment's member strokes directly rather than maintaining a
// persistent exit-chain index, and BSP2S's level cap (max_bsp2s_lv) is
// enforced by counting how many Type-2-Strict signals already chain off a
// given Type-1 rather than by a recursive per-call descent, since each
// further level naturally arrives on a later segment's own treatBSP2 call.
package signal

import (
	"github.com/forex24/czsc-go/internal/bar"
	"github.com/forex24/czsc-go/internal/segment"
	"github.com/forex24/czsc-go/internal/stroke"
	"github.com/forex24/czsc-go/internal/structline"
	"github.com/forex24/czsc-go/internal/zone"
)

// Type is a buy/sell point label. A single Signal may carry several.
type Type int

const (
	T1 Type = iota
	T1Peak
	T2
	T2Strict
	T3After
	T3Before
)

func (t Type) String() string {
	switch t {
	case T1:
		return "T1"
	case T1Peak:
		return "T1Peak"
	case T2:
		return "T2"
	case T2Strict:
		return "T2Strict"
	case T3After:
		return "T3AfterZone"
	case T3Before:
		return "T3BeforeZone"
	default:
		return "UNKNOWN"
	}
}

// Config mirrors the reference BSPointConfig toggles.
type Config struct {
	DivergenceRate float64
	MinZoneCnt     int
	MacdAlgo       structline.MacdAlgo
	BS1Peak        bool
	BSP2Follow1    bool
	BSP3Follow1    bool
	BSP3Peak       bool
	BSP2SFollow2   bool
	StrictBSP3     bool
	MaxBSP2SLv     *int
}

// DefaultConfig sets signal.divergence_rate to 0.9, a documented deviation
// from the reference's permissive 0.0 default (see DESIGN.md).
func DefaultConfig() Config {
	return Config{
		DivergenceRate: 0.9,
		MinZoneCnt:     1,
		MacdAlgo:       structline.MacdPeak,
		BS1Peak:        true,
		BSP2Follow1:    true,
		BSP3Follow1:    true,
		BSP2SFollow2:   true,
	}
}

// Signal is one typed buy/sell point, anchored at a stroke index.
type Signal struct {
	idx       int
	strokeIdx int
	endBar    int
	segIdx    int
	isBuy     bool
	types     []Type
	relatedT1 *int
	features  map[string]float64
}

func (s *Signal) Idx() int             { return s.idx }
func (s *Signal) StrokeIdx() int       { return s.strokeIdx }
func (s *Signal) IsBuy() bool          { return s.isBuy }
func (s *Signal) Types() []Type        { return s.types }
func (s *Signal) RelatedT1() (int, bool) {
	if s.relatedT1 == nil {
		return 0, false
	}
	return *s.relatedT1, true
}
func (s *Signal) Features() map[string]float64 { return s.features }
func (s *Signal) Has(t Type) bool {
	for _, x := range s.types {
		if x == t {
			return true
		}
	}
	return false
}

// List derives and maintains signals over a segment list, the stroke list
// it was built from, the zone list attached to those strokes, and the bar
// arena backing divergence metrics.
type List struct {
	cfg     Config
	strokes *stroke.List
	segs    *segment.List
	zones   *zone.List
	bars    *bar.Arena

	signals []Signal
	seenBar map[int]bool // end-raw-bar index -> emitted, for dedup
}

// NewList creates an empty signal list over the given structural layers.
func NewList(cfg Config, strokes *stroke.List, segs *segment.List, zones *zone.List, bars *bar.Arena) *List {
	return &List{cfg: cfg, strokes: strokes, segs: segs, zones: zones, bars: bars, seenBar: map[int]bool{}}
}

func (l *List) Len() int         { return len(l.signals) }
func (l *List) At(i int) *Signal { return &l.signals[i] }

// Update re-derives signals for every confirmed segment, pruning the
// seen-bar dedup set beyond the current segment count first (segments may
// have been rolled back since the last call).
func (l *List) Update() error {
	l.pruneToSegCount()
	for si := 0; si < l.segs.Len(); si++ {
		seg := l.segs.At(si)
		if !seg.IsSure() {
			continue
		}
		t1 := l.treatBSP1(si, seg)
		if l.cfg.BSP2Follow1 {
			l.treatBSP2(si, seg, t1)
		}
		if l.cfg.BSP3Follow1 {
			l.treatBSP3(si, seg, t1)
			if l.cfg.StrictBSP3 {
				l.treatBSP3Before(si, seg, t1)
			}
		}
	}
	return nil
}

func (l *List) pruneToSegCount() {
	lastValidSeg := -1
	if l.segs.Len() > 0 {
		lastValidSeg = l.segs.Len() - 1
	}
	out := l.signals[:0:0]
	for _, s := range l.signals {
		if s.segIdx <= lastValidSeg {
			out = append(out, s)
		} else {
			delete(l.seenBar, s.endBar)
		}
	}
	l.signals = out
}

func (l *List) emit(segIdx, strokeIdx int, isBuy bool, types []Type, related *int, features map[string]float64) *int {
	endBar := l.strokes.EndBar(strokeIdx)
	if l.seenBar[endBar] {
		return nil
	}
	idx := len(l.signals)
	l.signals = append(l.signals, Signal{
		idx: idx, strokeIdx: strokeIdx, endBar: endBar, segIdx: segIdx,
		isBuy: isBuy, types: types, relatedT1: related, features: features,
	})
	l.seenBar[endBar] = true
	return &idx
}

// attachedZones returns the indices of zones whose begin-stroke falls
// within [seg.BeginLine(), seg.EndLine()], in order.
func (l *List) attachedZones(seg *segment.Segment) []int {
	var out []int
	for zi := 0; zi < l.zones.Len(); zi++ {
		z := l.zones.At(zi)
		if z.BeginLine() >= seg.BeginLine() && z.BeginLine() <= seg.EndLine() {
			out = append(out, zi)
		}
	}
	return out
}

// treatBSP1 mirrors treat_bsp1: a segment's last attached zone, if valid,
// drives a divergence test against the configured metric; an invalid last
// zone falls back to the simpler "PZ-BSP1" path.
func (l *List) treatBSP1(segIdx int, seg *segment.Segment) *int {
	isBuy := seg.Dir() == structline.Down

	zones := l.attachedZones(seg)
	minZones := l.cfg.MinZoneCnt
	if minZones < 1 {
		minZones = 1
	}
	pzBSP1 := func() *int {
		if seg.EndLine()-seg.BeginLine()+1 >= 3 {
			return l.emit(segIdx, seg.EndLine(), isBuy, []Type{T1}, nil, map[string]float64{})
		}
		return nil
	}
	if len(zones) < minZones {
		return pzBSP1()
	}

	last := l.zones.At(zones[len(zones)-1])
	if len(last.Members()) < 2 {
		return pzBSP1()
	}
	exitIdx := last.EndLine() + 1
	if exitIdx < seg.EndLine() {
		return pzBSP1()
	}
	if seg.EndLine()-last.BeginLine() <= 2 {
		return pzBSP1()
	}

	enterIdx := last.BeginLine() - 1
	if enterIdx < 0 {
		enterIdx = last.BeginLine()
	}
	outIdx := exitIdx
	if outIdx >= l.strokes.Len() {
		outIdx = last.EndLine()
	}

	enterLine := l.strokes.LineAt(enterIdx)
	outLine := l.strokes.LineAt(outIdx)
	inMetric := structline.Metric(enterLine, l.bars, l.cfg.MacdAlgo, false)
	outMetric := structline.Metric(outLine, l.bars, l.cfg.MacdAlgo, true)
	ratio := outMetric / inMetric
	diverges := l.cfg.DivergenceRate > 100 || outMetric <= l.cfg.DivergenceRate*inMetric

	breakPeak := true
	for _, m := range last.Members() {
		if m == last.EndLine() {
			continue
		}
		member := l.strokes.LineAt(m)
		if seg.Dir() == structline.Up {
			if l.strokes.LineAt(last.EndLine()).High() <= member.High() {
				breakPeak = false
			}
		} else {
			if l.strokes.LineAt(last.EndLine()).Low() >= member.Low() {
				breakPeak = false
			}
		}
	}

	if (l.cfg.BS1Peak && !breakPeak) || !diverges {
		return nil
	}

	types := []Type{T1}
	if breakPeak {
		types = append(types, T1Peak)
	}
	features := map[string]float64{
		"zone_height_rel": (last.High() - last.Low()) / maxF(last.High(), 1e-9),
		"stroke_amplitude": l.strokes.High(seg.EndLine()) - l.strokes.Low(seg.EndLine()),
		"bsp1_divergence_rate": ratio,
	}
	return l.emit(segIdx, seg.EndLine(), isBuy, types, nil, features)
}

// treatBSP2 locates the latest Type-1 signal on a stroke within this
// segment and emits a Type-2 at the segment's end stroke.
func (l *List) treatBSP2(segIdx int, seg *segment.Segment, t1 *int) {
	var related *int
	for i := len(l.signals) - 1; i >= 0; i-- {
		s := &l.signals[i]
		if s.strokeIdx < seg.BeginLine() || s.strokeIdx > seg.EndLine() {
			continue
		}
		if s.Has(T1) {
			idx := s.idx
			related = &idx
			break
		}
	}
	if related == nil {
		return
	}
	isBuy := seg.Dir() == structline.Down
	features := map[string]float64{"stroke_amplitude": l.strokes.High(seg.EndLine()) - l.strokes.Low(seg.EndLine())}
	newIdx := l.emit(segIdx, seg.EndLine(), isBuy, []Type{T2}, related, features)
	if newIdx == nil || !l.cfg.BSP2SFollow2 {
		return
	}
	l.treatBSP2Strict(segIdx, seg, *related)
}

// treatBSP2Strict walks the segment's strokes for one already carrying a
// Type-2, then checks whether the segment's end stroke breaks that
// stroke's extreme. Each emission is one more level in the Type-1's BSP2S
// chain; MaxBSP2SLv, when set, caps how many levels that chain may reach.
func (l *List) treatBSP2Strict(segIdx int, seg *segment.Segment, relatedT1 int) {
	var t2Stroke *int
	for i := range l.signals {
		s := &l.signals[i]
		if s.strokeIdx < seg.BeginLine() || s.strokeIdx >= seg.EndLine() {
			continue
		}
		if s.Has(T2) {
			idx := s.strokeIdx
			t2Stroke = &idx
		}
	}
	if t2Stroke == nil {
		return
	}
	end := seg.EndLine()
	broke := false
	if seg.Dir() == structline.Up {
		broke = l.strokes.High(end) > l.strokes.High(*t2Stroke)
	} else {
		broke = l.strokes.Low(end) < l.strokes.Low(*t2Stroke)
	}
	if !broke {
		return
	}
	if l.cfg.MaxBSP2SLv != nil && l.bsp2sLevel(relatedT1) >= *l.cfg.MaxBSP2SLv {
		return
	}
	isBuy := seg.Dir() == structline.Down
	l.emit(segIdx, end, isBuy, []Type{T2Strict}, &relatedT1, map[string]float64{})
}

// bsp2sLevel counts how many Type-2-Strict signals already chain off the
// given Type-1, i.e. the running depth MaxBSP2SLv caps.
func (l *List) bsp2sLevel(relatedT1 int) int {
	n := 0
	for i := range l.signals {
		s := &l.signals[i]
		if s.Has(T2Strict) && s.relatedT1 != nil && *s.relatedT1 == relatedT1 {
			n++
		}
	}
	return n
}

// treatBSP3 searches the next segment's strokes (step 2, starting two past
// the Type-1's stroke) for a candidate that does not re-enter the zone,
// emitting Type-3-AfterZone on the first qualifying stroke.
func (l *List) treatBSP3(segIdx int, seg *segment.Segment, t1 *int) {
	if t1 == nil {
		return
	}
	t1Sig := l.At(*t1)
	zones := l.attachedZones(seg)
	if len(zones) == 0 {
		return
	}
	z := l.zones.At(zones[len(zones)-1])

	nextSegIdx := segIdx + 1
	if nextSegIdx >= l.segs.Len() {
		return
	}
	next := l.segs.At(nextSegIdx)

	for i := t1Sig.strokeIdx + 2; i <= next.EndLine(); i += 2 {
		if i < next.BeginLine() && i != l.strokes.Len()-1 {
			continue
		}
		candidate := l.strokes.LineAt(i)
		back2zs := false
		if next.Dir() == structline.Down {
			back2zs = candidate.Low() < z.High()
		} else {
			back2zs = candidate.High() > z.Low()
		}
		if back2zs {
			continue
		}
		breaksPeak := false
		if l.cfg.BSP3Peak {
			if next.Dir() == structline.Down {
				breaksPeak = candidate.Low() < z.Low()
			} else {
				breaksPeak = candidate.High() > z.High()
			}
		}
		isBuy := next.Dir() == structline.Down
		features := map[string]float64{
			"zone_height": z.High() - z.Low(),
			"stroke_amplitude": candidate.High() - candidate.Low(),
		}
		if l.cfg.BSP3Peak && !breaksPeak {
			continue
		}
		l.emit(nextSegIdx, i, isBuy, []Type{T3After}, t1, features)
		return
	}
}

// treatBSP3Before mirrors the "before" zone-exit variant: rather than
// waiting for the next segment to complete (treatBSP3's after-zone walk),
// it searches the current segment's own tail strokes from the zone exit
// onward for a candidate that already clears the zone without re-entering
// it, emitting Type-3-BeforeZone there. Only run when StrictBSP3 asks for
// both variants to be tried.
func (l *List) treatBSP3Before(segIdx int, seg *segment.Segment, t1 *int) {
	if t1 == nil {
		return
	}
	t1Sig := l.At(*t1)
	zones := l.attachedZones(seg)
	if len(zones) == 0 {
		return
	}
	z := l.zones.At(zones[0])
	if len(z.Members()) < 2 {
		return
	}

	for i := t1Sig.strokeIdx + 2; i <= seg.EndLine(); i += 2 {
		candidate := l.strokes.LineAt(i)
		back2zs := false
		if seg.Dir() == structline.Down {
			back2zs = candidate.Low() < z.High()
		} else {
			back2zs = candidate.High() > z.Low()
		}
		if back2zs {
			continue
		}
		isBuy := seg.Dir() == structline.Down
		features := map[string]float64{
			"zone_height": z.High() - z.Low(),
			"stroke_amplitude": candidate.High() - candidate.Low(),
		}
		l.emit(segIdx, i, isBuy, []Type{T3Before}, t1, features)
		return
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
