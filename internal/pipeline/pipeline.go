// Package pipeline orchestrates per-bar updates across every structural
// layer and enforces the top-down suffix-rollback discipline. Grounded on
// original_source/chan_core/src/analyzer.rs's Analyzer::add_k, which drives
// the identical bottom-up settle / top-down truncate sequence.
package pipeline

import (
	"github.com/forex24/czsc-go/internal/bar"
	"github.com/forex24/czsc-go/internal/czerr"
	"github.com/forex24/czsc-go/internal/indicator"
	"github.com/forex24/czsc-go/internal/merge"
	"github.com/forex24/czsc-go/internal/segment"
	"github.com/forex24/czsc-go/internal/signal"
	"github.com/forex24/czsc-go/internal/stroke"
	"github.com/forex24/czsc-go/internal/structline"
	"github.com/forex24/czsc-go/internal/zone"
)

// Config aggregates every layer's structural configuration.
type Config struct {
	Bar     bar.Config
	Merge   merge.Config
	Stroke  stroke.Config
	Segment segment.Config
	Zone    zone.Config
	Signal  signal.Config

	// SegSegment/SegZone configure the second structural level (§13): a
	// SegmentList and ZoneList built over confirmed Segments instead of
	// Strokes. No signal derivation runs at this level.
	SegSegment segment.Config
	SegZone    zone.Config
}

// DefaultConfig returns the reference's documented defaults for every
// sub-config. Config carries a single (stroke-level) signal config; the
// Slope-metric segSig built here is not stored in the result.
func DefaultConfig() Config {
	segSig := signal.DefaultConfig()
	segSig.MacdAlgo = structline.MacdSlope
	return Config{
		Bar:        bar.Config{},
		Merge:      merge.DefaultConfig(),
		Stroke:     stroke.DefaultConfig(),
		Segment:    segment.DefaultConfig(),
		Zone:       zone.DefaultConfig(),
		Signal:     signal.DefaultConfig(),
		SegSegment: segment.DefaultConfig(),
		SegZone:    zone.DefaultConfig(),
	}
}

// Input is one bar as it arrives at the ingest boundary (§6 Ingest).
type Input struct {
	TimestampSec int64
	Open, High, Low, Close, Volume float64
	Turnover     *float64
	TurnoverRate *float64
}

// SegLevel is the second structural level (§13): segments-of-segments and
// the zones built over them, parameterized by the same generic machinery
// as the core level.
type SegLevel struct {
	Segments *segment.List
	Zones    *zone.List
}

// Pipeline owns every arena and drives them bar by bar. Not safe for
// concurrent use; callers serialize access externally (§5).
type Pipeline struct {
	cfg Config

	bars    *bar.Arena
	merged  *merge.List
	strokes *stroke.List
	segs    *segment.List
	zones   *zone.List
	sigs    *signal.List

	seg2 SegLevel

	strokeLine        func(i int) structline.Line
	lastMergedSettled int
	prevStrokeLen     int
}

// New builds an empty Pipeline with the standard indicator hook set.
func New(cfg Config) *Pipeline {
	bars := bar.NewArena(cfg.Bar, indicator.Standard()...)
	merged := merge.NewList(cfg.Merge)
	strokes := stroke.NewList(cfg.Stroke, merged)
	strokeLine := func(i int) structline.Line { return strokes.LineAt(i) }
	segs := segment.NewList(cfg.Segment, strokeLine, strokes.Len)
	zones := zone.NewList(cfg.Zone, strokeLine, strokes.Len)
	sigs := signal.NewList(cfg.Signal, strokes, segs, zones, bars)

	segSegs := segment.NewList(cfg.SegSegment, segLineAdapter(segs), segs.Len)
	segZones := zone.NewList(cfg.SegZone, segLineAdapter(segs), segs.Len)

	return &Pipeline{
		cfg: cfg, bars: bars, merged: merged, strokes: strokes, segs: segs,
		zones: zones, sigs: sigs,
		seg2:              SegLevel{Segments: segSegs, Zones: segZones},
		strokeLine:        strokeLine,
		lastMergedSettled: -1,
	}
}

// segmentFilteredLines builds the "Normal construction" zone candidate
// view: for every confirmed segment, only the member lines running against
// that segment's own direction are eligible to seed or extend a zone,
// matching add_zs_from_bi_range's seg_dir exclusion. The returned accessors
// close over a snapshot rebuilt fresh on every call.
func segmentFilteredLines(segs *segment.List, lines func(int) structline.Line) (func(int) structline.Line, func() int) {
	idxs := make([]int, 0, segs.Len()*2)
	for s := 0; s < segs.Len(); s++ {
		seg := segs.At(s)
		if !seg.IsSure() {
			continue
		}
		for _, m := range seg.Members() {
			if lines(m).Dir() == seg.Dir() {
				continue
			}
			idxs = append(idxs, m)
		}
	}
	return func(i int) structline.Line { return lines(idxs[i]) }, func() int { return len(idxs) }
}

func segLineAdapter(segs *segment.List) func(int) structline.Line {
	return func(i int) structline.Line { return segs.LineAt(i) }
}

// Bars, Merged, Strokes, Segments, Zones, Signals expose read access to
// each layer for export and testing.
func (p *Pipeline) Bars() *bar.Arena        { return p.bars }
func (p *Pipeline) Merged() *merge.List     { return p.merged }
func (p *Pipeline) Strokes() *stroke.List   { return p.strokes }
func (p *Pipeline) Segments() *segment.List { return p.segs }
func (p *Pipeline) Zones() *zone.List       { return p.zones }
func (p *Pipeline) Signals() *signal.List   { return p.sigs }
func (p *Pipeline) SegLevel() SegLevel      { return p.seg2 }

// Append processes one bar through every layer. On *czerr.Error with code
// BarInvalid or KlTimeInconsistent the Pipeline is left unchanged; any
// other error is a programming-error hard failure per §7.
func (p *Pipeline) Append(in Input) error {
	turnover := 0.0
	if in.Turnover != nil {
		turnover = *in.Turnover
	}
	rate := 0.0
	if in.TurnoverRate != nil {
		rate = *in.TurnoverRate
	}

	b, err := p.bars.Push(bar.Bar{
		TimestampSec: in.TimestampSec, Open: in.Open, High: in.High, Low: in.Low,
		Close: in.Close, Volume: in.Volume, Turnover: turnover, TurnoverRate: rate,
	})
	if err != nil {
		return err
	}

	settled, err := p.merged.Push(merge.Bar{Idx: b.Idx, High: b.High, Low: b.Low})
	if err != nil {
		return czerr.Wrap(czerr.CombinerError, "merged-bar push failed", err)
	}

	// Revoke last tick's speculative tail before replaying any newly settled
	// merged bars, then re-speculate against the arena's current unsettled
	// tail merged bar. This runs every tick, not just ticks that settle a
	// fractal, so the exported stroke/segment/zone/signal state always
	// reflects the latest bar even before its merged bar closes.
	p.strokes.RevokeSpeculative()
	for i := p.lastMergedSettled + 1; i <= settled; i++ {
		if err := p.strokes.OnSettledMergedBar(i); err != nil {
			return err
		}
	}
	if settled >= 0 {
		p.lastMergedSettled = settled
	}
	if err := p.strokes.SpeculateTail(); err != nil {
		return err
	}

	if p.strokes.Len() < p.prevStrokeLen {
		// The previous tick's speculative suffix just retracted to something
		// shorter: roll segments (and, downstream of them, segments-of-
		// segments) back to the new stroke arena's bounds per the top-down
		// suffix-rollback discipline. Zones are rebuilt from scratch below
		// every tick regardless, so they need no explicit cascade here.
		p.segs.TruncateAfter(p.segs.IndexBefore(p.strokes.Len()))
		p.seg2.Segments.TruncateAfter(p.seg2.Segments.IndexBefore(p.segs.Len()))
	}
	p.prevStrokeLen = p.strokes.Len()

	if err := p.segs.Update(); err != nil {
		return err
	}

	// Zones are built over the per-segment, against-segment-direction-only
	// line run (Normal construction), not the raw unfiltered stroke arena.
	// The filtered view can change shape arbitrarily as segments are
	// revised, so the zone list is reset and fully rescanned each tick
	// rather than resuming an incremental cursor into a different sequence.
	filteredLines, filteredCnt := segmentFilteredLines(p.segs, p.strokeLine)
	p.zones.Rebind(filteredLines, filteredCnt)
	p.zones.TruncateAfter(-1)
	p.zones.Update()

	if err := p.sigs.Update(); err != nil {
		return err
	}

	if err := p.seg2.Segments.Update(); err != nil {
		return err
	}

	seg2Filtered, seg2Cnt := segmentFilteredLines(p.seg2.Segments, segLineAdapter(p.segs))
	p.seg2.Zones.Rebind(seg2Filtered, seg2Cnt)
	p.seg2.Zones.TruncateAfter(-1)
	p.seg2.Zones.Update()

	return nil
}

// TruncateAfterMergedBar rolls the pipeline back to its state as of a given
// merged-bar boundary: every merged bar after mbIdx is dropped, the stroke
// arena is walked back through sureEndStack to a confirmed end at or before
// mbIdx (dropping the stroke entirely if the stack runs out first), and
// every layer above is truncated and rebuilt from that point. This is the
// top-down counterpart to Append's bottom-up settle loop, used when a
// merged bar's settled fractal needs correcting after the fact rather than
// by the normal forward append path.
func (p *Pipeline) TruncateAfterMergedBar(mbIdx int) error {
	p.merged.TruncateAfter(mbIdx)
	p.strokes.TruncateAfterMerged(mbIdx)
	if mbIdx < p.lastMergedSettled {
		p.lastMergedSettled = mbIdx
	}
	p.prevStrokeLen = p.strokes.Len()

	p.segs.TruncateAfter(p.segs.IndexBefore(p.strokes.Len()))
	if err := p.segs.Update(); err != nil {
		return err
	}

	filteredLines, filteredCnt := segmentFilteredLines(p.segs, p.strokeLine)
	p.zones.Rebind(filteredLines, filteredCnt)
	p.zones.TruncateAfter(-1)
	p.zones.Update()

	if err := p.sigs.Update(); err != nil {
		return err
	}

	p.seg2.Segments.TruncateAfter(p.seg2.Segments.IndexBefore(p.segs.Len()))
	if err := p.seg2.Segments.Update(); err != nil {
		return err
	}

	seg2Filtered, seg2Cnt := segmentFilteredLines(p.seg2.Segments, segLineAdapter(p.segs))
	p.seg2.Zones.Rebind(seg2Filtered, seg2Cnt)
	p.seg2.Zones.TruncateAfter(-1)
	p.seg2.Zones.Update()

	return nil
}

// AppendMany processes bars in order, stopping at the first hard failure.
// A BarInvalid/KlTimeInconsistent rejection is reported but does not abort
// the remaining bars, matching the "tagged failure, no silent skipping"
// error policy (§7): the caller sees every rejection via the returned slice.
func (p *Pipeline) AppendMany(inputs []Input) []error {
	errs := make([]error, 0)
	for _, in := range inputs {
		if err := p.Append(in); err != nil {
			if ce, ok := err.(*czerr.Error); ok && ce.Code.IsKLDataErr() {
				errs = append(errs, err)
				continue
			}
			errs = append(errs, err)
			return errs
		}
	}
	return errs
}

// Snapshot is a point-in-time export row-set, consumed by internal/httpapi
// and internal/exportcsv.
type Snapshot struct {
	BarCount     int
	MergedCount  int
	StrokeCount  int
	SegmentCount int
	ZoneCount    int
	SignalCount  int
}

// Snapshot summarizes the current structural state. The concrete row-set
// projections (per §6 Export's stable columns) live in internal/exportcsv
// and internal/httpapi, which read the layer accessors above directly.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		BarCount: p.bars.Len(), MergedCount: p.merged.Len(), StrokeCount: p.strokes.Len(),
		SegmentCount: p.segs.Len(), ZoneCount: p.zones.Len(), SignalCount: p.sigs.Len(),
	}
}
