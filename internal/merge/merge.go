// Package merge folds a raw bar sequence into direction-aware merged bars
// and assigns fractal type to settled merged bars. Grounded on
// original_source/chan_core/src/kline/kline.rs (KLine::test_combine/try_add)
// and kline_list.rs (KLineList::add_single_klu) and kline_unit.rs's
// update_fx fractal computation.
package merge

import "github.com/forex24/czsc-go/internal/czerr"

// Dir is a structural direction, shared in spirit by every layer above bars.
type Dir int

const (
	Up Dir = iota
	Down
)

func (d Dir) Opposite() Dir {
	if d == Up {
		return Down
	}
	return Up
}

// Fractal classifies a settled MergedBar relative to its two neighbors.
type Fractal int

const (
	NoFractal Fractal = iota
	Top
	Bottom
)

// Combine classifies the relationship between a merged bar and an arriving
// bar's range.
type Combine int

const (
	CombineFold Combine = iota // full containment either direction
	CombineUp                  // strictly above
	CombineDown                // strictly below
)

// Config controls fractal strictness. AllowTopEqual permits the dominant
// side of a fractal test to tie rather than strictly exceed, matching the
// reference's allow_top_equal flag. ExcludeIncluded switches update_fx to
// the asymmetric comparison branch used when containment folding itself
// runs in exclude-included mode, rather than the plain four-neighbor test.
type Config struct {
	AllowTopEqual   bool
	ExcludeIncluded bool
}

// DefaultConfig matches the reference's strict default.
func DefaultConfig() Config { return Config{AllowTopEqual: false, ExcludeIncluded: false} }

// Bar is the minimal raw-bar view MergedBarList folds over; internal/bar.Bar
// satisfies it via an adapter in pipeline wiring, keeping this package free
// of a dependency on the bar package's indicator fields.
type Bar struct {
	Idx    int
	High   float64
	Low    float64
}

// MergedBar is an ordered, non-empty run of contiguous raw bars.
type MergedBar struct {
	Idx        int
	Dir        Dir
	High       float64
	Low        float64
	BeginBar   int // raw bar index of the first member
	EndBar     int // raw bar index of the last member
	Members    []int
	Fractal    Fractal
	// Gap records whether this merged bar's near extreme fails to touch its
	// predecessor's far extreme, used by the segment layer's gap-validated
	// termination check (eigen.rs's identical gap field repurposed one level
	// up for characteristic elements).
	Gap bool
}

// List is the append-only folded sequence.
type List struct {
	cfg  Config
	bars []MergedBar
}

// NewList creates an empty merged-bar list.
func NewList(cfg Config) *List { return &List{cfg: cfg} }

// Len returns the number of merged bars.
func (l *List) Len() int { return len(l.bars) }

// At returns a pointer to the merged bar at idx.
func (l *List) At(idx int) *MergedBar { return &l.bars[idx] }

// Last returns a pointer to the tail merged bar, or nil if empty.
func (l *List) Last() *MergedBar {
	if len(l.bars) == 0 {
		return nil
	}
	return &l.bars[len(l.bars)-1]
}

func classify(tailHigh, tailLow, high, low float64) Combine {
	contains := (tailHigh >= high && tailLow <= low) || (high >= tailHigh && low <= tailLow)
	if contains {
		return CombineFold
	}
	if high > tailHigh && low > tailLow {
		return CombineUp
	}
	if high < tailHigh && low < tailLow {
		return CombineDown
	}
	// Unreachable given classify is only ever called on two non-identical,
	// non-containing ranges; overlapping-but-incomparable ranges cannot
	// occur for contiguous price bars.
	return -1
}

// Push folds one raw bar into the sequence. Returns the index of the merged
// bar that just became settled (i.e. is no longer the tail and is eligible
// for fractal/stroke consumption), or -1 if no merged bar settled this call.
func (l *List) Push(b Bar) (settledIdx int, err error) {
	if len(l.bars) == 0 {
		l.bars = append(l.bars, MergedBar{
			Idx: 0, Dir: Up, High: b.High, Low: b.Low,
			BeginBar: b.Idx, EndBar: b.Idx, Members: []int{b.Idx},
		})
		return -1, nil
	}

	tail := &l.bars[len(l.bars)-1]
	switch classify(tail.High, tail.Low, b.High, b.Low) {
	case CombineFold:
		switch tail.Dir {
		case Up:
			tail.High = maxF(tail.High, b.High)
			tail.Low = maxF(tail.Low, b.Low)
		case Down:
			tail.High = minF(tail.High, b.High)
			tail.Low = minF(tail.Low, b.Low)
		}
		tail.EndBar = b.Idx
		tail.Members = append(tail.Members, b.Idx)
		return -1, nil

	case CombineUp:
		return l.openNew(Up, b)

	case CombineDown:
		return l.openNew(Down, b)

	default:
		return -1, czerr.New(czerr.CombinerError, "merged-bar combine relation could not be classified")
	}
}

func (l *List) openNew(dir Dir, b Bar) (int, error) {
	prevTail := &l.bars[len(l.bars)-1]
	gap := false
	switch dir {
	case Up:
		gap = b.Low > prevTail.High
	case Down:
		gap = b.High < prevTail.Low
	}
	l.bars = append(l.bars, MergedBar{
		Idx: len(l.bars), Dir: dir, High: b.High, Low: b.Low,
		BeginBar: b.Idx, EndBar: b.Idx, Members: []int{b.Idx}, Gap: gap,
	})
	settled := -1
	if len(l.bars) >= 3 {
		i := len(l.bars) - 2
		l.updateFractal(i)
		settled = i
	}
	return settled, nil
}

func (l *List) updateFractal(i int) {
	cur := &l.bars[i]
	pre := &l.bars[i-1]
	next := &l.bars[i+1]

	cur.Fractal = NoFractal

	if l.cfg.ExcludeIncluded {
		// update_fx's exclude_included branch: asymmetric comparisons since a
		// folded-containment neighbor can tie on one side without disqualifying
		// the fractal, with allow_top_equal as a one-sided equality escape.
		switch {
		case pre.High < cur.High && next.High <= cur.High && next.Low < cur.Low:
			if l.cfg.AllowTopEqual || next.High < cur.High {
				cur.Fractal = Top
			}
		case next.High > cur.High && pre.Low > cur.Low && next.Low >= cur.Low:
			if l.cfg.AllowTopEqual || next.Low > cur.Low {
				cur.Fractal = Bottom
			}
		}
		return
	}

	var top, bottom bool
	if l.cfg.AllowTopEqual {
		top = cur.High >= pre.High && cur.High >= next.High && cur.Low > pre.Low && cur.Low > next.Low
		bottom = cur.Low <= pre.Low && cur.Low <= next.Low && cur.High < pre.High && cur.High < next.High
	} else {
		top = cur.High > pre.High && cur.High > next.High && cur.Low > pre.Low && cur.Low > next.Low
		bottom = cur.Low < pre.Low && cur.Low < next.Low && cur.High < pre.High && cur.High < next.High
	}

	switch {
	case top:
		cur.Fractal = Top
	case bottom:
		cur.Fractal = Bottom
	}
}

// TruncateAfter drops every merged bar with index > idx. The new tail no
// longer has a settled next neighbor, so its fractal classification (if any)
// is no longer valid and is reset.
func (l *List) TruncateAfter(idx int) {
	if idx+1 >= len(l.bars) {
		return
	}
	if idx < -1 {
		idx = -1
	}
	l.bars = l.bars[:idx+1]
	if idx >= 0 {
		l.bars[idx].Fractal = NoFractal
	}
}

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
