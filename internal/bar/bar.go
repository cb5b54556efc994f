// Package bar holds the raw price-bar arena, the bottom of the structural
// pipeline. Grounded on original_source/chan_core/src/kline/kline_unit.rs
// (KLineUnit::new/check) for the OHLC-ordering validation rule.
package bar

import (
	"github.com/forex24/czsc-go/internal/czerr"
)

// Bar is one immutable raw price bar. TimestampSec is seconds since epoch.
type Bar struct {
	Idx          int
	TimestampSec int64
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	Turnover     float64
	TurnoverRate float64

	// Indicators is populated in order by the arena's Hooks before the bar
	// becomes visible to MergedBarList; see internal/indicator.
	Indicators Indicators
}

// Indicators carries the per-bar outputs of the auxiliary indicator set.
// Fields default to zero value / Valid=false until the indicator has
// accumulated enough history, mirroring the donor's RSIResult/ATRResult
// "IsValid" value-object convention.
type Indicators struct {
	MACD   MACDValue
	BOLL   BOLLValue
	RSI    RSIValue
	KDJ    KDJValue
	DeMark DeMarkValue
}

// MACDValue is one bar's MACD triple.
type MACDValue struct {
	DIF, DEA, Hist float64
	Valid          bool
}

// BOLLValue is one bar's Bollinger band triple.
type BOLLValue struct {
	Mid, Upper, Lower float64
	Valid             bool
}

// RSIValue is one bar's RSI reading.
type RSIValue struct {
	Value float64
	Valid bool
}

// KDJValue is one bar's stochastic KDJ reading.
type KDJValue struct {
	K, D, J float64
	Valid   bool
}

// DeMarkValue is one bar's TD Sequential setup/countdown reading. Count is
// the current run length (positive while each close is above the close four
// bars earlier, negative while it is below); Perfected marks a count of
// exactly 9 in either direction, Valid gates the warm-up
// window before the setup's reference bars exist.
type DeMarkValue struct {
	Count     int
	Perfected bool
	Valid     bool
}

// Hook is an opaque per-bar indicator plugin. It receives the bar being
// inserted and the previous bar (nil for the first bar) and writes its
// output into cur.Indicators. Grounded on the Rust MetricModel trait's
// update_kline_unit.
type Hook interface {
	Update(prev, cur *Bar)
}

// Config controls BarArena.Push validation.
type Config struct {
	// AutoFixOHLC tightens low/high to contain open/close instead of
	// rejecting the bar. Default false: rejection is the default per the
	// error-handling design.
	AutoFixOHLC bool
}

// Arena is the append-only store of raw bars with stable indices.
type Arena struct {
	cfg   Config
	bars  []Bar
	hooks []Hook
}

// NewArena creates an empty bar arena.
func NewArena(cfg Config, hooks ...Hook) *Arena {
	return &Arena{cfg: cfg, hooks: hooks}
}

// Len returns the number of bars currently stored.
func (a *Arena) Len() int { return len(a.bars) }

// At returns a pointer to the bar at idx.
func (a *Arena) At(idx int) *Bar { return &a.bars[idx] }

// Last returns a pointer to the most recently pushed bar, or nil if empty.
func (a *Arena) Last() *Bar {
	if len(a.bars) == 0 {
		return nil
	}
	return &a.bars[len(a.bars)-1]
}

// Push validates and appends a new bar, running indicator hooks over it
// before it becomes visible via At/Last. Returns *czerr.Error with code
// BarInvalid/KlTimeInconsistent on validation failure, leaving the arena
// unchanged.
func (a *Arena) Push(b Bar) (*Bar, error) {
	prev := a.Last()
	if prev != nil && b.TimestampSec <= prev.TimestampSec {
		return nil, czerr.Newf(czerr.KlTimeInconsistent,
			"bar timestamp %d must be strictly greater than previous %d", b.TimestampSec, prev.TimestampSec)
	}

	lo, hi := minF(b.Open, b.Close), maxF(b.Open, b.Close)
	if b.Low > lo || b.High < hi {
		if !a.cfg.AutoFixOHLC {
			return nil, czerr.Newf(czerr.BarInvalid,
				"OHLC ordering violated: low=%g high=%g open=%g close=%g", b.Low, b.High, b.Open, b.Close)
		}
		if b.Low > lo {
			b.Low = lo
		}
		if b.High < hi {
			b.High = hi
		}
	}

	b.Idx = len(a.bars)
	a.bars = append(a.bars, b)
	cur := &a.bars[len(a.bars)-1]
	for _, h := range a.hooks {
		h.Update(prev, cur)
	}
	return cur, nil
}

// TruncateAfter drops every bar with index > idx.
func (a *Arena) TruncateAfter(idx int) {
	if idx+1 >= len(a.bars) {
		return
	}
	if idx < -1 {
		idx = -1
	}
	a.bars = a.bars[:idx+1]
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
