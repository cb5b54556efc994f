// Package structline defines the capability set shared by strokes and
// segments (spec design note: "Polymorphism over {Stroke, Segment}") and the
// MACD-family divergence metric computed over it. Grounded on
// original_source/chan_core/src/bi/bi.rs's cal_macd_metric dispatch and
// original_source/chan_core/src/seg/seg.rs's narrower Slope/Amp variant.
//
// ZoneList and SignalList are generic over Line so the same code serves both
// the stroke-level and segment-level (and, one level up, the
// segment-of-segments level) structural passes.
package structline

import "github.com/forex24/czsc-go/internal/bar"

// Dir mirrors merge.Dir without importing it, so this package stays a leaf
// that both merge-dependent packages (stroke) and stroke-dependent packages
// (segment) can import without a cycle.
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

// Line is the capability set zones and signals consume: direction, price
// extremes, the raw-bar span backing the object, and a divergence metric.
type Line interface {
	Idx() int
	Dir() Dir
	IsSure() bool
	BeginVal() float64
	EndVal() float64
	High() float64
	Low() float64
	BeginBar() int // raw bar index, inclusive
	EndBar() int   // raw bar index, inclusive
}

// MacdAlgo selects the divergence-test metric. Both "volumn" (reference
// misspelling) and "volume" normalize to MacdVolume per the design notes.
type MacdAlgo int

const (
	MacdArea MacdAlgo = iota
	MacdPeak
	MacdFullArea
	MacdDiff
	MacdSlope
	MacdAmp
	MacdVolume
	MacdAmount
	MacdVolumeAvg
	MacdAmountAvg
	MacdTurnRateAvg
	MacdRSI
)

// ParseMacdAlgo accepts both canonical spellings used across the reference
// (including the "volumn" misspelling) and normalizes them.
func ParseMacdAlgo(s string) (MacdAlgo, bool) {
	switch s {
	case "area":
		return MacdArea, true
	case "peak":
		return MacdPeak, true
	case "full_area":
		return MacdFullArea, true
	case "diff":
		return MacdDiff, true
	case "slope":
		return MacdSlope, true
	case "amp":
		return MacdAmp, true
	case "volume", "volumn":
		return MacdVolume, true
	case "amount":
		return MacdAmount, true
	case "volume_avg", "volumn_avg":
		return MacdVolumeAvg, true
	case "amount_avg":
		return MacdAmountAvg, true
	case "turnrate_avg":
		return MacdTurnRateAvg, true
	case "rsi":
		return MacdRSI, true
	default:
		return 0, false
	}
}

const epsilon = 1e-7

// Metric computes l's MACD-family metric over its backing raw-bar range.
// When reverse is true, the one direction-sensitive metric (RSI) is
// evaluated as though l ran in the opposite direction, matching the
// reference's use of the same line object as both an "in" metric (natural
// direction) and an "out" metric (reverse=true) in a single divergence test.
func Metric(l Line, bars *bar.Arena, algo MacdAlgo, reverse bool) float64 {
	dir := l.Dir()
	if reverse {
		dir = dir.Opposite()
	}
	begin, end := l.BeginBar(), l.EndBar()
	if begin > end {
		begin, end = end, begin
	}

	switch algo {
	case MacdArea, MacdFullArea:
		sum := 0.0
		for i := begin; i <= end; i++ {
			h := bars.At(i).Indicators.MACD.Hist
			if h < 0 {
				h = -h
			}
			sum += h
		}
		return maxF(sum, epsilon)

	case MacdPeak:
		peak := 0.0
		for i := begin; i <= end; i++ {
			h := bars.At(i).Indicators.MACD.Hist
			if h < 0 {
				h = -h
			}
			if h > peak {
				peak = h
			}
		}
		return maxF(peak, epsilon)

	case MacdDiff:
		d := bars.At(end).Indicators.MACD.DIF - bars.At(begin).Indicators.MACD.DIF
		if d < 0 {
			d = -d
		}
		return maxF(d, epsilon)

	case MacdSlope:
		cnt := float64(end - begin + 1)
		amp := l.High() - l.Low()
		if cnt <= 0 {
			return epsilon
		}
		return maxF(amp/cnt, epsilon)

	case MacdAmp:
		return maxF(l.High()-l.Low(), epsilon)

	case MacdVolume:
		sum := 0.0
		for i := begin; i <= end; i++ {
			sum += bars.At(i).Volume
		}
		return maxF(sum, epsilon)

	case MacdAmount:
		sum := 0.0
		for i := begin; i <= end; i++ {
			sum += bars.At(i).Turnover
		}
		return maxF(sum, epsilon)

	case MacdVolumeAvg:
		sum := 0.0
		for i := begin; i <= end; i++ {
			sum += bars.At(i).Volume
		}
		return maxF(sum/float64(end-begin+1), epsilon)

	case MacdAmountAvg:
		sum := 0.0
		for i := begin; i <= end; i++ {
			sum += bars.At(i).Turnover
		}
		return maxF(sum/float64(end-begin+1), epsilon)

	case MacdTurnRateAvg:
		sum := 0.0
		for i := begin; i <= end; i++ {
			sum += bars.At(i).TurnoverRate
		}
		return maxF(sum/float64(end-begin+1), epsilon)

	case MacdRSI:
		if dir == Down {
			min := 100.0
			for i := begin; i <= end; i++ {
				if v := bars.At(i).Indicators.RSI.Value; v < min {
					min = v
				}
			}
			return 10000.0 / (min + epsilon)
		}
		max := 0.0
		for i := begin; i <= end; i++ {
			if v := bars.At(i).Indicators.RSI.Value; v > max {
				max = v
			}
		}
		return maxF(max, epsilon)

	default:
		return epsilon
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
