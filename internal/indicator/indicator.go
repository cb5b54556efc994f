// Package indicator computes the per-bar auxiliary indicators (MACD, BOLL,
// RSI, KDJ, DeMark) consumed as opaque divergence-test inputs by the stroke
// and segment layers. Grounded on
// original_source/chan_core/src/math/macd.rs for the EMA/DEA/histogram
// recurrence, and on the donor's internal/domain/indicators/technical.go for
// the "compute into a Valid-flagged value object" shape.
package indicator

import (
	"math"

	"github.com/forex24/czsc-go/internal/bar"
)

// MACD implements bar.Hook, maintaining short/long EMAs and the signal line.
type MACD struct {
	shortPeriod, longPeriod, signalPeriod int
	shortEMA, longEMA, dea                float64
	count                                 int
}

// NewMACD builds a MACD hook with the standard 12/26/9 periods.
func NewMACD() *MACD { return &MACD{shortPeriod: 12, longPeriod: 26, signalPeriod: 9} }

func ema(prev, price float64, period int) float64 {
	k := 2.0 / (float64(period) + 1.0)
	return prev + k*(price-prev)
}

// Update implements bar.Hook. The first tick seeds both EMAs to the price
// itself rather than waiting for a warm-up window, matching MACD::add in the
// reference.
func (m *MACD) Update(prev, cur *bar.Bar) {
	price := cur.Close
	if m.count == 0 {
		m.shortEMA, m.longEMA, m.dea = price, price, 0
	} else {
		m.shortEMA = ema(m.shortEMA, price, m.shortPeriod)
		m.longEMA = ema(m.longEMA, price, m.longPeriod)
	}
	dif := m.shortEMA - m.longEMA
	m.dea = ema(m.dea, dif, m.signalPeriod)
	m.count++
	cur.Indicators.MACD = bar.MACDValue{
		DIF:   dif,
		DEA:   m.dea,
		Hist:  2 * (dif - m.dea),
		Valid: m.count > 1,
	}
}

// BOLL implements bar.Hook, a simple-moving-average Bollinger band over a
// fixed window.
type BOLL struct {
	period int
	window []float64
}

// NewBOLL builds a BOLL hook with the standard 20-period, 2-sigma band.
func NewBOLL() *BOLL { return &BOLL{period: 20} }

func (b *BOLL) Update(prev, cur *bar.Bar) {
	b.window = append(b.window, cur.Close)
	if len(b.window) > b.period {
		b.window = b.window[len(b.window)-b.period:]
	}
	if len(b.window) < b.period {
		cur.Indicators.BOLL = bar.BOLLValue{}
		return
	}
	mean := 0.0
	for _, v := range b.window {
		mean += v
	}
	mean /= float64(len(b.window))
	variance := 0.0
	for _, v := range b.window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(b.window))
	std := math.Sqrt(variance)
	cur.Indicators.BOLL = bar.BOLLValue{Mid: mean, Upper: mean + 2*std, Lower: mean - 2*std, Valid: true}
}

// RSI implements bar.Hook using Wilder smoothing over a fixed period.
type RSI struct {
	period             int
	avgGain, avgLoss   float64
	prevClose          float64
	count              int
	haveClose          bool
}

// NewRSI builds an RSI hook with the standard 14-period window.
func NewRSI() *RSI { return &RSI{period: 14} }

func (r *RSI) Update(prev, cur *bar.Bar) {
	if !r.haveClose {
		r.prevClose = cur.Close
		r.haveClose = true
		cur.Indicators.RSI = bar.RSIValue{}
		return
	}
	change := cur.Close - r.prevClose
	r.prevClose = cur.Close
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	r.count++
	if r.count <= r.period {
		r.avgGain += gain / float64(r.period)
		r.avgLoss += loss / float64(r.period)
	} else {
		r.avgGain = (r.avgGain*float64(r.period-1) + gain) / float64(r.period)
		r.avgLoss = (r.avgLoss*float64(r.period-1) + loss) / float64(r.period)
	}
	if r.count < r.period {
		cur.Indicators.RSI = bar.RSIValue{}
		return
	}
	if r.avgLoss == 0 {
		cur.Indicators.RSI = bar.RSIValue{Value: 100, Valid: true}
		return
	}
	rs := r.avgGain / r.avgLoss
	cur.Indicators.RSI = bar.RSIValue{Value: 100 - 100/(1+rs), Valid: true}
}

// KDJ implements bar.Hook, the 9-period stochastic oscillator with a 3-period
// smoothing of K and D.
type KDJ struct {
	period   int
	highs    []float64
	lows     []float64
	k, d     float64
	warm     bool
}

// NewKDJ builds a KDJ hook with the standard 9-period window.
func NewKDJ() *KDJ { return &KDJ{period: 9, k: 50, d: 50} }

func (kd *KDJ) Update(prev, cur *bar.Bar) {
	kd.highs = append(kd.highs, cur.High)
	kd.lows = append(kd.lows, cur.Low)
	if len(kd.highs) > kd.period {
		kd.highs = kd.highs[len(kd.highs)-kd.period:]
		kd.lows = kd.lows[len(kd.lows)-kd.period:]
	}
	if len(kd.highs) < kd.period {
		cur.Indicators.KDJ = bar.KDJValue{}
		return
	}
	hh, ll := kd.highs[0], kd.lows[0]
	for i := range kd.highs {
		if kd.highs[i] > hh {
			hh = kd.highs[i]
		}
		if kd.lows[i] < ll {
			ll = kd.lows[i]
		}
	}
	rsv := 50.0
	if hh != ll {
		rsv = (cur.Close - ll) / (hh - ll) * 100
	}
	kd.k = (2.0/3.0)*kd.k + (1.0/3.0)*rsv
	kd.d = (2.0/3.0)*kd.d + (1.0/3.0)*kd.k
	j := 3*kd.k - 2*kd.d
	cur.Indicators.KDJ = bar.KDJValue{K: kd.k, D: kd.d, J: j, Valid: true}
}

// DeMark implements bar.Hook, a TD Sequential-style setup counter: each
// close is compared against the close four bars prior, incrementing a
// signed run length that resets whenever the comparison flips side.
type DeMark struct {
	closes []float64
	run    int
}

// NewDeMark builds a DeMark hook with the standard 4-bar lookback and
// 9-count setup.
func NewDeMark() *DeMark { return &DeMark{} }

func (dm *DeMark) Update(prev, cur *bar.Bar) {
	dm.closes = append(dm.closes, cur.Close)
	defer func() {
		if len(dm.closes) > 8 {
			dm.closes = dm.closes[len(dm.closes)-8:]
		}
	}()
	if len(dm.closes) < 5 {
		cur.Indicators.DeMark = bar.DeMarkValue{}
		return
	}
	ref := dm.closes[len(dm.closes)-5]
	switch {
	case cur.Close > ref:
		if dm.run > 0 {
			dm.run++
		} else {
			dm.run = 1
		}
	case cur.Close < ref:
		if dm.run < 0 {
			dm.run--
		} else {
			dm.run = -1
		}
	default:
		dm.run = 0
	}
	cur.Indicators.DeMark = bar.DeMarkValue{
		Count:     dm.run,
		Perfected: dm.run == 9 || dm.run == -9,
		Valid:     true,
	}
}

// Standard returns the default MACD+BOLL+RSI+KDJ+DeMark hook set, in the
// order the reference applies them.
func Standard() []bar.Hook {
	return []bar.Hook{NewMACD(), NewBOLL(), NewRSI(), NewKDJ(), NewDeMark()}
}
