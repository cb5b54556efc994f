// Package exportcsv writes structural row-sets to CSV, one file per kind,
// the Go-native equivalent of the reference's polars-based to_csv. No
// dataframe library appears anywhere in the example corpus, so this package
// writes with the standard library's encoding/csv directly.
package exportcsv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/forex24/czsc-go/internal/czerr"
	"github.com/forex24/czsc-go/internal/pipeline"
)

// WriteAll writes bars.csv, merged_bars.csv, strokes.csv, segments.csv,
// zones.csv, and signals.csv into dir.
func WriteAll(p *pipeline.Pipeline, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return czerr.Wrap(czerr.ParamError, "creating export directory", err)
	}
	writers := []func(*pipeline.Pipeline, string) error{
		writeBars, writeMergedBars, writeStrokes, writeSegments, writeZones, writeSignals,
	}
	for _, w := range writers {
		if err := w(p, dir); err != nil {
			return err
		}
	}
	return nil
}

func open(dir, name string) (*os.File, *csv.Writer, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, czerr.Wrap(czerr.ParamError, fmt.Sprintf("creating %s", name), err)
	}
	return f, csv.NewWriter(f), nil
}

func writeBars(p *pipeline.Pipeline, dir string) error {
	f, w, err := open(dir, "bars.csv")
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()
	w.Write([]string{"idx", "ts", "open", "high", "low", "close", "volume"})
	bars := p.Bars()
	for i := 0; i < bars.Len(); i++ {
		b := bars.At(i)
		w.Write([]string{
			strconv.Itoa(b.Idx), strconv.FormatInt(b.TimestampSec, 10),
			f64(b.Open), f64(b.High), f64(b.Low), f64(b.Close), f64(b.Volume),
		})
	}
	return nil
}

func writeMergedBars(p *pipeline.Pipeline, dir string) error {
	f, w, err := open(dir, "merged_bars.csv")
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()
	w.Write([]string{"idx", "dir", "high", "low", "begin_bar", "end_bar", "fractal"})
	merged := p.Merged()
	for i := 0; i < merged.Len(); i++ {
		m := merged.At(i)
		w.Write([]string{
			strconv.Itoa(m.Idx), dirLabel(int(m.Dir)), f64(m.High), f64(m.Low),
			strconv.Itoa(m.BeginBar), strconv.Itoa(m.EndBar), fractalLabel(int(m.Fractal)),
		})
	}
	return nil
}

func writeStrokes(p *pipeline.Pipeline, dir string) error {
	f, w, err := open(dir, "strokes.csv")
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()
	w.Write([]string{"idx", "dir", "sure", "begin_bar", "end_bar", "high", "low"})
	strokes := p.Strokes()
	for i := 0; i < strokes.Len(); i++ {
		s := strokes.At(i)
		w.Write([]string{
			strconv.Itoa(s.Idx()), dirLabel(int(s.Dir())), strconv.FormatBool(s.IsSure()),
			strconv.Itoa(strokes.BeginBar(i)), strconv.Itoa(strokes.EndBar(i)),
			f64(strokes.High(i)), f64(strokes.Low(i)),
		})
	}
	return nil
}

func writeSegments(p *pipeline.Pipeline, dir string) error {
	f, w, err := open(dir, "segments.csv")
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()
	w.Write([]string{"idx", "dir", "sure", "begin_line", "end_line"})
	segs := p.Segments()
	for i := 0; i < segs.Len(); i++ {
		s := segs.At(i)
		w.Write([]string{
			strconv.Itoa(s.Idx()), dirLabel(int(s.Dir())), strconv.FormatBool(s.IsSure()),
			strconv.Itoa(s.BeginLine()), strconv.Itoa(s.EndLine()),
		})
	}
	return nil
}

func writeZones(p *pipeline.Pipeline, dir string) error {
	f, w, err := open(dir, "zones.csv")
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()
	w.Write([]string{"idx", "high", "low", "sure", "begin_line", "end_line"})
	zones := p.Zones()
	for i := 0; i < zones.Len(); i++ {
		z := zones.At(i)
		w.Write([]string{
			strconv.Itoa(z.Idx()), f64(z.High()), f64(z.Low()), strconv.FormatBool(z.IsSure()),
			strconv.Itoa(z.BeginLine()), strconv.Itoa(z.EndLine()),
		})
	}
	return nil
}

func writeSignals(p *pipeline.Pipeline, dir string) error {
	f, w, err := open(dir, "signals.csv")
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()
	w.Write([]string{"idx", "stroke_idx", "is_buy", "types"})
	sigs := p.Signals()
	for i := 0; i < sigs.Len(); i++ {
		s := sigs.At(i)
		types := ""
		for j, t := range s.Types() {
			if j > 0 {
				types += "|"
			}
			types += t.String()
		}
		w.Write([]string{strconv.Itoa(s.Idx()), strconv.Itoa(s.StrokeIdx()), strconv.FormatBool(s.IsBuy()), types})
	}
	return nil
}

func f64(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func dirLabel(d int) string {
	if d == 0 {
		return "up"
	}
	return "down"
}

func fractalLabel(f int) string {
	switch f {
	case 1:
		return "top"
	case 2:
		return "bottom"
	default:
		return "none"
	}
}
