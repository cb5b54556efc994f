// Package config loads the YAML-backed aggregate configuration for a
// czsc-go deployment. Grounded on the donor's internal/config package
// (LoadXConfig(path) (*XConfig, error) plus per-struct Validate()) and its
// default-then-validate ProvidersConfig pattern.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/forex24/czsc-go/internal/bar"
	"github.com/forex24/czsc-go/internal/czerr"
	"github.com/forex24/czsc-go/internal/merge"
	"github.com/forex24/czsc-go/internal/pipeline"
	"github.com/forex24/czsc-go/internal/segment"
	"github.com/forex24/czsc-go/internal/signal"
	"github.com/forex24/czsc-go/internal/stroke"
	"github.com/forex24/czsc-go/internal/structline"
	"github.com/forex24/czsc-go/internal/zone"
)

// LogConfig controls the zerolog bootstrap (§10.2).
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // console|json
}

func (c *LogConfig) defaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
}

func (c *LogConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return czerr.Newf(czerr.ParamError, "log.level: unknown level %q", c.Level)
	}
	switch c.Format {
	case "console", "json":
	default:
		return czerr.Newf(czerr.ParamError, "log.format: unknown format %q", c.Format)
	}
	return nil
}

// MetricsConfig controls the Prometheus registry and /metrics exposure.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

func (c *MetricsConfig) defaults() {
	if c.Addr == "" {
		c.Addr = ":9090"
	}
}

func (c *MetricsConfig) Validate() error { return nil }

// HTTPConfig controls internal/httpapi's mux server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

func (c *HTTPConfig) defaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

func (c *HTTPConfig) Validate() error { return nil }

// StoreConfig controls internal/store's optional Postgres persistence.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

func (c *StoreConfig) defaults() {}

func (c *StoreConfig) Validate() error {
	if c.Enabled && c.DSN == "" {
		return czerr.New(czerr.ParamError, "store.dsn is required when store.enabled is true")
	}
	return nil
}

// CacheConfig controls internal/cache's Redis-backed snapshot cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	TTLSec  int    `yaml:"ttl_seconds"`
}

func (c *CacheConfig) defaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.TTLSec == 0 {
		c.TTLSec = 30
	}
}

func (c *CacheConfig) Validate() error { return nil }

// IngestConfig controls internal/ingest's CSV and polling live-feed readers.
type IngestConfig struct {
	CSVPath        string `yaml:"csv_path"`
	LiveURL        string `yaml:"live_url"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

func (c *IngestConfig) defaults() {
	if c.PollIntervalMs == 0 {
		c.PollIntervalMs = 1000
	}
}

func (c *IngestConfig) Validate() error {
	if c.CSVPath == "" && c.LiveURL == "" {
		return czerr.New(czerr.ParamError, "ingest: one of csv_path or live_url is required")
	}
	return nil
}

// StrokeConfig is the YAML surface for stroke.Config.
type StrokeConfig struct {
	Algo          string `yaml:"algo"`
	IsStrict      bool   `yaml:"is_strict"`
	FxCheck       string `yaml:"fx_check"`
	GapAsExtraBar bool   `yaml:"gap_as_extra_bar"`
	EndIsPeak     bool   `yaml:"end_is_peak"`
	AllowSubPeak  bool   `yaml:"allow_sub_peak"`
}

func strokeConfigDefaults() StrokeConfig {
	d := stroke.DefaultConfig()
	return StrokeConfig{Algo: d.Algo, IsStrict: d.IsStrict, FxCheck: "half", GapAsExtraBar: d.GapAsExtraBar, EndIsPeak: d.EndIsPeak, AllowSubPeak: d.AllowSubPeak}
}

func (c StrokeConfig) resolve() (stroke.Config, error) {
	var fx stroke.FxCheck
	switch c.FxCheck {
	case "strict":
		fx = stroke.FxStrict
	case "half", "":
		fx = stroke.FxHalf
	case "loss":
		fx = stroke.FxLoss
	case "totally":
		fx = stroke.FxTotally
	default:
		return stroke.Config{}, czerr.Newf(czerr.ParamError, "stroke.fx_check: unknown value %q", c.FxCheck)
	}
	if c.Algo != "normal" && c.Algo != "fx" {
		return stroke.Config{}, czerr.Newf(czerr.ParamError, "stroke.algo: unknown value %q", c.Algo)
	}
	return stroke.Config{Algo: c.Algo, IsStrict: c.IsStrict, FxCheck: fx, GapAsExtraBar: c.GapAsExtraBar, EndIsPeak: c.EndIsPeak, AllowSubPeak: c.AllowSubPeak}, nil
}

// MergeConfig is the YAML surface for merge.Config.
type MergeConfig struct {
	AllowTopEqual   bool `yaml:"allow_top_equal"`
	ExcludeIncluded bool `yaml:"exclude_included"`
}

func (c MergeConfig) resolve() merge.Config {
	return merge.Config{AllowTopEqual: c.AllowTopEqual, ExcludeIncluded: c.ExcludeIncluded}
}

// SegmentConfig is the YAML surface for segment.Config. Non-"chan" values of
// Algo are accepted (matching the deprecated one_plus_one/break reference
// algorithms) but only "chan" is implemented; any other value logs a
// deprecation warning once (§7) and falls back to "chan" semantics.
type SegmentConfig struct {
	Algo       string `yaml:"algo"`
	LeftMethod string `yaml:"left_method"`
}

func segmentConfigDefaults() SegmentConfig {
	return SegmentConfig{Algo: "chan", LeftMethod: "peak"}
}

func (c SegmentConfig) resolve() (segment.Config, bool, error) {
	deprecated := c.Algo != "" && c.Algo != "chan"
	var lm segment.LeftMethod
	switch c.LeftMethod {
	case "peak", "":
		lm = segment.LeftPeak
	case "all":
		lm = segment.LeftAll
	default:
		return segment.Config{}, false, czerr.Newf(czerr.ParamError, "segment.left_method: unknown value %q", c.LeftMethod)
	}
	return segment.Config{LeftMethod: lm}, deprecated, nil
}

// ZoneConfig is the YAML surface for zone.Config.
type ZoneConfig struct {
	Combine       bool   `yaml:"combine"`
	Algo          string `yaml:"algo"`
	OneStrokeZone bool   `yaml:"one_stroke_zone"`
	CombineMode   string `yaml:"combine_mode"`
}

func zoneConfigDefaults() ZoneConfig {
	return ZoneConfig{Combine: true, Algo: "normal", CombineMode: "zs"}
}

func (c ZoneConfig) resolve() (zone.Config, error) {
	var mode zone.Mode
	switch c.Algo {
	case "normal", "":
		mode = zone.ModeNormal
	case "over_seg":
		mode = zone.ModeOverSeg
	default:
		return zone.Config{}, czerr.Newf(czerr.ParamError, "zone.algo: unknown value %q", c.Algo)
	}
	var combine zone.CombineMode
	switch c.CombineMode {
	case "zs", "":
		combine = zone.CombineZS
	case "peak":
		combine = zone.CombinePeak
	default:
		return zone.Config{}, czerr.Newf(czerr.ParamError, "zone.combine_mode: unknown value %q", c.CombineMode)
	}
	return zone.Config{Mode: mode, NeedCombine: c.Combine, OneStrokeZone: c.OneStrokeZone, CombineMode: combine}, nil
}

// SignalConfig is the YAML surface for signal.Config.
type SignalConfig struct {
	DivergenceRate float64 `yaml:"divergence_rate"`
	MinZoneCnt     int     `yaml:"min_zone_cnt"`
	MacdAlgo       string  `yaml:"macd_algo"`
	BS1Peak        bool    `yaml:"bs1_peak"`
	BSP2Follow1    bool    `yaml:"bsp2_follow_1"`
	BSP3Follow1    bool    `yaml:"bsp3_follow_1"`
	BSP3Peak       bool    `yaml:"bsp3_peak"`
	BSP2SFollow2   bool    `yaml:"bsp2s_follow_2"`
	StrictBSP3     bool    `yaml:"strict_bsp3"`
	MaxBSP2SLv     *int    `yaml:"max_bsp2s_lv"`
}

func signalConfigDefaults(macdAlgo string) SignalConfig {
	d := signal.DefaultConfig()
	return SignalConfig{
		DivergenceRate: d.DivergenceRate, MinZoneCnt: d.MinZoneCnt, MacdAlgo: macdAlgo,
		BS1Peak: d.BS1Peak, BSP2Follow1: d.BSP2Follow1, BSP3Follow1: d.BSP3Follow1,
		BSP2SFollow2: d.BSP2SFollow2,
	}
}

func (c SignalConfig) resolve() (signal.Config, error) {
	algo, ok := structline.ParseMacdAlgo(c.MacdAlgo)
	if !ok {
		return signal.Config{}, czerr.Newf(czerr.ParamError, "signal.macd_algo: unknown value %q", c.MacdAlgo)
	}
	if c.DivergenceRate < 0 {
		return signal.Config{}, czerr.New(czerr.ParamError, "signal.divergence_rate must be non-negative")
	}
	return signal.Config{
		DivergenceRate: c.DivergenceRate, MinZoneCnt: c.MinZoneCnt, MacdAlgo: algo,
		BS1Peak: c.BS1Peak, BSP2Follow1: c.BSP2Follow1, BSP3Follow1: c.BSP3Follow1,
		BSP3Peak: c.BSP3Peak, BSP2SFollow2: c.BSP2SFollow2, StrictBSP3: c.StrictBSP3,
		MaxBSP2SLv: c.MaxBSP2SLv,
	}, nil
}

// PipelineConfig is the YAML surface over pipeline.Config. Two parallel
// Signal configs exist (stroke-level, segment-level) per §6's table.
type PipelineConfig struct {
	Merge      MergeConfig   `yaml:"merge"`
	Stroke     StrokeConfig  `yaml:"stroke"`
	Segment    SegmentConfig `yaml:"segment"`
	Zone       ZoneConfig    `yaml:"zone"`
	Signal     SignalConfig  `yaml:"signal"`
	SegSegment SegmentConfig `yaml:"seg_segment"`
	SegZone    ZoneConfig    `yaml:"seg_zone"`
	SegSignal  SignalConfig  `yaml:"seg_signal"`
}

func (c *PipelineConfig) defaults() {
	if c.Stroke.Algo == "" {
		c.Stroke = strokeConfigDefaults()
	}
	if c.Segment.Algo == "" {
		c.Segment = segmentConfigDefaults()
	}
	if c.Zone.Algo == "" {
		c.Zone = zoneConfigDefaults()
	}
	if c.Signal.MacdAlgo == "" {
		c.Signal = signalConfigDefaults("peak")
	}
	if c.SegSegment.Algo == "" {
		c.SegSegment = segmentConfigDefaults()
	}
	if c.SegZone.Algo == "" {
		c.SegZone = zoneConfigDefaults()
	}
	if c.SegSignal.MacdAlgo == "" {
		c.SegSignal = signalConfigDefaults("slope")
	}
}

// Resolve builds a pipeline.Config, reporting any deprecated segment
// algorithm selections so the caller can log a warning once (§7, §10.2).
func (c PipelineConfig) Resolve() (pipeline.Config, []string, error) {
	var warnings []string

	strokeCfg, err := c.Stroke.resolve()
	if err != nil {
		return pipeline.Config{}, nil, err
	}
	segCfg, deprecated, err := c.Segment.resolve()
	if err != nil {
		return pipeline.Config{}, nil, err
	}
	if deprecated {
		warnings = append(warnings, fmt.Sprintf("segment.algo %q is deprecated; using chan semantics", c.Segment.Algo))
	}
	zoneCfg, err := c.Zone.resolve()
	if err != nil {
		return pipeline.Config{}, nil, err
	}
	sigCfg, err := c.Signal.resolve()
	if err != nil {
		return pipeline.Config{}, nil, err
	}
	segSegCfg, segDeprecated, err := c.SegSegment.resolve()
	if err != nil {
		return pipeline.Config{}, nil, err
	}
	if segDeprecated {
		warnings = append(warnings, fmt.Sprintf("seg_segment.algo %q is deprecated; using chan semantics", c.SegSegment.Algo))
	}
	segZoneCfg, err := c.SegZone.resolve()
	if err != nil {
		return pipeline.Config{}, nil, err
	}

	return pipeline.Config{
		Bar: bar.Config{}, Merge: c.Merge.resolve(),
		Stroke: strokeCfg, Segment: segCfg, Zone: zoneCfg, Signal: sigCfg,
		SegSegment: segSegCfg, SegZone: segZoneCfg,
	}, warnings, nil
}

// Config is the top-level YAML-loadable aggregate.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	HTTP     HTTPConfig     `yaml:"http"`
	Store    StoreConfig    `yaml:"store"`
	Cache    CacheConfig    `yaml:"cache"`
	Ingest   IngestConfig   `yaml:"ingest"`
}

func (c *Config) defaults() {
	c.Pipeline.defaults()
	c.Log.defaults()
	c.Metrics.defaults()
	c.HTTP.defaults()
	c.Store.defaults()
	c.Cache.defaults()
	c.Ingest.defaults()
}

// Validate checks the Log, Metrics, HTTP, Store and Cache sub-configs in
// turn, returning the first failure. Pipeline and Ingest are not checked
// here.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return nil
}

// Load reads, defaults, and validates a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, czerr.Wrap(czerr.ParamError, "reading config file", err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, czerr.Wrap(czerr.ParamError, "parsing config yaml", err)
	}
	c.defaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
