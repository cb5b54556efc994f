// Package httpapi serves the structural snapshot and live signal feed.
// Grounded on the donor's internal/http package (gorilla/mux route
// registration, JSON contracts) and extended with a gorilla/websocket
// feed of newly confirmed signals.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/forex24/czsc-go/internal/pipeline"
)

// BarRow is one exported raw-bar row (§6 Export's stable column set).
type BarRow struct {
	Idx          int     `json:"idx"`
	TimestampSec int64   `json:"ts"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"`
}

// StrokeRow is one exported stroke row.
type StrokeRow struct {
	Idx       int     `json:"idx"`
	Dir       string  `json:"dir"`
	Sure      bool    `json:"sure"`
	BeginBar  int     `json:"begin_bar"`
	EndBar    int     `json:"end_bar"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
}

// SignalRow is one exported buy/sell point row.
type SignalRow struct {
	Idx       int      `json:"idx"`
	StrokeIdx int      `json:"stroke_idx"`
	EndBar    int       `json:"end_bar"`
	IsBuy     bool     `json:"is_buy"`
	Types     []string `json:"types"`
}

// SnapshotResponse is the GET /snapshot payload.
type SnapshotResponse struct {
	RunID   string             `json:"run_id"`
	Summary pipeline.Snapshot  `json:"summary"`
	Bars    []BarRow           `json:"bars"`
	Strokes []StrokeRow        `json:"strokes"`
}

// Server wires a Pipeline to HTTP snapshot/signal endpoints and a
// websocket feed of newly confirmed signals.
type Server struct {
	runID    string
	log      zerolog.Logger
	pipeline *pipeline.Pipeline
	mu       *sync.Mutex // shared with the caller, serializing core access per §5

	upgrader websocket.Upgrader
	wsMu     sync.Mutex
	wsConns  map[*websocket.Conn]struct{}

	lastSignalCount int
}

// NewServer builds a Server over p, guarded by mu (the same mutex the
// caller holds whenever it touches p).
func NewServer(p *pipeline.Pipeline, mu *sync.Mutex, logger zerolog.Logger) *Server {
	return &Server{
		runID: uuid.NewString(), log: logger, pipeline: p, mu: mu,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		wsConns:  map[*websocket.Conn]struct{}{},
	}
}

// Router builds the gorilla/mux route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/signals", s.handleSignals).Methods(http.MethodGet)
	r.HandleFunc("/ws/signals", s.handleWS)
	return r
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bars := make([]BarRow, 0, s.pipeline.Bars().Len())
	for i := 0; i < s.pipeline.Bars().Len(); i++ {
		b := s.pipeline.Bars().At(i)
		bars = append(bars, BarRow{Idx: b.Idx, TimestampSec: b.TimestampSec, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close})
	}
	strokes := make([]StrokeRow, 0, s.pipeline.Strokes().Len())
	for i := 0; i < s.pipeline.Strokes().Len(); i++ {
		st := s.pipeline.Strokes().At(i)
		dir := "up"
		if st.Dir() != 0 {
			dir = "down"
		}
		strokes = append(strokes, StrokeRow{
			Idx: st.Idx(), Dir: dir, Sure: st.IsSure(),
			BeginBar: s.pipeline.Strokes().BeginBar(i), EndBar: s.pipeline.Strokes().EndBar(i),
			High: s.pipeline.Strokes().High(i), Low: s.pipeline.Strokes().Low(i),
		})
	}

	resp := SnapshotResponse{RunID: s.runID, Summary: s.pipeline.Snapshot(), Bars: bars, Strokes: strokes}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("encoding snapshot response")
	}
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.signalRows()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		s.log.Error().Err(err).Msg("encoding signals response")
	}
}

func (s *Server) signalRows() []SignalRow {
	list := s.pipeline.Signals()
	rows := make([]SignalRow, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		sig := list.At(i)
		types := make([]string, 0, len(sig.Types()))
		for _, t := range sig.Types() {
			types = append(types, t.String())
		}
		rows = append(rows, SignalRow{Idx: sig.Idx(), StrokeIdx: sig.StrokeIdx(), IsBuy: sig.IsBuy(), Types: types})
	}
	return rows
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.wsMu.Lock()
	s.wsConns[conn] = struct{}{}
	s.wsMu.Unlock()

	go func() {
		defer func() {
			s.wsMu.Lock()
			delete(s.wsConns, conn)
			s.wsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// BroadcastNewSignals pushes any signals confirmed since the last call to
// every connected websocket client. The caller holds mu while invoking it;
// cmd/czsc's serve calls it from a timed loop.
func (s *Server) BroadcastNewSignals() {
	list := s.pipeline.Signals()
	if list.Len() <= s.lastSignalCount {
		s.lastSignalCount = list.Len()
		return
	}

	fresh := make([]SignalRow, 0, list.Len()-s.lastSignalCount)
	for i := s.lastSignalCount; i < list.Len(); i++ {
		sig := list.At(i)
		types := make([]string, 0, len(sig.Types()))
		for _, t := range sig.Types() {
			types = append(types, t.String())
		}
		fresh = append(fresh, SignalRow{Idx: sig.Idx(), StrokeIdx: sig.StrokeIdx(), IsBuy: sig.IsBuy(), Types: types})
	}
	s.lastSignalCount = list.Len()

	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for conn := range s.wsConns {
		if err := conn.WriteJSON(fresh); err != nil {
			s.log.Warn().Err(err).Msg("websocket write failed, dropping connection")
			conn.Close()
			delete(s.wsConns, conn)
		}
	}
}
