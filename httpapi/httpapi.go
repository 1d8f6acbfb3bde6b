// Package httpapi exposes the worker's read-only debug/status surface
// spec §4.5's GetBlockGraphStatus/GetActiveBlock/GetSelectionDraws
// commands are meant to answer, over HTTP. It is grounded on the
// teacher's own node/rpc HTTP listener wiring (httprouter-style explicit
// route registration, a permissive CORS wrapper over localhost-only
// tooling) rather than the teacher's JSON-RPC dispatch itself, since
// this surface is intentionally narrower: one handler per worker query,
// not a generic JSON-RPC method table.
package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/liveevilll/massa/blockgraph"
	"github.com/liveevilll/massa/command"
	"github.com/liveevilll/massa/slot"
	"github.com/liveevilll/massa/xlog"
	"github.com/olekukonko/tablewriter"
	"github.com/pborman/uuid"
	"github.com/rs/cors"
)

var log = xlog.Root.New("httpapi")

// Commander is the narrow slice of the worker's command surface this API
// forwards to; worker.Worker satisfies it.
type Commander interface {
	GetBlockGraphStatus() (blockgraph.Status, error)
	GetActiveBlock(id blockgraph.BlockID) (*blockgraph.Block, bool, error)
	GetSelectionDraws(start, end slot.Slot) ([]command.SelectionDraw, error)
}

// Server wraps an httprouter.Router with CORS, suitable for local
// debugging only (spec §6 lists this surface as read-only and
// same-host).
type Server struct {
	handler http.Handler
	cmd     Commander
}

// New builds the router and wraps it in a permissive-but-local CORS
// policy, the way the teacher's devp2p debug endpoints are exposed only
// to 127.0.0.1 by the surrounding listener configuration rather than by
// the CORS policy itself.
func New(cmd Commander) *Server {
	r := httprouter.New()
	s := &Server{cmd: cmd}

	r.GET("/status", s.handleStatus)
	r.GET("/status.txt", s.handleStatusTable)
	r.GET("/block/:id", s.handleActiveBlock)
	r.GET("/draws", s.handleDraws)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"http://localhost:*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(r)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func withRequestID(w http.ResponseWriter) string {
	id := uuid.New()
	w.Header().Set("X-Request-Id", id)
	return id
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	reqID := withRequestID(w)
	status, err := s.cmd.GetBlockGraphStatus()
	if err != nil {
		log.Error("status query failed", "request", reqID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// handleStatusTable renders the same status as a human-readable table,
// for operators poking at the endpoint with curl rather than a JSON
// consumer.
func (s *Server) handleStatusTable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	reqID := withRequestID(w)
	status, err := s.cmd.GetBlockGraphStatus()
	if err != nil {
		log.Error("status query failed", "request", reqID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"field", "value"})
	table.Append([]string{"active block count", strconv.Itoa(status.ActiveBlockCount)})
	table.Append([]string{"discarded final count", strconv.Itoa(status.DiscardedFinalCount)})
	table.Append([]string{"best parents", joinHashes(status.BestParents)})
	table.Append([]string{"latest final periods", joinUint64s(status.LatestFinalPeriods)})
	table.Render()
}

func (s *Server) handleActiveBlock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reqID := withRequestID(w)
	idHex := ps.ByName("id")

	var id blockgraph.BlockID
	decoded, err := hex.DecodeString(idHex)
	if err != nil || len(decoded) != len(id) {
		http.Error(w, "malformed block id", http.StatusBadRequest)
		return
	}
	copy(id[:], decoded)

	block, ok, err := s.cmd.GetActiveBlock(id)
	if err != nil {
		log.Error("active block query failed", "request", reqID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(block)
}

// handleDraws answers GetSelectionDraws over query params
// start_period/start_thread/end_period/end_thread, defaulting thread to 0.
func (s *Server) handleDraws(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	reqID := withRequestID(w)
	q := r.URL.Query()

	start := slot.Slot{Period: parseUint64(q.Get("start_period")), Thread: uint8(parseUint64(q.Get("start_thread")))}
	end := slot.Slot{Period: parseUint64(q.Get("end_period")), Thread: uint8(parseUint64(q.Get("end_thread")))}

	draws, err := s.cmd.GetSelectionDraws(start, end)
	if err != nil {
		log.Error("draws query failed", "request", reqID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(draws)
}

func parseUint64(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

func joinHashes(ids []blockgraph.BlockID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}

func joinUint64s(vs []uint64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}
