// Package gateway is the optional HTTP/WebSocket front door onto a Host:
// a POST endpoint that triggers one ExecuteChecks run and a WebSocket
// endpoint that streams the event bus (C8) live. Grounded on the teacher's
// internal/infrastructure/api/rest.Server (same http.Server-wrapping
// http.Handler shape, health/ready endpoints) and its
// internal/infrastructure/websocket Handler/Client pair, simplified from a
// per-workflow/per-execution Hub with subscribe/unsubscribe commands down
// to one global feed — checkdag's event payloads already carry their own
// CheckID, and a single Host drives at most one run at a time, so there is
// no multi-tenant subscription registry to maintain.
package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/checkdag/checkdag/pkg/eventbus"
	"github.com/checkdag/checkdag/pkg/host"
	"github.com/checkdag/checkdag/pkg/model"
)

// streamedTopics lists every topic a websocket client is fed, in the order
// spec.md §4.8 documents them.
var streamedTopics = []eventbus.Topic{
	eventbus.CheckScheduled,
	eventbus.CheckStarted,
	eventbus.CheckCompleted,
	eventbus.CheckErrored,
	eventbus.StateTransition,
	eventbus.HumanInputRequested,
	eventbus.SnapshotSaved,
	eventbus.Shutdown,
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes a Host over HTTP. It owns no lifecycle of its own beyond
// what http.Server gives it; callers wrap it in their own listener.
type Server struct {
	h      *host.Host
	logger zerolog.Logger
	mux    *http.ServeMux
}

// NewServer builds a Server routing /healthz, POST /api/v1/runs, and the
// /api/v1/events WebSocket feed against h.
func NewServer(h *host.Host, logger zerolog.Logger) *Server {
	s := &Server{h: h, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/runs", s.handleRun)
	s.mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// runRequest is the POST /api/v1/runs body: a review subject plus optional
// run options, both already exported json-tagged model types.
type runRequest struct {
	PR      *model.PRInfo     `json:"pr"`
	Options *model.RunOptions `json:"options,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.PR == nil {
		req.PR = &model.PRInfo{}
	}

	res, err := s.h.ExecuteChecks(r.Context(), req.PR, req.Options)
	if err != nil {
		s.logger.Error().Err(err).Msg("gateway: run failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.Error().Err(err).Msg("gateway: failed to encode run result")
	}
}

// handleEvents upgrades the request to a WebSocket and relays event bus
// envelopes until the client disconnects. Envelopes published while the
// client's 64-envelope send buffer is full are dropped, not queued.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("gateway: websocket upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan eventbus.Envelope, 64)
	subs := make([]eventbus.Subscription, 0, len(streamedTopics))
	for _, topic := range streamedTopics {
		topic := topic
		subs = append(subs, s.h.Bus().Subscribe(topic, func(env eventbus.Envelope) {
			select {
			case send <- env:
			default:
				s.logger.Warn().Str("topic", string(topic)).Msg("gateway: dropping event, client too slow")
			}
		}))
	}
	defer func() {
		for _, sub := range subs {
			s.h.Bus().Unsubscribe(sub)
		}
	}()

	go s.discardReads(conn)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case env, ok := <-send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// discardReads drains and ignores client frames, only to notice a close so
// the write loop above can exit; checkdag's event feed is read-only.
func (s *Server) discardReads(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
