package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/conn"
)

// Router serves the WebSocket transport and the operator endpoints:
//
//	GET /ws       play over a WebSocket, one JSON message per line
//	GET /healthz  liveness
//	GET /session  current session status as JSON
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/session", s.handleStatus)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) { s.handleWS(ctx, w, r) })
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.coord.Status()); err != nil {
		s.log.WithError(err).Warn("Failed writing status")
	}
}

// handleWS upgrades the request and treats the socket as a byte stream, so a
// WebSocket player goes through the same handshake as a TCP player.
func (s *Server) handleWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	limit := s.opts.Conn.MaxFrameBytes
	if limit <= 0 {
		limit = conn.DefaultOptions().MaxFrameBytes
	}
	ws.SetReadLimit(int64(limit) + 1)
	s.Handle(ctx, websocket.NetConn(ctx, ws, websocket.MessageText))
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}
