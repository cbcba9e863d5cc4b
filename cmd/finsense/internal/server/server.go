// Package server exposes the budgeting agent over WebSocket.
//
// Routes:
//
//	GET /healthz   {"status":"ok"}
//	GET /ws        chat: each text message {"input": "..."} runs the agent
//	               and is answered with the JSON array of memory entries
//	               the run added
//
// Every WebSocket connection owns one conversation memory.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/finsense/finsense/pkg/agent"
	"github.com/finsense/finsense/pkg/memory"
)

// Request is a chat message from the client.
type Request struct {
	Input string `json:"input"`
}

// ErrorReply is sent when a request cannot be run.
type ErrorReply struct {
	Error string `json:"error"`
}

// Server serves the chat endpoint.
type Server struct {
	Agent *agent.Agent

	// RunOptions are applied to every run, before the connection's memory.
	RunOptions []agent.RunOption

	Logger *slog.Logger

	upgrader websocket.Upgrader
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger().Info("server: listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger().Warn("server: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	log := s.logger().With("conn", id)
	log.Info("server: connection opened", "remote", r.RemoteAddr)
	defer log.Info("server: connection closed")

	mem := memory.New()
	ctx := r.Context()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("server: read failed", "error", err)
			}
			return
		}
		input := strings.TrimSpace(req.Input)
		if input == "" {
			if err := conn.WriteJSON(ErrorReply{Error: "input is empty"}); err != nil {
				return
			}
			continue
		}

		before := mem.Len()
		opts := append(append([]agent.RunOption(nil), s.RunOptions...), agent.WithMemory(mem))
		if _, err := s.Agent.Run(ctx, input, opts...); err != nil {
			log.Info("server: run canceled", "error", err)
			return
		}
		if err := conn.WriteJSON(mem.All()[before:]); err != nil {
			log.Debug("server: write failed", "error", err)
			return
		}
	}
}
