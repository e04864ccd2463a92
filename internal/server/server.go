// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes job status, the rolling job log and manual job
// triggers over HTTP, plus a websocket feed of status changes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/deskqa/ingestion/internal/jobstatus"
	"github.com/deskqa/ingestion/internal/scheduler"
)

// Runner starts jobs by name and describes them.
type Runner interface {
	Trigger(name string) error
	Jobs() []scheduler.JobInfo
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config holds Handler dependencies.
type Config struct {
	Runner         Runner
	Status         jobstatus.Reader
	Hub            *Hub
	Checks         map[string]HealthCheck
	AllowedOrigins []string // CORS; default "*"
}

// Handler serves the operator API.
type Handler struct {
	runner   Runner
	status   jobstatus.Reader
	hub      *Hub
	checks   map[string]HealthCheck
	origins  []string
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) *Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	hub := cfg.Hub
	if hub == nil {
		hub = NewHub(0)
	}
	return &Handler{
		runner:  cfg.Runner,
		status:  cfg.Status,
		hub:     hub,
		checks:  cfg.Checks,
		origins: origins,
		upgrader: websocket.Upgrader{
			// The dashboard is served from another origin behind the same proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Routes returns the router wrapped in CORS handling.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/logs", h.handleLogs).Methods(http.MethodGet)
	r.HandleFunc("/run/{job}", h.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/ws", h.handleWS).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failures := make(map[string]string)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "errors": failures})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.status.Statuses(r.Context())
	if err != nil {
		slog.Error("failed to read job statuses", "error", err)
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	var jobs []scheduler.JobInfo
	if h.runner != nil {
		jobs = h.runner.Jobs()
	}
	writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses, "jobs": jobs})
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.status.Logs(r.Context())
	if err != nil {
		slog.Error("failed to read job logs", "error", err)
		writeError(w, http.StatusInternalServerError, "logs unavailable")
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n < len(logs) {
			logs = logs[:n]
		}
	}
	if logs == nil {
		logs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	job := mux.Vars(r)["job"]
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "no job runner")
		return
	}

	err := h.runner.Trigger(job)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown job %q", job))
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, fmt.Sprintf("job %q is already running", job))
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		slog.Info("job triggered via API", "job", job, "remote", r.RemoteAddr)
		writeJSON(w, http.StatusAccepted, map[string]string{"job": job, "status": "started"})
	}
}

func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	var snapshot []byte
	if statuses, err := h.status.Statuses(r.Context()); err == nil {
		snapshot, _ = json.Marshal(statusEvent{Type: "snapshot", Snapshot: statuses})
	}
	c := h.hub.register(conn, snapshot)
	if c == nil {
		return
	}

	// Read until the peer goes away; inbound messages are ignored.
	go func() {
		defer h.hub.unregister(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve starts the HTTP server on the given port.
// It binds the port immediately and signals readiness via the returned channel
// before starting to accept connections.
func Serve(ctx context.Context, port int, handler http.Handler) (<-chan struct{}, error) {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind http port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("http server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	return ready, nil
}
