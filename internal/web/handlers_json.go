package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_scalp_sim/internal/infrastructure/storage"
	"github.com/vitos/crypto_scalp_sim/internal/usecase"
)

const (
	defaultPositionLimit = 50
	maxPositionLimit     = 500
)

type statusResponse struct {
	Uptime    string               `json:"uptime"`
	LastCycle *usecase.CycleReport `json:"last_cycle"`
	Positions []storage.StateCount `json:"positions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	limit := defaultPositionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxPositionLimit)
	}

	positions, err := s.store.ListPositions(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list positions", zap.Error(err))
		http.Error(w, "Failed to list positions", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.LoadConfiguration(r.Context())
	if err != nil {
		s.logger.Error("Failed to load configuration", zap.Error(err))
		http.Error(w, "Failed to load configuration", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		s.logger.Error("Failed to summarize positions", zap.Error(err))
		http.Error(w, "Failed to summarize positions", http.StatusInternalServerError)
		return
	}

	resp := statusResponse{
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		Positions: summary,
	}
	if report, ok := s.status.LastReport(); ok {
		resp.LastCycle = &report
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
