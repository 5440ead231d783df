package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/emiliopalmerini/devwatch/internal/engine"
	"github.com/emiliopalmerini/devwatch/internal/providers"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service": "devwatch",
		"endpoints": []string{
			"/health", "/sessions", "/sessions/{id}", "/sessions/{id}/interactions",
			"/sessions/{id}/summary", "/stats", "/providers", "/usage",
			"/usage/{provider}", "/collect", "/collect/{provider}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"total_sessions":  stats.TotalSessions,
		"active_sessions": stats.ActiveSessions,
		"total_events":    stats.TotalEvents,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	var views []sessionView
	if r.URL.Query().Get("active") == "true" {
		for _, session := range s.engine.ActiveSessions() {
			views = append(views, toSessionView(session))
		}
	} else {
		for _, session := range s.engine.Sessions() {
			views = append(views, toSessionView(session))
		}
	}
	if views == nil {
		views = []sessionView{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(views),
		"sessions": views,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.Session(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toSessionView(session))
}

func (s *Server) handleSessionInteractions(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.Session(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]interactionView, 0, len(session.Interactions))
	for _, in := range session.Interactions {
		views = append(views, toInteractionView(in))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   session.SessionID,
		"count":        len(views),
		"interactions": views,
	})
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, summary := range s.engine.Summaries() {
		if summary.SessionID == id {
			s.writeJSON(w, http.StatusOK, summary)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "session \""+id+"\" not found")
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.EndSession(id); err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"status":     "ended",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	type providerInfo struct {
		Provider providers.Kind `json:"provider"`
		Models   []string       `json:"models"`
	}
	infos := []providerInfo{}
	for _, kind := range s.manager.Kinds() {
		p, ok := s.manager.Provider(kind)
		if !ok {
			continue
		}
		infos = append(infos, providerInfo{Provider: kind, Models: p.Models()})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(infos),
		"providers": infos,
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	days := queryDays(r, 7)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"period_days": days,
		"summaries":   s.manager.Summaries(days),
	})
}

func (s *Server) handleProviderUsage(w http.ResponseWriter, r *http.Request) {
	kind := providers.Kind(chi.URLParam(r, "provider"))
	summary, err := s.manager.Summary(kind, queryDays(r, 7))
	if err != nil {
		if errors.Is(err, providers.ErrUnknownProvider) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	results := s.manager.CollectAll(r.Context(), s.lookbackDays)
	counts := make(map[providers.Kind]int, len(results))
	for kind, records := range results {
		counts[kind] = len(records)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "collected",
		"collected": counts,
	})
}

func (s *Server) handleProviderCollect(w http.ResponseWriter, r *http.Request) {
	kind := providers.Kind(chi.URLParam(r, "provider"))
	records, err := s.manager.Collect(r.Context(), kind, s.lookbackDays)
	if err != nil {
		if errors.Is(err, providers.ErrUnknownProvider) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "collected",
		"provider":  kind,
		"collected": len(records),
	})
}

func queryDays(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return fallback
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return fallback
	}
	return days
}
