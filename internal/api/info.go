package api

import (
	"net/http"

	"exoplanet-ai/internal/content"
	"exoplanet-ai/internal/ml"

	"github.com/gorilla/mux"
)

const topFeatures = 5

type importanceResponse struct {
	Features []ml.FeatureStats `json:"features"`
	Top      []string          `json:"top"`
}

type healthResponse struct {
	Status       string           `json:"status"`
	Pipeline     *ml.HealthStatus `json:"pipeline"`
	HistoryCount int              `json:"history_count"`
	FeedClients  int              `json:"feed_clients"`
}

func (s *Server) handleEducation(w http.ResponseWriter, r *http.Request) {
	topic, err := content.Lookup(mux.Vars(r)["topic"], r.URL.Query().Get("language"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Info())
}

func (s *Server) handleImportance(w http.ResponseWriter, r *http.Request) {
	resp := importanceResponse{Features: []ml.FeatureStats{}, Top: []string{}}
	if fi := s.pipeline.Importance(); fi != nil {
		resp.Features = fi.GetFeatureImportance()
		resp.Top = fi.GetTopFeatures(topFeatures)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.pipeline.HealthStatus()
	resp := healthResponse{
		Status:      "ok",
		Pipeline:    health,
		FeedClients: s.hub.ClientCount(),
	}

	n, err := s.store.CountSearches()
	if err != nil {
		resp.Status = "degraded"
	}
	resp.HistoryCount = n
	if !health.Healthy {
		resp.Status = "degraded"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
