package api

import (
	"errors"
	"net/http"
	"strconv"

	"exoplanet-ai/internal/auth"
	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/features"
	"exoplanet-ai/internal/ml"
	"exoplanet-ai/internal/narrative"
	"exoplanet-ai/internal/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// SearchResponse is the reply to POST /search.
type SearchResponse struct {
	Habitable   bool                 `json:"habitable"`
	Confidence  float64              `json:"confidence"`
	Probability float64              `json:"probability"`
	Analysis    string               `json:"analysis"`
	Details     features.Observation `json:"details"`
	SearchID    string               `json:"search_id"`
	OutOfRange  []string             `json:"out_of_range,omitempty"`
	Attribution *ml.Attribution      `json:"shap,omitempty"`
}

// HistoryResponse is the reply to GET /history.
type HistoryResponse struct {
	Count    int                    `json:"count"`
	Searches []storage.SearchRecord `json:"searches"`
}

// caller identifies who is asking: a logged-in account, an anonymous id
// from /api/user/id, or nobody.
type caller struct {
	account *storage.User
	userID  string
}

func (s *Server) identify(r *http.Request) caller {
	var c caller
	if token := auth.TokenFromRequest(r); token != "" {
		u, err := s.auth.Resolve(token)
		if err == nil {
			c.account = &u
			c.userID = u.ID
			return c
		}
		if !errors.Is(err, common.ErrUnauthorized) {
			log.Warn().Err(err).Msg("Session lookup failed")
		}
	}
	c.userID = r.URL.Query().Get("user_id")
	return c
}

// language picks the narrative locale: an explicit ?language=, then the
// caller's saved settings, then the configured default.
func (s *Server) language(r *http.Request, c caller) narrative.Locale {
	if lang := r.URL.Query().Get("language"); lang != "" {
		return narrative.ParseLocale(lang)
	}
	if c.userID != "" {
		if st, err := s.store.GetSettings(c.userID); err == nil && st.Language != "" {
			return narrative.ParseLocale(st.Language)
		}
	}
	return narrative.ParseLocale(s.cfg.DefaultLanguage)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var obs features.Observation
	if err := decodeJSON(w, r, &obs); err != nil {
		writeError(w, err)
		return
	}

	out, err := s.pipeline.Run(r.Context(), obs)
	if err != nil {
		writeError(w, err)
		return
	}

	c := s.identify(r)
	locale := s.language(r, c)
	result := out.Result
	analysis := narrative.Generate(result.Label, result.Confidence, obs.StarSystem, string(locale))

	rec := storage.SearchRecord{
		ID:         uuid.NewString(),
		Timestamp:  s.now().UTC(),
		UserID:     c.userID,
		Language:   string(locale),
		Parameters: obs.WithDefaults(),
		Result: storage.SearchResult{
			Label:      result.Label,
			Confidence: result.Confidence,
			Analysis:   analysis,
		},
		OutOfRange: features.OutOfRange(out.Row),
	}
	if !out.Attribution.Empty() {
		attr := out.Attribution
		rec.Attribution = &attr
	}

	s.record(rec, c)

	writeJSON(w, http.StatusOK, SearchResponse{
		Habitable:   result.Label,
		Confidence:  result.Confidence,
		Probability: result.Probability,
		Analysis:    analysis,
		Details:     rec.Parameters,
		SearchID:    rec.ID,
		OutOfRange:  rec.OutOfRange,
		Attribution: rec.Attribution,
	})
}

// record persists a finished search. Store failures are logged and counted;
// the classification has already succeeded and is still returned.
func (s *Server) record(rec storage.SearchRecord, c caller) {
	if err := s.store.AppendSearch(rec); err != nil {
		s.storeFailed(err, "append search")
		return
	}
	if c.account != nil {
		if err := s.store.IncrementSearchCount(c.account.ID); err != nil {
			s.storeFailed(err, "increment search count")
		}
	}
	if s.metrics != nil {
		if n, err := s.store.CountSearches(); err == nil {
			s.metrics.HistorySize.Set(float64(n))
		}
	}
	s.hub.Publish(rec)
}

func (s *Server) storeFailed(err error, op string) {
	if s.metrics != nil {
		s.metrics.StoreErrors.Inc()
	}
	log.Error().Err(err).Str("op", op).Msg("Store operation failed")
}

func (s *Server) historyLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return s.cfg.HistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > common.MaxHistoryLimit {
		return 0, common.NewValidationError("limit must be between 1 and "+strconv.Itoa(common.MaxHistoryLimit), "limit")
	}
	return n, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := s.historyLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var searches []storage.SearchRecord
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		searches, err = s.store.SearchesByOwner(userID, limit)
	} else {
		searches, err = s.store.RecentSearches(limit)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if searches == nil {
		searches = []storage.SearchRecord{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Count: len(searches), Searches: searches})
}

func (s *Server) handleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetSearch(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
