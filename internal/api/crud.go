package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cloakgate/cloakgate/internal/models"
)

// helper function to write JSON response
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// recentHitsLimit bounds the stats payload.
const recentHitsLimit = 500

// ===== Campaigns =====

func (s *Server) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	cs, err := s.Campaigns.ListCampaigns(r.Context())
	if err != nil {
		s.Logger.Error("list campaigns", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if cs == nil {
		cs = []models.Campaign{}
	}
	writeJSON(w, cs)
}

func (s *Server) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var c models.Campaign
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if c.Slug == "" || c.SafePage == "" || c.MoneyPage == "" {
		http.Error(w, "slug, safe_page and money_page required", http.StatusBadRequest)
		return
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusActive
	}
	if c.CountryAllowed == "" {
		c.CountryAllowed = models.CountryAll
	}

	if err := s.Campaigns.InsertCampaign(r.Context(), &c); err != nil {
		if errors.Is(err, models.ErrDuplicateSlug) {
			http.Error(w, "slug already exists", http.StatusConflict)
			return
		}
		s.Logger.Error("insert campaign", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, c)
}

func (s *Server) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	var c models.Campaign
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	c.Slug = slug

	if err := s.Campaigns.UpdateCampaign(r.Context(), c); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "campaign not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("update campaign", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, c)
}

func (s *Server) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	if err := s.Campaigns.DeleteCampaign(r.Context(), slug); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "campaign not found", http.StatusNotFound)
			return
		}
		s.Logger.Error("delete campaign", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Stats =====

type campaignStats struct {
	Slug string `json:"slug"`
	Hits int64  `json:"hits"`
	Bots int64  `json:"bots"`
}

type statsResponse struct {
	Campaigns []models.Campaign `json:"campaigns"`
	Hits      []models.Hit      `json:"hits"`
	Counters  []campaignStats   `json:"counters"`
}

// StatsHandler returns campaigns, recent hits and today's counters. The hit
// log and counters degrade to empty sections when unavailable; the campaign
// list is the only hard dependency.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	cs, err := s.Campaigns.ListCampaigns(r.Context())
	if err != nil {
		s.Logger.Error("list campaigns for stats", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if cs == nil {
		cs = []models.Campaign{}
	}

	resp := statsResponse{Campaigns: cs, Hits: []models.Hit{}, Counters: []campaignStats{}}

	if s.HitLog != nil {
		hits, err := s.HitLog.RecentHits(r.Context(), recentHitsLimit)
		if err != nil {
			s.Logger.Warn("recent hits unavailable", zap.Error(err))
		} else if hits != nil {
			resp.Hits = hits
		}
	}

	if s.Counters != nil {
		for _, c := range cs {
			hits, bots := s.Counters.GetHitCounts(c.Slug)
			resp.Counters = append(resp.Counters, campaignStats{Slug: c.Slug, Hits: hits, Bots: bots})
		}
	}

	writeJSON(w, resp)
}
