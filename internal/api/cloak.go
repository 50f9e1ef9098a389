package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cloakgate/cloakgate/internal/middleware"
	"github.com/cloakgate/cloakgate/internal/models"
	"github.com/cloakgate/cloakgate/internal/observability"
	"github.com/cloakgate/cloakgate/internal/signals"
)

var tracer = otel.Tracer("cloakgate")

// Actions returned to the landing page.
const (
	ActionSafe  = "safe"
	ActionMoney = "money"
)

type cloakRequest struct {
	Slug        string `json:"slug"`
	UserAgent   string `json:"user_agent"`
	Referrer    string `json:"referrer"`
	ScreenWidth int    `json:"screen_width"`
}

type cloakResponse struct {
	Action string `json:"action"`
	Target string `json:"target"`
}

// CloakHandler handles POST /cloak: extract signals, classify, log, pick a
// destination. The endpoint is always-200 on the decision path; every
// failure mode resolves to a safe destination rather than an error payload,
// so the caller's integration stays a single unconditional redirect.
func (s *Server) CloakHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "CloakHandler",
		trace.WithAttributes(
			attribute.String("http.method", "POST"),
			attribute.String("http.route", "/cloak"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "cloak"
	const method = "POST"

	responded := false
	respond := func(action, target string) {
		responded = true
		s.Metrics.IncrementDecisions(action)
		s.Metrics.IncrementRequests(endpoint, method, "200")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		span.SetAttributes(attribute.String("cloak.action", action))
		writeJSON(w, cloakResponse{Action: action, Target: target})
	}

	// Whatever breaks below, the caller still gets a destination.
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("cloak handler panic", zap.Any("panic", rec))
			if !responded {
				respond(ActionSafe, s.Config.FallbackURL)
			}
		}
	}()

	var req cloakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slug == "" {
		logger.Debug("malformed cloak request", zap.Error(err))
		respond(ActionSafe, s.Config.FallbackURL)
		return
	}

	campaign, err := s.Campaigns.GetCampaignBySlug(ctx, req.Slug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.Debug("unknown campaign slug", zap.String("slug", req.Slug))
		} else {
			logger.Error("campaign lookup failed", zap.Error(err), zap.String("slug", req.Slug))
		}
		respond(ActionSafe, s.Config.FallbackURL)
		return
	}

	if campaign.Status != models.CampaignStatusActive {
		// Configuration-driven branch, not traffic-driven: no hit logged.
		respond(ActionSafe, campaign.SafePage)
		return
	}

	ip := signals.ClientIP(r)
	sig := signals.Extract(req.UserAgent, req.Referrer, req.ScreenWidth, ip)
	span.SetAttributes(
		attribute.String("cloak.slug", req.Slug),
		attribute.String("cloak.ip", ip),
		attribute.String("cloak.device_type", sig.DeviceType),
	)

	// Reported screen width is a cheap pre-filter: real browsers send it,
	// simple bots don't. Checked before the classifier so the reputation
	// lookup is never paid for such traffic.
	if req.ScreenWidth < s.Config.MinScreenWidth {
		s.logHit(sig, req.Slug, models.Hit{IsBot: true, Reason: "no screen resolution (simple bot)"})
		respond(ActionSafe, campaign.SafePage)
		return
	}

	verdict := s.Classifier.Classify(ctx, sig, *campaign)
	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("cloak decision",
			zap.String("slug", req.Slug),
			zap.String("ip", ip),
			zap.Bool("is_bot", verdict.IsBot),
			zap.String("reason", verdict.Reason))
	}

	s.logHit(sig, req.Slug, models.Hit{IsBot: verdict.IsBot, Reason: verdict.Reason})

	if verdict.IsBot {
		respond(ActionSafe, campaign.SafePage)
		return
	}
	respond(ActionMoney, campaign.MoneyPage)
}

// logHit fills in the signal-derived fields and hands the hit to the
// fire-and-forget sink.
func (s *Server) logHit(sig signals.Bundle, slug string, hit models.Hit) {
	hit.ID = uuid.NewString()
	hit.CampaignSlug = slug
	hit.IP = sig.IP
	hit.Country = s.GeoIP.Country(net.ParseIP(sig.IP))
	hit.Device = models.TruncateDevice(sig.UserAgent)
	hit.Browser = sig.Browser
	hit.OS = sig.OS
	hit.DeviceType = sig.DeviceType
	hit.Timestamp = time.Now()
	s.Hits.Enqueue(hit)
}
