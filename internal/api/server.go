package api

import (
	"github.com/cloakgate/cloakgate/internal/analytics"
	"github.com/cloakgate/cloakgate/internal/config"
	"github.com/cloakgate/cloakgate/internal/db"
	"github.com/cloakgate/cloakgate/internal/geoip"
	"github.com/cloakgate/cloakgate/internal/logic"
	"github.com/cloakgate/cloakgate/internal/observability"

	"go.uber.org/zap"

	"github.com/cloakgate/cloakgate/internal/models"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger     *zap.Logger
	Campaigns  models.CampaignStore
	Classifier *logic.Classifier
	Hits       analytics.HitSink
	HitLog     analytics.HitLogService
	Counters   *db.RedisStore
	GeoIP      *geoip.GeoIP
	Metrics    observability.MetricsRegistry
	Config     config.Config
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, campaigns models.CampaignStore, classifier *logic.Classifier, hits analytics.HitSink, hitLog analytics.HitLogService, counters *db.RedisStore, geo *geoip.GeoIP, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	return &Server{
		Logger:     logger,
		Campaigns:  campaigns,
		Classifier: classifier,
		Hits:       hits,
		HitLog:     hitLog,
		Counters:   counters,
		GeoIP:      geo,
		Metrics:    metrics,
		Config:     cfg,
	}
}
