package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/cloakgate/cloakgate/internal/models"
)

// HitLogService is the persistence surface for classified pageviews.
// Implementations should handle cases where underlying storage is unavailable
// by returning ErrUnavailable.
type HitLogService interface {
	// InsertHit records one classified pageview.
	InsertHit(ctx context.Context, hit models.Hit) error
	// RecentHits returns up to limit hits, newest first.
	RecentHits(ctx context.Context, limit int) ([]models.Hit, error)
}

// ErrUnavailable is returned when the hit log is not configured.
var ErrUnavailable = fmt.Errorf("hit log unavailable")

// HitLog wraps a ClickHouse connection.
type HitLog struct {
	DB *sql.DB
}

var _ HitLogService = (*HitLog)(nil)

// InitClickHouse connects to ClickHouse and ensures the hits table exists.
func InitClickHouse(dsn string) (*HitLog, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS hits (
       timestamp     DateTime,
       id            String,
       campaign_slug String,
       ip            String,
       country       String,
       device        String,
       browser       String,
       os            String,
       device_type   String,
       is_bot        UInt8,
       reason        String
   ) ENGINE=MergeTree() ORDER BY (campaign_slug, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &HitLog{DB: db}, nil
}

// InsertHit inserts a single hit row.
func (h *HitLog) InsertHit(ctx context.Context, hit models.Hit) error {
	if h == nil || h.DB == nil {
		return ErrUnavailable
	}
	if hit.Timestamp.IsZero() {
		hit.Timestamp = time.Now()
	}
	var isBot uint8
	if hit.IsBot {
		isBot = 1
	}
	stmt := `INSERT INTO hits (timestamp, id, campaign_slug, ip, country, device, browser, os, device_type, is_bot, reason) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := h.DB.ExecContext(ctx, stmt, hit.Timestamp, hit.ID, hit.CampaignSlug, hit.IP,
		hit.Country, hit.Device, hit.Browser, hit.OS, hit.DeviceType, isBot, hit.Reason); err != nil {
		return fmt.Errorf("insert hit: %w", err)
	}
	return nil
}

// RecentHits returns the most recent hits across all campaigns.
func (h *HitLog) RecentHits(ctx context.Context, limit int) ([]models.Hit, error) {
	if h == nil || h.DB == nil {
		return nil, ErrUnavailable
	}
	query := `SELECT timestamp, id, campaign_slug, ip, country, device, browser, os, device_type, is_bot, reason FROM hits ORDER BY timestamp DESC LIMIT ?`
	rows, err := h.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query hits: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			zap.L().Warn("rows close", zap.Error(err))
		}
	}()

	var hits []models.Hit
	for rows.Next() {
		var hit models.Hit
		var isBot uint8
		if err := rows.Scan(&hit.Timestamp, &hit.ID, &hit.CampaignSlug, &hit.IP, &hit.Country,
			&hit.Device, &hit.Browser, &hit.OS, &hit.DeviceType, &isBot, &hit.Reason); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		hit.IsBot = isBot == 1
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return hits, nil
}

// Close terminates the ClickHouse connection.
func (h *HitLog) Close() {
	if h != nil && h.DB != nil {
		if err := h.DB.Close(); err != nil {
			zap.L().Error("clickhouse close", zap.Error(err))
		}
	}
}
