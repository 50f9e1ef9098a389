package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cloakgate/cloakgate/internal/models"
)

// Postgres wraps a postgres DB connection and implements models.CampaignStore.
type Postgres struct {
	DB *sql.DB
}

var _ models.CampaignStore = (*Postgres)(nil)

// schemaSQL sets up the campaigns table if it doesn't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS campaigns (
    id SERIAL PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    allow_desktop BOOLEAN NOT NULL DEFAULT FALSE,
    allow_vpn BOOLEAN NOT NULL DEFAULT FALSE,
    require_referrer BOOLEAN NOT NULL DEFAULT FALSE,
    country_allowed TEXT NOT NULL DEFAULT 'ALL',
    safe_page TEXT NOT NULL,
    money_page TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_campaigns_slug ON campaigns (slug);
`

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	if _, err := p.DB.ExecContext(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const campaignColumns = `id, slug, name, status, allow_desktop, allow_vpn, require_referrer, country_allowed, safe_page, money_page, created_at`

func scanCampaign(row interface{ Scan(...any) error }) (*models.Campaign, error) {
	var c models.Campaign
	if err := row.Scan(&c.ID, &c.Slug, &c.Name, &c.Status, &c.AllowDesktop, &c.AllowVPN,
		&c.RequireReferrer, &c.CountryAllowed, &c.SafePage, &c.MoneyPage, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCampaignBySlug returns the campaign with the given slug or
// models.ErrNotFound.
func (p *Postgres) GetCampaignBySlug(ctx context.Context, slug string) (*models.Campaign, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE slug=$1`, slug)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("query campaign: %w", err)
	}
	return c, nil
}

// InsertCampaign inserts a new campaign and fills in the generated ID.
// A duplicate slug surfaces as models.ErrDuplicateSlug.
func (p *Postgres) InsertCampaign(ctx context.Context, c *models.Campaign) error {
	err := p.DB.QueryRowContext(ctx, `INSERT INTO campaigns
        (slug, name, status, allow_desktop, allow_vpn, require_referrer, country_allowed, safe_page, money_page)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at`,
		c.Slug, c.Name, c.Status, c.AllowDesktop, c.AllowVPN, c.RequireReferrer,
		c.CountryAllowed, c.SafePage, c.MoneyPage).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.ErrDuplicateSlug
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

// ListCampaigns retrieves all campaigns, newest first.
func (p *Postgres) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var cs []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		cs = append(cs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return cs, nil
}

// UpdateCampaign updates an existing campaign identified by slug.
func (p *Postgres) UpdateCampaign(ctx context.Context, c models.Campaign) error {
	res, err := p.DB.ExecContext(ctx, `UPDATE campaigns SET
        name=$1, status=$2, allow_desktop=$3, allow_vpn=$4, require_referrer=$5,
        country_allowed=$6, safe_page=$7, money_page=$8 WHERE slug=$9`,
		c.Name, c.Status, c.AllowDesktop, c.AllowVPN, c.RequireReferrer,
		c.CountryAllowed, c.SafePage, c.MoneyPage, c.Slug)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteCampaign removes a campaign by slug.
func (p *Postgres) DeleteCampaign(ctx context.Context, slug string) error {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE slug=$1`, slug)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}
