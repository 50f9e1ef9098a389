package models

import (
	"context"
	"errors"
	"time"
)

// Campaign statuses. Only active campaigns are classified; anything else is
// sent straight to the safe page.
const (
	CampaignStatusActive = "active"
	CampaignStatusPaused = "paused"
)

// CountryAll is the sentinel value for CountryAllowed meaning no geo
// restriction. A single ISO code is the only other supported value.
const CountryAll = "ALL"

// Campaign holds the cloaking policy for a single entry point. The slug is
// what the landing page sends with each classification request; the policy
// flags drive the filter chain and the two destinations are where visitors
// end up depending on the verdict.
type Campaign struct {
	ID              int       `json:"id"`
	Slug            string    `json:"slug"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	AllowDesktop    bool      `json:"allow_desktop"`
	AllowVPN        bool      `json:"allow_vpn"`
	RequireReferrer bool      `json:"require_referrer"`
	CountryAllowed  string    `json:"country_allowed"`
	SafePage        string    `json:"safe_page"`
	MoneyPage       string    `json:"money_page"`
	CreatedAt       time.Time `json:"created_at"`
}

// ErrNotFound is returned by stores when no row matches.
var ErrNotFound = errors.New("not found")

// ErrDuplicateSlug is returned when inserting a campaign whose slug is taken.
var ErrDuplicateSlug = errors.New("slug already exists")

// CampaignStore is the read/write surface for campaign policies. The Postgres
// implementation lives in internal/db; handlers depend on this interface so
// they can be tested without a database.
type CampaignStore interface {
	GetCampaignBySlug(ctx context.Context, slug string) (*Campaign, error)
	InsertCampaign(ctx context.Context, c *Campaign) error
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	UpdateCampaign(ctx context.Context, c Campaign) error
	DeleteCampaign(ctx context.Context, slug string) error
}
