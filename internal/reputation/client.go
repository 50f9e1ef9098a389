package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cloakgate/cloakgate/internal/observability"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no API key was supplied. This is the
// recognized degraded mode: the reputation filter is skipped, nothing is
// logged above debug level, and no network call is made.
var ErrNotConfigured = errors.New("reputation service not configured")

// ErrUnavailable covers every transient failure mode: timeout, network
// error, non-200 status, malformed or empty payload. Callers treat it as
// "no opinion" and fail open.
var ErrUnavailable = errors.New("reputation service unavailable")

// Hosting classifications reported for an address.
const (
	HostingNone       = ""
	HostingDatacenter = "hosting"
	HostingBusiness   = "business"
)

// Record is the reputation of one network address.
type Record struct {
	ProxyOrVPN   bool
	HostingClass string
	Country      string
	Provider     string
	Operator     string
}

// Client queries a proxycheck.io-compatible reputation service. Lookups are
// bounded by a timeout and never retried; the classifier's fail-open policy
// absorbs single-call failures, and a retry would tax every pageview.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      map[string]cachedRecord
	cacheMu    sync.RWMutex
	cacheTTL   time.Duration
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
}

type cachedRecord struct {
	record  Record
	fetched time.Time
}

// NewClient creates a reputation client. An empty apiKey produces a disabled
// client whose lookups short-circuit without network access.
func NewClient(baseURL, apiKey string, timeout, cacheTTL time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:    make(map[string]cachedRecord),
		cacheTTL: cacheTTL,
		logger:   logger,
		metrics:  metrics,
	}
}

// Enabled reports whether a service credential was supplied.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Lookup fetches the reputation record for the given address. Every failure
// mode comes back as ErrUnavailable (or ErrNotConfigured when disabled);
// Lookup never returns a transport error directly.
func (c *Client) Lookup(ctx context.Context, address string) (*Record, error) {
	if !c.Enabled() {
		c.metrics.IncrementReputationLookups("disabled")
		return nil, ErrNotConfigured
	}

	c.cacheMu.RLock()
	cached, ok := c.cache[address]
	c.cacheMu.RUnlock()
	if ok && time.Since(cached.fetched) < c.cacheTTL {
		c.metrics.IncrementReputationLookups("cached")
		rec := cached.record
		return &rec, nil
	}

	rec, err := c.query(ctx, address)
	if err != nil {
		c.logger.Warn("reputation lookup failed, failing open",
			zap.Error(err),
			zap.String("address", address))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.cacheMu.Lock()
	c.cache[address] = cachedRecord{record: *rec, fetched: time.Now()}
	c.cacheMu.Unlock()

	return rec, nil
}

// wireResult mirrors the per-address object of a proxycheck v2 response.
type wireResult struct {
	Proxy    string `json:"proxy"`
	Type     string `json:"type"`
	ISO      string `json:"iso"`
	Provider string `json:"provider"`
	Operator string `json:"operator"`
}

// query performs the single outbound call and maps the response.
func (c *Client) query(ctx context.Context, address string) (*Record, error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		c.metrics.RecordReputationLatency(time.Since(start))
		c.metrics.IncrementReputationLookups(outcome)
	}()

	url := fmt.Sprintf("%s/v2/%s?key=%s&vpn=1&asn=1", c.baseURL, address, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		outcome = "unavailable"
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "unavailable"
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && c.logger != nil {
			c.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		outcome = "unavailable"
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	// The response is keyed by the queried address alongside a status field.
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		outcome = "unavailable"
		return nil, fmt.Errorf("decode response: %w", err)
	}
	raw, ok := payload[address]
	if !ok {
		outcome = "unavailable"
		return nil, fmt.Errorf("no result for %s", address)
	}
	var res wireResult
	if err := json.Unmarshal(raw, &res); err != nil {
		outcome = "unavailable"
		return nil, fmt.Errorf("parse result: %w", err)
	}

	rec := &Record{
		ProxyOrVPN: res.Proxy == "yes",
		Country:    res.ISO,
		Provider:   res.Provider,
		Operator:   res.Operator,
	}
	switch strings.ToLower(res.Type) {
	case "hosting":
		rec.HostingClass = HostingDatacenter
	case "business":
		rec.HostingClass = HostingBusiness
	}
	return rec, nil
}
