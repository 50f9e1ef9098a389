package logic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloakgate/cloakgate/internal/models"
	"github.com/cloakgate/cloakgate/internal/reputation"
	"github.com/cloakgate/cloakgate/internal/signals"
	"go.uber.org/zap"
)

// botTerms is the fixed denylist of case-normalized user agent fragments
// identifying crawlers, link-preview fetchers, headless browsers, automation
// frameworks and scripted HTTP clients.
var botTerms = []string{
	"FACEBOOK",
	"GOOGLE",
	"TWITTER",
	"BOT",
	"CRAWL",
	"SPIDER",
	"HEADLESS",
	"LIGHTHOUSE",
	"PTST",
	"SELENIUM",
	"PUPPETEER",
	"PLAYWRIGHT",
	"PHANTOMJS",
	"CURL",
	"WGET",
	"PYTHON",
}

// socialFragments are the referrer fragments recognized as organic social
// traffic when a campaign requires a referrer. Matched case-insensitively as
// substrings of the full referrer URL.
var socialFragments = []string{
	"facebook",
	"instagram",
	"tiktok",
	"twitter",
	"t.co",
	"x.com",
	"youtube",
	"whatsapp",
	"telegram",
	"snapchat",
}

// botUserAgentFilter blocks user agents containing a denylisted fragment.
type botUserAgentFilter struct{}

func (botUserAgentFilter) Name() string { return "bot_user_agent" }

func (botUserAgentFilter) Evaluate(_ context.Context, sig signals.Bundle, _ models.Campaign) *Verdict {
	uaUpper := strings.ToUpper(sig.UserAgent)
	for _, term := range botTerms {
		if strings.Contains(uaUpper, term) {
			return &Verdict{IsBot: true, Reason: fmt.Sprintf("bot detected (UA: %s)", term)}
		}
	}
	return nil
}

// desktopFilter blocks desktop traffic on mobile-only campaigns. Tablets and
// phones pass regardless of the reported OS family.
type desktopFilter struct{}

func (desktopFilter) Name() string { return "desktop" }

func (desktopFilter) Evaluate(_ context.Context, sig signals.Bundle, c models.Campaign) *Verdict {
	if c.AllowDesktop {
		return nil
	}
	if sig.DeviceType == signals.DeviceMobile || sig.DeviceType == signals.DeviceTablet {
		return nil
	}
	if sig.DesktopOS {
		return &Verdict{IsBot: true, Reason: fmt.Sprintf("desktop blocked, mobile only (%s)", sig.OS)}
	}
	return nil
}

// referrerFilter blocks traffic without a recognized social referrer when the
// campaign requires one.
type referrerFilter struct{}

func (referrerFilter) Name() string { return "referrer" }

func (referrerFilter) Evaluate(_ context.Context, sig signals.Bundle, c models.Campaign) *Verdict {
	if !c.RequireReferrer {
		return nil
	}
	if sig.Referrer == "" {
		return &Verdict{IsBot: true, Reason: "referrer required but missing"}
	}
	ref := strings.ToLower(sig.Referrer)
	for _, fragment := range socialFragments {
		if strings.Contains(ref, fragment) {
			return nil
		}
	}
	return &Verdict{IsBot: true, Reason: fmt.Sprintf("referrer not recognized (%s)", sig.Referrer)}
}

// Lookuper is the reputation dependency of the classifier. *reputation.Client
// satisfies it; tests substitute a stub.
type Lookuper interface {
	Enabled() bool
	Lookup(ctx context.Context, address string) (*reputation.Record, error)
}

// reputationFilter blocks proxies/VPNs, datacenter traffic and geo
// mismatches based on an external lookup. The lookup is an unreliable
// dependency: when it cannot answer, this filter deliberately passes.
// Diverting real visitors to the safe page during a provider outage costs
// conversions; letting the odd bot through costs nothing.
type reputationFilter struct {
	client Lookuper
	logger *zap.Logger
}

func (f *reputationFilter) Name() string { return "reputation" }

func (f *reputationFilter) Evaluate(ctx context.Context, sig signals.Bundle, c models.Campaign) *Verdict {
	if f.client == nil || !f.client.Enabled() {
		return nil
	}

	rec, err := f.client.Lookup(ctx, sig.IP)
	if err != nil {
		if !errors.Is(err, reputation.ErrNotConfigured) {
			f.logger.Warn("reputation unavailable, passing traffic",
				zap.Error(err), zap.String("ip", sig.IP))
		}
		return nil
	}

	if rec.ProxyOrVPN && !c.AllowVPN {
		provider := rec.Provider
		if provider == "" {
			provider = "unknown"
		}
		return &Verdict{IsBot: true, Reason: fmt.Sprintf("VPN/proxy detected (%s)", provider)}
	}

	if rec.HostingClass == reputation.HostingDatacenter || rec.HostingClass == reputation.HostingBusiness {
		return &Verdict{IsBot: true, Reason: fmt.Sprintf("datacenter/server IP (%s)", rec.Operator)}
	}

	if c.CountryAllowed != "" && c.CountryAllowed != models.CountryAll && rec.Country != c.CountryAllowed {
		return &Verdict{IsBot: true, Reason: fmt.Sprintf("wrong geolocation (%s)", rec.Country)}
	}

	return nil
}
