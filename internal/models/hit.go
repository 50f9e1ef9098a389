package models

import "time"

// Hit is one classified pageview, persisted for later review. Device carries
// the raw user agent truncated to DeviceMaxLen so the log stays readable.
type Hit struct {
	ID           string    `json:"id"`
	CampaignSlug string    `json:"campaign_slug"`
	IP           string    `json:"ip"`
	Country      string    `json:"country"`
	Device       string    `json:"device"`
	Browser      string    `json:"browser"`
	OS           string    `json:"os"`
	DeviceType   string    `json:"device_type"`
	IsBot        bool      `json:"is_bot"`
	Reason       string    `json:"reason"`
	Timestamp    time.Time `json:"timestamp"`
}

// DeviceMaxLen bounds the user agent stored on a hit.
const DeviceMaxLen = 50

// TruncateDevice clips a raw user agent for storage on a Hit.
func TruncateDevice(ua string) string {
	if len(ua) > DeviceMaxLen {
		return ua[:DeviceMaxLen]
	}
	return ua
}
