package signals

import (
	"net"
	"net/http"
	"strings"

	"github.com/avct/uasurfer"
)

// Device type classifications derived from the user agent.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceOther   = "other"
)

// LoopbackSentinel is used when neither a forwarded-address header nor a
// transport peer address is available.
const LoopbackSentinel = "127.0.0.1"

// Bundle is the canonical signal set for one request. It is derived once per
// request and never mutated afterwards.
type Bundle struct {
	UserAgent   string
	Browser     string
	OS          string
	DeviceType  string
	DesktopOS   bool
	IP          string
	Referrer    string
	ScreenWidth int
}

// Extract normalizes raw request attributes into a Bundle. Parsing is best
// effort and never fails; unrecognized user agents come back as "other" with
// empty browser/OS names.
func Extract(userAgent, referrer string, screenWidth int, clientIP string) Bundle {
	u := uasurfer.Parse(userAgent)

	var deviceType string
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		deviceType = DeviceDesktop
	case uasurfer.DevicePhone:
		deviceType = DeviceMobile
	case uasurfer.DeviceTablet:
		deviceType = DeviceTablet
	default:
		deviceType = DeviceOther
	}

	var desktopOS bool
	switch u.OS.Name {
	case uasurfer.OSWindows, uasurfer.OSMacOSX, uasurfer.OSLinux, uasurfer.OSChromeOS:
		desktopOS = true
	}

	return Bundle{
		UserAgent:   userAgent,
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		OS:          strings.TrimPrefix(u.OS.Name.String(), "OS"),
		DeviceType:  deviceType,
		DesktopOS:   desktopOS,
		IP:          clientIP,
		Referrer:    referrer,
		ScreenWidth: screenWidth,
	}
}

// ClientIP resolves the originating address of a request. The forwarded
// header wins over the transport peer: reverse proxies rewrite it with the
// real client, and the peer address behind a proxy is the proxy itself.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			xff = xff[:idx]
		}
		return strings.TrimSpace(xff)
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return LoopbackSentinel
}
