package device

import (
	"net"
	"net/http"
	"strings"

	"github.com/fintrack-api/internal/domain"
)

const maxUserAgentLen = 256

// FromRequest captures the metadata stored alongside a refresh token.
func FromRequest(r *http.Request) domain.DeviceInfo {
	ua := r.UserAgent()
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	return domain.DeviceInfo{UserAgent: ua, IPAddress: RealIP(r)}
}

// RealIP returns the client address, preferring the first X-Forwarded-For hop,
// then X-Real-Ip, then the connection's remote address without its port.
// The headers are client supplied, so the result is informational only.
func RealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xr := r.Header.Get("X-Real-Ip"); xr != "" {
		return strings.TrimSpace(xr)
	}
	return PeerIP(r)
}

// PeerIP returns the host part of r.RemoteAddr. Behind a trusted proxy the
// router rewrites RemoteAddr from the forwarding headers before this runs.
func PeerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
