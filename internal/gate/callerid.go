package gate

import (
	"net"
	"net/http"
	"strings"
)

// CallerID derives the caller identity used for both the network filter
// and the rate-limit key. Proxy headers are consulted in priority order,
// first non-empty match wins, falling back to the transport peer.
func CallerID(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return strings.TrimSpace(rip)
	}
	if fwd := r.Header.Get("Forwarded"); fwd != "" {
		// RFC 7239: for=192.0.2.60;proto=http;by=203.0.113.43
		for _, part := range strings.Split(fwd, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(strings.ToLower(part), "for=") {
				return strings.Trim(part[len("for="):], `"`)
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
