package handlers

import (
	"net"
	"net/http"
	"strings"
)

// RateLimiter guards endpoints that attract abuse, keyed by client IP
// within an endpoint scope.
type RateLimiter interface {
	Allow(key string) bool
}

// allowRequest checks the limiter for the request's client, if one is
// configured. A nil limiter admits everything.
func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	key := clientIP(r)
	if scope != "" {
		key = scope + ":" + key
	}
	return limiter.Allow(key)
}

// clientIP prefers the first X-Forwarded-For hop so limits hold behind
// a reverse proxy, falling back to the connection's remote address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
