package web

import (
	"net/http"
	"slices"
)

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders = "Authorization, Content-Type"
)

// corsPolicy allows the request's own origin and a configured allow-list.
type corsPolicy struct {
	allowed []string
}

// origin returns the Origin header when it may be reflected, or "".
func (c corsPolicy) origin(r *http.Request) string {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return ""
	}
	if origin == requestOrigin(r) || slices.Contains(c.allowed, origin) {
		return origin
	}
	return ""
}

// build sets the CORS headers for responses generated here. Methods and
// headers are always advertised; the origin only on a match.
func (c corsPolicy) build(h http.Header, r *http.Request) {
	if origin := c.origin(r); origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Vary", "Origin")
	}
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
}

// apply replaces any upstream CORS headers with ours. origin is the result
// of corsPolicy.origin for the inbound request.
func (c corsPolicy) apply(h http.Header, origin string) {
	h.Del("Access-Control-Allow-Origin")
	h.Del("Access-Control-Allow-Methods")
	h.Del("Access-Control-Allow-Headers")
	h.Del("Vary")

	if origin != "" {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Add("Vary", "Origin")
	}
}

// preflight answers every OPTIONS request with 204.
func (c corsPolicy) preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			c.build(w.Header(), r)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestOrigin is the scheme and host the request was addressed to.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
