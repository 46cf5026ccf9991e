package security

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// HeadersConfig holds security headers configuration
type HeadersConfig struct {
	// Content Security Policy
	CSP string

	// HSTS settings
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	// Additional security headers
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
	CrossOriginOpener   string
	CrossOriginResource string
}

// DefaultHeadersConfig returns secure defaults. The dashboard ships its own
// script and stylesheet, so nothing outside 'self' is allowed.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: "default-src 'self'; " +
			"script-src 'self'; " +
			"style-src 'self'; " +
			"img-src 'self' data:; " +
			"connect-src 'self'; " +
			"object-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'",

		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,

		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		PermissionsPolicy:   "geolocation=(), microphone=(), camera=(), payment=()",
		CrossOriginOpener:   "same-origin",
		CrossOriginResource: "same-origin",
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	fixed http.Header
	hsts  string
}

// NewHeadersMiddleware renders the configured headers once; empty values
// are skipped.
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	fixed := make(http.Header)
	for name, value := range map[string]string{
		"Content-Security-Policy":      config.CSP,
		"X-Frame-Options":              config.XFrameOptions,
		"X-Content-Type-Options":       config.XContentTypeOptions,
		"Referrer-Policy":              config.ReferrerPolicy,
		"Permissions-Policy":           config.PermissionsPolicy,
		"Cross-Origin-Opener-Policy":   config.CrossOriginOpener,
		"Cross-Origin-Resource-Policy": config.CrossOriginResource,
	} {
		if value != "" {
			fixed.Set(name, value)
		}
	}

	m := &HeadersMiddleware{fixed: fixed}
	if config.HSTSMaxAge > 0 {
		m.hsts = fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			m.hsts += "; includeSubDomains"
		}
	}
	return m
}

// Middleware returns the HTTP middleware function
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for name, values := range h.fixed {
			headers[name] = slices.Clone(values)
		}

		// Financial data must not sit in shared caches
		if strings.HasPrefix(r.URL.Path, "/api/") {
			headers.Set("Cache-Control", "no-store")
		}
		if r.TLS != nil && h.hsts != "" {
			headers.Set("Strict-Transport-Security", h.hsts)
		}

		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware adds caching headers for static assets
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
