// Package device labels each request with a coarse client device, derived
// from the User-Agent, for the audit trail.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"solmeet/pkg/requestcontext"
)

const (
	LabelUnknown = "unknown"
	LabelBot     = "bot"
)

// Label reduces a User-Agent to "browser on os", or "bot" for crawlers and
// automated clients. The label never carries version numbers.
func Label(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return LabelUnknown
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return LabelBot
	}

	browser, _ := ua.Browser()
	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = LabelUnknown
	}
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	os = strings.ToLower(strings.TrimSpace(os))
	if os == "" {
		os = LabelUnknown
	}
	return browser + " on " + os
}

// Middleware stores the device label. It must run after the metadata
// middleware, which extracts the User-Agent.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDevice(r.Context(), Label(requestcontext.UserAgent(r.Context())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
