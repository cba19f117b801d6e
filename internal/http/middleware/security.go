package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects the optional response headers.
type SecurityOptions struct {
	// HSTS is sent only on requests that arrived over HTTPS, directly or
	// through a proxy setting X-Forwarded-Proto.
	EnableHSTS bool
	HSTSMaxAge time.Duration // <= 0 means 180 days

	// Meal bodies are revalidated through ETag, so "no-cache" is the usual
	// value. "no-store" also sends Pragma and Expires for old caches.
	CacheControl string

	EnablePolicy bool // Permissions-Policy and X-Permitted-Cross-Domain-Policies
}

// SecurityHeaders sets the static headers before the handler runs, so they
// are present on errors and 304s as well.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := http.Header{}
	static.Set("X-Content-Type-Options", "nosniff")
	static.Set("X-Frame-Options", "DENY")
	static.Set("Referrer-Policy", "no-referrer")
	if opt.EnablePolicy {
		static.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
		static.Set("X-Permitted-Cross-Domain-Policies", "none")
	}
	switch opt.CacheControl {
	case "":
	case "no-store":
		static.Set("Cache-Control", "no-store")
		static.Set("Pragma", "no-cache")
		static.Set("Expires", "0")
	default:
		static.Set("Cache-Control", opt.CacheControl)
	}

	age := opt.HSTSMaxAge
	if age <= 0 {
		age = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.FormatInt(int64(age/time.Second), 10) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range static {
			h[k] = append([]string(nil), v...)
		}
		if opt.EnableHSTS && overTLS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		// Browsers may read the correlation id and the validator.
		if h.Get(requestIDHeader) != "" {
			expose(h, requestIDHeader, "ETag")
		}
		c.Next()
	}
}

// expose adds names to Access-Control-Expose-Headers, skipping ones already
// listed (case-insensitively).
func expose(h http.Header, names ...string) {
	const key = "Access-Control-Expose-Headers"
	var list []string
	seen := map[string]bool{}
	for _, part := range strings.Split(h.Get(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			list = append(list, p)
			seen[strings.ToLower(p)] = true
		}
	}
	for _, n := range names {
		if !seen[strings.ToLower(n)] {
			list = append(list, n)
			seen[strings.ToLower(n)] = true
		}
	}
	if len(list) > 0 {
		h.Set(key, strings.Join(list, ", "))
	}
}

func overTLS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
