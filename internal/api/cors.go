package api

import (
	"net/http"
	"strconv"
	"strings"
)

type CORSOptions struct {
	// AllowedOrigins are matched exactly. "*" admits any origin, which is
	// still echoed back rather than sent as a literal wildcard.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAgeSeconds  int
}

type corsPolicy struct {
	anyOrigin bool
	origins   map[string]struct{}
	methods   string
	headers   string
	exposed   string
	maxAge    string
}

func newCORSPolicy(opts CORSOptions) corsPolicy {
	p := corsPolicy{
		origins: make(map[string]struct{}, len(opts.AllowedOrigins)),
		methods: joinOr(opts.AllowedMethods, "GET, POST, PUT, DELETE, OPTIONS"),
		headers: joinOr(opts.AllowedHeaders, "Content-Type, Authorization"),
		exposed: joinOr(opts.ExposedHeaders, "Retry-After"),
		maxAge:  "600",
	}
	for _, o := range opts.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		if o != "" {
			p.origins[o] = struct{}{}
		}
	}
	if opts.MaxAgeSeconds > 0 {
		p.maxAge = strconv.Itoa(opts.MaxAgeSeconds)
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// CORSMiddleware answers preflights itself and decorates simple requests.
// A preflight from an origin outside the allowlist gets 403.
func CORSMiddleware(opts CORSOptions) func(http.Handler) http.Handler {
	p := newCORSPolicy(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			allowed := p.allows(origin)
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if preflight {
				h.Add("Vary", "Access-Control-Request-Method")
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", p.methods)
				h.Set("Access-Control-Allow-Headers", p.headers)
				h.Set("Access-Control-Max-Age", p.maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Expose-Headers", p.exposed)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func joinOr(vals []string, fallback string) string {
	if len(vals) == 0 {
		return fallback
	}
	return strings.Join(vals, ", ")
}
