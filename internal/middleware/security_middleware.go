package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/metrics"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils/ratelimit"
)

// SecurityHeaders adds security-related HTTP headers to responses
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(constants.HeaderXContentTypeOptions, constants.ContentTypeOptionsNoSniff)
			w.Header().Set(constants.HeaderXFrameOptions, constants.FrameOptionsDeny)
			w.Header().Set(constants.HeaderReferrerPolicy, constants.ReferrerPolicyStrictOrigin)
			w.Header().Set(constants.HeaderContentSecurityPolicy, constants.CSPDefaultSrc)

			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses as uncacheable.
func NoStore() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(constants.HeaderCacheControl, constants.CacheControlNoStore)
			w.Header().Set(constants.HeaderPragma, constants.PragmaNoCache)
			next.ServeHTTP(w, r)
		})
	}
}

// FailureRateLimit rejects clients that exceeded their budget of failed
// requests. Only responses with status 400 or above are counted. Store
// errors fail open.
func FailureRateLimit(store ratelimit.Store, limit int, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)

			decision, err := store.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("client_ip", key).Msg("Rate limit check failed, allowing request")
				decision.Allowed = true
			}

			if !decision.Allowed {
				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(retryAfter))
				w.Header().Set(constants.HeaderXRateLimitLimit, strconv.Itoa(limit))
				w.Header().Set(constants.HeaderXRateLimitRemaining, "0")

				m.RateLimited()
				log.Warn().
					Str("client_ip", key).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Int("retry_after", retryAfter).
					Msg("Rate limit exceeded")

				utils.TooManyRequests(w)
				return
			}

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if ww.Status() >= http.StatusBadRequest {
				if err := store.Fail(context.WithoutCancel(r.Context()), key); err != nil {
					log.Warn().Err(err).Str("client_ip", key).Msg("Failed to record failed request")
				}
			}
		})
	}
}

// RealIP applies chi's RealIP middleware to requests whose direct peer is
// one of the trusted proxies. Other requests keep their socket address, so
// a client cannot pick its own key for the failure limiter.
func RealIP(trusted []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		proxied := chimiddleware.RealIP(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(trusted) > 0 && peerTrusted(trusted, ClientIP(r)) {
				proxied.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func peerTrusted(trusted []*net.IPNet, peer string) bool {
	ip := net.ParseIP(peer)
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the host part of the remote address. Behind RealIP this
// is the forwarded client address for trusted proxies.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
