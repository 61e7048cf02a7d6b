package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/metrics"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// TokenPeeker reads the user id from a bearer token without validating its
// purpose, expiry or revocation.
type TokenPeeker interface {
	Peek(bearer string) (string, bool)
}

// RequestLogStore persists served requests.
type RequestLogStore interface {
	Create(ctx context.Context, entry *models.RequestLog) error
}

// RequestContext assigns every request a trace code of the form
// <userId>-<unixMillis>-<ip> and a request id, echoes both as response
// headers and stores them in the request context. The request id is the
// X-Request-ID header when present and the trace code otherwise.
func RequestContext(peeker TokenPeeker, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := constants.AnonymousUserID
			if bearer, ok := auth.BearerToken(r); ok {
				if id, ok := peeker.Peek(bearer); ok {
					userID = id
				}
			}

			traceCode := fmt.Sprintf("%s-%d-%s", userID, now().UnixMilli(), ClientIP(r))

			requestID := r.Header.Get(constants.HeaderXRequestID)
			if requestID == "" {
				requestID = traceCode
			}

			w.Header().Set(constants.HeaderXTraceCode, traceCode)
			w.Header().Set(constants.HeaderXRequestID, requestID)

			ctx := auth.WithRequestMeta(r.Context(), requestID, traceCode)
			ctx = context.WithValue(ctx, traceUserKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type contextKey string

const traceUserKey contextKey = "trace_user_id"

// RequestLogger logs every served request, records HTTP metrics and, when
// store is non-nil, persists a RequestLog row. Persistence failures are
// logged and never reach the client.
func RequestLogger(store RequestLogStore, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			requestID, _ := auth.GetRequestID(r)
			traceCode, _ := auth.GetTraceCode(r)
			userID, _ := r.Context().Value(traceUserKey).(string)
			if userID == "" {
				userID = constants.AnonymousUserID
			}

			utils.LogHTTPRequest(requestID, traceCode, userID, r.Method, r.URL.Path, r.RemoteAddr, status, elapsed)
			m.ObserveHTTP(r.Method, routePattern(r), status, elapsed)

			if store == nil {
				return
			}

			entry := models.NewRequestLog(traceCode, requestID, ClientIP(r), userID, r.Method, r.URL.Path, status, elapsed)
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), constants.RequestLogWriteTimeout)
			defer cancel()
			if err := store.Create(ctx, entry); err != nil {
				log.Warn().Err(err).Str("request_id", requestID).Msg("Failed to persist request log")
			}
		})
	}
}

// routePattern returns the matched chi pattern, or a fixed label for
// requests no route matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
