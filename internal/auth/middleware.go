// Package auth provides password hashing, bearer token issue and
// verification, and the HTTP gate that authenticates API requests.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// ContextKey is a custom type for context keys to prevent collisions.
type ContextKey string

// Context keys for the authenticated identity and request metadata.
const (
	IdentityContextKey  ContextKey = "identity"
	RequestIDContextKey ContextKey = "request_id"
	TraceCodeContextKey ContextKey = "trace_code"
)

// TokenVerifier is what the gate needs from a Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, bearer, expectedPurpose string) (*Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(constants.HeaderAuthorization)
	if !strings.HasPrefix(header, constants.BearerTokenPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, constants.BearerTokenPrefix))
	return token, token != ""
}

// RequireAuth rejects requests without a valid access token. Every kind of
// token failure produces the same 401 body; the precise reason is logged.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				utils.LogAuth(constants.LogEventVerifyToken, constants.AnonymousUserID, false, "missing_bearer")
				utils.WriteError(w, utils.NewUnauthenticatedError("missing_bearer"))
				return
			}

			identity, err := verifier.Verify(r.Context(), token, constants.PurposeAccess)
			if err != nil {
				if utils.IsAuthFailure(err) {
					utils.LogAuth(constants.LogEventVerifyToken, constants.AnonymousUserID, false, utils.Reason(err))
				}
				utils.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity stores an identity in the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// GetIdentity returns the identity placed by RequireAuth.
func GetIdentity(r *http.Request) (*Identity, bool) {
	identity, ok := r.Context().Value(IdentityContextKey).(*Identity)
	return identity, ok && identity != nil
}

// GetUserID returns the authenticated user id.
func GetUserID(r *http.Request) (string, bool) {
	identity, ok := GetIdentity(r)
	if !ok {
		return "", false
	}
	return identity.UserID, true
}

// WithRequestMeta stores the request id and trace code in the context.
func WithRequestMeta(ctx context.Context, requestID, traceCode string) context.Context {
	ctx = context.WithValue(ctx, RequestIDContextKey, requestID)
	return context.WithValue(ctx, TraceCodeContextKey, traceCode)
}

// GetRequestID retrieves the request ID from the request context.
func GetRequestID(r *http.Request) (string, bool) {
	requestID, ok := r.Context().Value(RequestIDContextKey).(string)
	return requestID, ok
}

// GetTraceCode retrieves the trace code from the request context.
func GetTraceCode(r *http.Request) (string, bool) {
	traceCode, ok := r.Context().Value(TraceCodeContextKey).(string)
	return traceCode, ok
}

// IsAuthenticated checks if the request carries a verified identity.
func IsAuthenticated(r *http.Request) bool {
	_, ok := GetIdentity(r)
	return ok
}
