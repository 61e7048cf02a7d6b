package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/config"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/middleware"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// SetupRoutes configures the router.
//
// The auth routes sit behind the failed-request limiter when it is enabled
// and are never cached. Everything under /api/v1/users requires an access
// token; the infrastructure endpoints are public. Recovery runs inside the
// request logger so recovered panics are logged and counted as 500s.
func (s *Server) SetupRoutes() {
	r := chi.NewRouter()

	r.Use(corsMiddleware(s.Config.CORS))
	r.Use(middleware.RealIP(s.trustedProxies))
	r.Use(middleware.RequestContext(s.verifier, nil))

	var requestLogs middleware.RequestLogStore
	if s.Config.Logging.PersistRequests {
		requestLogs = s.repos.requestLogs
	}
	r.Use(middleware.RequestLogger(requestLogs, s.metrics))
	r.Use(middleware.Recovery())
	r.Use(middleware.SecurityHeaders())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.NotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.MethodNotAllowed(w)
	})

	system := s.Handlers.SystemHandler
	r.Get(constants.HealthPath, system.Health)
	r.Get(constants.VersionPath, system.Version)
	r.Get(constants.PollPath, system.Poll)
	r.Method(http.MethodGet, constants.MetricsPath, s.metrics.Handler())

	r.Route(constants.AuthBasePath, func(r chi.Router) {
		r.Use(middleware.NoStore())
		if s.limiter != nil {
			r.Use(middleware.FailureRateLimit(s.limiter, s.Config.RateLimit.MaxFailures, s.metrics))
		}

		h := s.Handlers.AuthHandler
		r.Post(relative(constants.AuthRegisterPath, constants.AuthBasePath), h.Register)
		r.Post(relative(constants.AuthLoginPath, constants.AuthBasePath), h.Login)
		r.Post(relative(constants.AuthLogoutPath, constants.AuthBasePath), h.Logout)
		r.Post(relative(constants.AuthRefreshTokensPath, constants.AuthBasePath), h.RefreshTokens)
		r.Post(relative(constants.AuthForgotPasswordPath, constants.AuthBasePath), h.ForgotPassword)
		r.Post(relative(constants.AuthResetPasswordPath, constants.AuthBasePath), h.ResetPassword)
		r.Post(relative(constants.AuthVerifyEmailPath, constants.AuthBasePath), h.VerifyEmail)

		r.With(auth.RequireAuth(s.verifier)).
			Post(relative(constants.AuthSendVerificationEmailPath, constants.AuthBasePath), h.SendVerificationEmail)
	})

	r.Route(constants.UsersBasePath, func(r chi.Router) {
		r.Use(middleware.NoStore())
		r.Use(auth.RequireAuth(s.verifier))

		h := s.Handlers.UserHandler
		r.Post("/", h.CreateUser)
		r.Get(relative(constants.UserProfilePath, constants.UsersBasePath), h.GetCurrentUser)
		r.Get(relative(constants.UserDetailPath, constants.UsersBasePath), h.GetUser)
		r.Patch(relative(constants.UserDetailPath, constants.UsersBasePath), h.UpdateUser)
		r.Delete(relative(constants.UserDetailPath, constants.UsersBasePath), h.DeleteUser)
	})

	s.router = r
}

// relative strips a mount prefix from an absolute route constant.
func relative(path, base string) string {
	return strings.TrimPrefix(path, base)
}

// corsMiddleware answers preflight requests and sets CORS headers for
// allowed origins. Requests from other origins pass through untouched.
func corsMiddleware(cfg config.CORSSettings) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get(constants.HeaderOrigin)
			if origin == "" || !originAllowed(cfg.AllowedOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", constants.HeaderOrigin)
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Expose-Headers", strings.Join([]string{
				constants.HeaderXRequestID,
				constants.HeaderXTraceCode,
				constants.HeaderRetryAfter,
			}, ", "))

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "300")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
