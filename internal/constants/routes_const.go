package constants

// Infrastructure routes.
const (
	HealthPath  = "/health"
	VersionPath = "/version"
	PollPath    = "/poll"
	MetricsPath = "/metrics"
)

// API routes.
const (
	APIBasePath = "/api/v1"

	AuthBasePath                  = "/api/v1/auth"
	AuthRegisterPath              = "/api/v1/auth/register"
	AuthLoginPath                 = "/api/v1/auth/login"
	AuthLogoutPath                = "/api/v1/auth/logout"
	AuthRefreshTokensPath         = "/api/v1/auth/refresh-tokens"
	AuthForgotPasswordPath        = "/api/v1/auth/forgot-password"
	AuthResetPasswordPath         = "/api/v1/auth/reset-password"
	AuthSendVerificationEmailPath = "/api/v1/auth/send-verification-email"
	AuthVerifyEmailPath           = "/api/v1/auth/verify-email"

	UsersBasePath   = "/api/v1/users"
	UserProfilePath = "/api/v1/users/me"
	UserDetailPath  = "/api/v1/users/{id}"
)

// URL parameters.
const (
	ParamID = "id"
)
