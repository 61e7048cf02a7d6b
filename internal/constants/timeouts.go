package constants

import "time"

// HTTP server timeouts.
const (
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
)

// Database timeouts.
const (
	DBConnectionTimeout  = 30 * time.Second
	DBHealthCheckTimeout = 5 * time.Second
	DBConnMaxLifetime    = 1 * time.Hour
	DBConnMaxIdleTime    = 30 * time.Minute
	MigrationTimeout     = 1 * time.Minute
)

// Token lifetimes per purpose.
const (
	DefaultAccessTokenTTL        = 15 * time.Minute
	DefaultRefreshTokenTTL       = 7 * 24 * time.Hour
	DefaultResetPasswordTokenTTL = 1 * time.Hour
	DefaultVerifyEmailTokenTTL   = 24 * time.Hour
)

// Rate limiting and housekeeping.
const (
	DefaultRateLimitWindow     = 10 * time.Minute
	DefaultTokenRetention      = 24 * time.Hour
	DefaultRequestLogRetention = 30 * 24 * time.Hour
	MaintenanceTaskTimeout     = 2 * time.Minute
	RequestLogWriteTimeout     = 3 * time.Second
	NotificationTimeout        = 30 * time.Second
)
