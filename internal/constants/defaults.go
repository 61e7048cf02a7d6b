package constants

// Server and database defaults.
const (
	DefaultServerPort       = 4080
	DefaultDBDriver         = DriverPostgres
	DefaultDBMaxConnections = 20
	DefaultDBMinConnections = 5
	DefaultSQLitePath       = "./data/hyperauth.db"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultAppName          = "hyperauth"
	DefaultAppVersion       = "1.0.0"
)

// Environment types.
const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"
)

// Request limits.
const (
	MaxRequestBodySize = 1048576 // 1MB in bytes
)

// Password hashing defaults (argon2id).
const (
	DefaultPasswordHashMemory      = 64 * 1024
	DefaultPasswordHashIterations  = 3
	DefaultPasswordHashParallelism = 2
	DefaultPasswordHashSaltLength  = 16
	DefaultPasswordHashKeyLength   = 32

	// Cheaper parameters outside production so local runs and tests stay fast.
	DevPasswordHashMemory     = 16 * 1024
	DevPasswordHashIterations = 1
)

// Token defaults.
const (
	DefaultTokenIssuer = "hyperauth"
	BearerTokenPrefix  = "Bearer "

	// TokenSecretBytes is the entropy of the random secret behind every token record.
	TokenSecretBytes = 32
)

// Rate limiting defaults. Only failed requests are counted.
const (
	DefaultRateLimitMaxFailures = 20
	RateLimitBackendMemory      = "memory"
	RateLimitBackendRedis       = "redis"
	DefaultRateLimitCacheSize   = 10000
	RateLimitRedisKeyPrefix     = "ratelimit:"
)

// Notification backends.
const (
	NotifyBackendLog      = "log"
	NotifyBackendRedis    = "redis"
	NotifyBackendSendGrid = "sendgrid"
	DefaultSendGridHost   = "https://api.sendgrid.com"
	DefaultNotifyChannel  = "hyperauth:notifications"
	DefaultReaperSchedule = "@every 1h"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	DefaultAdminName = "Administrator"
)
