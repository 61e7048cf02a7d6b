package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
)

// AppConfig represents the entire application configuration
type AppConfig struct {
	App          AppSettings         `yaml:"app"`
	Database     DatabaseSettings    `yaml:"database"`
	Redis        RedisSettings       `yaml:"redis"`
	Server       ServerSettings      `yaml:"server"`
	Tokens       TokenSettings       `yaml:"tokens"`
	Logging      LoggingSettings     `yaml:"logging"`
	CORS         CORSSettings        `yaml:"cors"`
	PasswordHash HashSettings        `yaml:"password_hash"`
	RateLimit    RateLimitSettings   `yaml:"rate_limit"`
	Notify       NotifySettings      `yaml:"notify"`
	Maintenance  MaintenanceSettings `yaml:"maintenance"`
	Bootstrap    BootstrapSettings   `yaml:"bootstrap"`
}

// AppSettings contains general application settings
type AppSettings struct {
	Environment string `yaml:"environment" env:"APP_ENV"`
	Name        string `yaml:"name" env:"APP_NAME"`
	Version     string `yaml:"version" env:"APP_VERSION"`
}

// DatabaseSettings contains database connection settings.
// Driver is one of postgres, mysql or sqlite; Path is only used by sqlite.
type DatabaseSettings struct {
	Driver   string `yaml:"driver" env:"DB_DRIVER"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Name     string `yaml:"name" env:"DB_NAME"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	Path     string `yaml:"path" env:"DB_PATH"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"DB_MIN_CONNS"`
}

// RedisSettings contains the optional Redis connection used by the
// distributed rate limiter and the redis notifier.
type RedisSettings struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`

	// TrustedProxies lists the peers, as IPs or CIDRs, whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty means no peer is trusted.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`
}

// TokenSettings contains the signing key and the lifetime of each token purpose
type TokenSettings struct {
	Secret           string        `yaml:"secret" env:"TOKEN_SECRET"`
	Issuer           string        `yaml:"issuer" env:"TOKEN_ISSUER"`
	AccessTTL        time.Duration `yaml:"access_ttl" env:"TOKEN_ACCESS_TTL"`
	RefreshTTL       time.Duration `yaml:"refresh_ttl" env:"TOKEN_REFRESH_TTL"`
	ResetPasswordTTL time.Duration `yaml:"reset_password_ttl" env:"TOKEN_RESET_PASSWORD_TTL"`
	VerifyEmailTTL   time.Duration `yaml:"verify_email_ttl" env:"TOKEN_VERIFY_EMAIL_TTL"`
}

// LoggingSettings contains logging configuration
type LoggingSettings struct {
	Level           string `yaml:"level" env:"LOG_LEVEL"`
	Format          string `yaml:"format" env:"LOG_FORMAT"`
	PersistRequests bool   `yaml:"persist_requests" env:"LOG_PERSIST_REQUESTS"`
}

// CORSSettings contains CORS configuration
type CORSSettings struct {
	AllowedOrigins   []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	AllowCredentials bool     `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS"`
}

// HashSettings contains password hashing settings
type HashSettings struct {
	Memory      uint32 `yaml:"memory" env:"HASH_MEMORY"`
	Iterations  uint32 `yaml:"iterations" env:"HASH_ITERATIONS"`
	Parallelism uint8  `yaml:"parallelism" env:"HASH_PARALLELISM"`
	SaltLength  uint32 `yaml:"salt_length" env:"HASH_SALT_LENGTH"`
	KeyLength   uint32 `yaml:"key_length" env:"HASH_KEY_LENGTH"`
}

// RateLimitSettings controls the failed-request limiter on the auth routes
type RateLimitSettings struct {
	Enabled     bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	Backend     string        `yaml:"backend" env:"RATE_LIMIT_BACKEND"`
	Window      time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW"`
	MaxFailures int           `yaml:"max_failures" env:"RATE_LIMIT_MAX_FAILURES"`
	CacheSize   int           `yaml:"cache_size" env:"RATE_LIMIT_CACHE_SIZE"`
}

// NotifySettings selects where reset and verification tokens are handed off
type NotifySettings struct {
	Backend        string `yaml:"backend" env:"NOTIFY_BACKEND"`
	Channel        string `yaml:"channel" env:"NOTIFY_CHANNEL"`
	SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	SendGridHost   string `yaml:"sendgrid_host" env:"SENDGRID_HOST"`
	FromEmail      string `yaml:"from_email" env:"NOTIFY_FROM_EMAIL"`
	FromName       string `yaml:"from_name" env:"NOTIFY_FROM_NAME"`
	ResetURL       string `yaml:"reset_url" env:"NOTIFY_RESET_URL"`
	VerifyURL      string `yaml:"verify_url" env:"NOTIFY_VERIFY_URL"`
}

// MaintenanceSettings controls the housekeeping schedule
type MaintenanceSettings struct {
	Schedule            string        `yaml:"schedule" env:"MAINTENANCE_SCHEDULE"`
	TokenRetention      time.Duration `yaml:"token_retention" env:"MAINTENANCE_TOKEN_RETENTION"`
	RequestLogRetention time.Duration `yaml:"request_log_retention" env:"MAINTENANCE_REQUEST_LOG_RETENTION"`
}

// BootstrapSettings names the administrator created on first start.
// Nothing is seeded while the email or password is empty.
type BootstrapSettings struct {
	AdminEmail    string `yaml:"admin_email" env:"ADMIN_EMAIL"`
	AdminPassword string `yaml:"admin_password" env:"ADMIN_PASSWORD"`
	AdminName     string `yaml:"admin_name" env:"ADMIN_NAME"`
}

// ConnectionString returns the DSN for the configured driver
func (dbs *DatabaseSettings) ConnectionString() string {
	switch dbs.Driver {
	case constants.DriverMySQL:
		password := dbs.Password
		if password != "" {
			password = ":" + password
		}
		return fmt.Sprintf(
			"%s%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
			dbs.User, password, dbs.Host, dbs.Port, dbs.Name,
		)
	case constants.DriverSQLite:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dbs.Path)
	default:
		sslMode := dbs.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			dbs.Host, dbs.Port, dbs.User, dbs.Password, dbs.Name, sslMode,
		)
	}
}

// ServerAddress returns the complete server address
func (ss *ServerSettings) ServerAddress() string {
	return fmt.Sprintf("%s:%d", ss.Host, ss.Port)
}

// TTL returns the configured lifetime for a token purpose.
func (ts *TokenSettings) TTL(purpose string) (time.Duration, bool) {
	switch purpose {
	case constants.PurposeAccess:
		return ts.AccessTTL, true
	case constants.PurposeRefresh:
		return ts.RefreshTTL, true
	case constants.PurposeResetPassword:
		return ts.ResetPasswordTTL, true
	case constants.PurposeVerifyEmail:
		return ts.VerifyEmailTTL, true
	}
	return 0, false
}

// IsDevelopment checks if the application is running in development mode
func (as *AppSettings) IsDevelopment() bool {
	return strings.ToLower(as.Environment) == constants.EnvDevelopment
}

// IsProduction checks if the application is running in production mode
func (as *AppSettings) IsProduction() bool {
	return strings.ToLower(as.Environment) == constants.EnvProduction
}

// ParseTrustedProxy parses a proxy entry. A bare IP covers that single
// address.
func ParseTrustedProxy(proxy string) (*net.IPNet, error) {
	proxy = strings.TrimSpace(proxy)
	if strings.Contains(proxy, "/") {
		_, network, err := net.ParseCIDR(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", proxy, err)
		}
		return network, nil
	}

	ip := net.ParseIP(proxy)
	if ip == nil {
		return nil, fmt.Errorf("invalid trusted proxy %q", proxy)
	}
	bits := 8 * net.IPv6len
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 8*net.IPv4len
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// IsTesting checks if the application is running in testing mode
func (as *AppSettings) IsTesting() bool {
	return strings.ToLower(as.Environment) == constants.EnvTesting
}

// Load loads the configuration from a config file and environment variables
func Load(configPath string) (*AppConfig, error) {
	config := &AppConfig{}

	// A missing file is fine, everything can come from the environment.
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := LoadEnv(config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	setDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logConfig(config)

	return config, nil
}

// setDefaults sets default values for any missing configuration
func setDefaults(config *AppConfig) {
	if config.App.Environment == "" {
		config.App.Environment = constants.EnvDevelopment
	}
	if config.App.Name == "" {
		config.App.Name = constants.DefaultAppName
	}
	if config.App.Version == "" {
		config.App.Version = constants.DefaultAppVersion
	}

	if config.Server.Port == 0 {
		config.Server.Port = constants.DefaultServerPort
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = constants.DefaultReadTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = constants.DefaultWriteTimeout
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = constants.DefaultShutdownTimeout
	}

	if config.Database.Driver == "" {
		config.Database.Driver = constants.DefaultDBDriver
	}
	if config.Database.Driver == constants.DriverSQLite && config.Database.Path == "" {
		config.Database.Path = constants.DefaultSQLitePath
	}
	if config.Database.MaxConns == 0 {
		config.Database.MaxConns = constants.DefaultDBMaxConnections
	}
	if config.Database.MinConns == 0 {
		config.Database.MinConns = constants.DefaultDBMinConnections
	}

	if config.Tokens.Issuer == "" {
		config.Tokens.Issuer = constants.DefaultTokenIssuer
	}
	if config.Tokens.AccessTTL == 0 {
		config.Tokens.AccessTTL = constants.DefaultAccessTokenTTL
	}
	if config.Tokens.RefreshTTL == 0 {
		config.Tokens.RefreshTTL = constants.DefaultRefreshTokenTTL
	}
	if config.Tokens.ResetPasswordTTL == 0 {
		config.Tokens.ResetPasswordTTL = constants.DefaultResetPasswordTokenTTL
	}
	if config.Tokens.VerifyEmailTTL == 0 {
		config.Tokens.VerifyEmailTTL = constants.DefaultVerifyEmailTokenTTL
	}

	if config.Logging.Level == "" {
		config.Logging.Level = constants.DefaultLogLevel
	}
	if config.Logging.Format == "" {
		config.Logging.Format = constants.DefaultLogFormat
	}

	if len(config.CORS.AllowedOrigins) == 0 {
		config.CORS.AllowedOrigins = []string{"*"}
	}

	if config.PasswordHash.Memory == 0 {
		if config.App.IsProduction() {
			config.PasswordHash.Memory = constants.DefaultPasswordHashMemory
		} else {
			config.PasswordHash.Memory = constants.DevPasswordHashMemory
		}
	}
	if config.PasswordHash.Iterations == 0 {
		if config.App.IsProduction() {
			config.PasswordHash.Iterations = constants.DefaultPasswordHashIterations
		} else {
			config.PasswordHash.Iterations = constants.DevPasswordHashIterations
		}
	}
	if config.PasswordHash.Parallelism == 0 {
		config.PasswordHash.Parallelism = constants.DefaultPasswordHashParallelism
	}
	if config.PasswordHash.SaltLength == 0 {
		config.PasswordHash.SaltLength = constants.DefaultPasswordHashSaltLength
	}
	if config.PasswordHash.KeyLength == 0 {
		config.PasswordHash.KeyLength = constants.DefaultPasswordHashKeyLength
	}

	if config.RateLimit.Backend == "" {
		config.RateLimit.Backend = constants.RateLimitBackendMemory
	}
	if config.RateLimit.Window == 0 {
		config.RateLimit.Window = constants.DefaultRateLimitWindow
	}
	if config.RateLimit.MaxFailures == 0 {
		config.RateLimit.MaxFailures = constants.DefaultRateLimitMaxFailures
	}
	if config.RateLimit.CacheSize == 0 {
		config.RateLimit.CacheSize = constants.DefaultRateLimitCacheSize
	}

	if config.Notify.Backend == "" {
		config.Notify.Backend = constants.NotifyBackendLog
	}
	if config.Notify.Channel == "" {
		config.Notify.Channel = constants.DefaultNotifyChannel
	}
	if config.Notify.SendGridHost == "" {
		config.Notify.SendGridHost = constants.DefaultSendGridHost
	}
	if config.Notify.FromName == "" {
		config.Notify.FromName = config.App.Name
	}

	if config.Maintenance.Schedule == "" {
		config.Maintenance.Schedule = constants.DefaultReaperSchedule
	}
	if config.Maintenance.TokenRetention == 0 {
		config.Maintenance.TokenRetention = constants.DefaultTokenRetention
	}
	if config.Maintenance.RequestLogRetention == 0 {
		config.Maintenance.RequestLogRetention = constants.DefaultRequestLogRetention
	}
}

// validateConfig validates that the configuration has all required values
func validateConfig(config *AppConfig) error {
	env := strings.ToLower(config.App.Environment)
	if env != constants.EnvDevelopment && env != constants.EnvTesting && env != constants.EnvProduction {
		log.Warn().Str("environment", config.App.Environment).Msg("Invalid environment, defaulting to development")
		config.App.Environment = constants.EnvDevelopment
	}

	if config.Tokens.Secret == "" {
		return fmt.Errorf("token secret must be set")
	}
	if config.App.IsProduction() && (len(config.Tokens.Secret) < 32 || config.Tokens.Secret == "changeme") {
		return fmt.Errorf("token secret must be at least 32 characters in production")
	}

	switch config.Database.Driver {
	case constants.DriverPostgres, constants.DriverMySQL:
		if config.Database.User == "" {
			return fmt.Errorf("database user must be set")
		}
	case constants.DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver: %s", config.Database.Driver)
	}

	switch config.RateLimit.Backend {
	case constants.RateLimitBackendMemory:
	case constants.RateLimitBackendRedis:
		if config.RateLimit.Enabled && config.Redis.URL == "" {
			return fmt.Errorf("redis url must be set for the redis rate limit backend")
		}
	default:
		return fmt.Errorf("unsupported rate limit backend: %s", config.RateLimit.Backend)
	}

	switch config.Notify.Backend {
	case constants.NotifyBackendLog:
	case constants.NotifyBackendRedis:
		if config.Redis.URL == "" {
			return fmt.Errorf("redis url must be set for the redis notify backend")
		}
	case constants.NotifyBackendSendGrid:
		if config.Notify.SendGridAPIKey == "" || config.Notify.FromEmail == "" {
			return fmt.Errorf("sendgrid api key and from email must be set for the sendgrid notify backend")
		}
	default:
		return fmt.Errorf("unsupported notify backend: %s", config.Notify.Backend)
	}

	for _, proxy := range config.Server.TrustedProxies {
		if _, err := ParseTrustedProxy(proxy); err != nil {
			return err
		}
	}

	if config.CORS.AllowCredentials {
		for _, origin := range config.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("cors credentials cannot be allowed for the wildcard origin")
			}
		}
	}

	logLevel := strings.ToLower(config.Logging.Level)
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLevels {
		if logLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// logConfig logs the current configuration, masking sensitive values
func logConfig(config *AppConfig) {
	log.Info().
		Str("environment", config.App.Environment).
		Str("version", config.App.Version).
		Str("server", config.Server.ServerAddress()).
		Str("db_driver", config.Database.Driver).
		Str("db_host", config.Database.Host).
		Int("db_port", config.Database.Port).
		Str("db_name", config.Database.Name).
		Str("token_secret", constants.LogRedactedValue).
		Dur("access_ttl", config.Tokens.AccessTTL).
		Dur("refresh_ttl", config.Tokens.RefreshTTL).
		Bool("rate_limit", config.RateLimit.Enabled).
		Str("notify_backend", config.Notify.Backend).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")
}
