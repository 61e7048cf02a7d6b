// Package constants provides shared constant values used throughout the application.
//
// The database_const.go file defines table and column names so that SQL in the
// repositories and migrations stays consistent with the schema.
package constants

// Table names.
const (
	// TableUsers stores user accounts.
	TableUsers = "users"

	// TableTokens stores one record per issued bearer token.
	TableTokens = "tokens"

	// TableRequestLogs stores one row per served HTTP request.
	TableRequestLogs = "request_logs"

	// TableMigrations is the ledger of executed schema migrations.
	TableMigrations = "schema_migrations"
)

// Column names shared by several queries.
const (
	ColumnUserID       = "user_id"
	ColumnTokenID      = "token_id"
	ColumnTokenHash    = "token_hash"
	ColumnPurpose      = "purpose"
	ColumnBlacklisted  = "blacklisted"
	ColumnExpiresAt    = "expires_at"
	ColumnEmail        = "email"
	ColumnPasswordHash = "password_hash"
	ColumnCreatedAt    = "created_at"
)

// Database drivers accepted in configuration.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Driver error codes mapped onto application errors.
const (
	// PGErrorUniqueViolation is the PostgreSQL unique_violation SQLSTATE.
	PGErrorUniqueViolation = "23505"

	// PGErrorForeignKeyViolation is the PostgreSQL foreign_key_violation SQLSTATE.
	PGErrorForeignKeyViolation = "23503"

	// MySQLErrorDuplicateEntry is ER_DUP_ENTRY.
	MySQLErrorDuplicateEntry uint16 = 1062
)
