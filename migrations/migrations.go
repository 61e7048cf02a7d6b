// Package migrations creates and tracks the hyperauth database schema.
//
// Each migration creates one table and is recorded in the schema_migrations
// ledger so it runs exactly once. Tables that exist without a ledger entry
// are recorded as applied, and ledger entries whose table went missing are
// re-run, so RunMigrations is safe to call on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/database"
)

// Migration represents a database migration.
type Migration struct {
	// Name is a unique identifier for the migration
	Name string
	// Description is a human-readable explanation of what the migration does
	Description string
	// TableName is the table created by this migration, used for existence checks
	TableName string
	// RunSQL executes the migration inside a transaction
	RunSQL func(ctx context.Context, tx *sql.Tx, d Dialect) error
}

// Migrator handles database migrations.
type Migrator struct {
	db      *database.Pool
	dialect Dialect
}

// NewMigrator creates a new migrator for the pool's dialect.
func NewMigrator(db *database.Pool) *Migrator {
	return &Migrator{
		db:      db,
		dialect: Dialect(db.Dialect),
	}
}

// RunMigrations runs all pending database migrations.
func (m *Migrator) RunMigrations(ctx context.Context) error {
	log.Info().Str("dialect", string(m.dialect)).Msg("Running database migrations")
	startTime := time.Now()

	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	if err := m.verifyAllTablesExist(ctx); err != nil {
		return fmt.Errorf("failed to verify tables: %w", err)
	}

	executedMigrations, err := m.getExecutedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get executed migrations: %w", err)
	}

	migrations := GetMigrations()
	migrationsRun := 0
	migrationsRecorded := 0

	for _, migration := range migrations {
		if executedMigrations[migration.Name] {
			continue
		}

		exists, err := m.tableExists(ctx, migration.TableName)
		if err != nil {
			return fmt.Errorf("failed to check if table %s exists: %w", migration.TableName, err)
		}

		if exists {
			log.Info().
				Str("migration", migration.Name).
				Str("table", migration.TableName).
				Msg("Table already exists, recording migration as completed")

			if err := m.recordMigration(ctx, m.db, migration); err != nil {
				return err
			}
			migrationsRecorded++
			continue
		}

		log.Info().
			Str("migration", migration.Name).
			Str("table", migration.TableName).
			Msg("Running migration")

		if err := m.runMigration(ctx, migration); err != nil {
			return err
		}
		migrationsRun++
	}

	log.Info().
		Int("migrations_run", migrationsRun).
		Int("migrations_recorded", migrationsRecorded).
		Int("total_migrations", len(migrations)).
		Dur("duration", time.Since(startTime)).
		Msg("Database migrations completed")

	return nil
}

// verifyAllTablesExist re-creates any table whose migration was recorded but
// whose table has since gone missing.
func (m *Migrator) verifyAllTablesExist(ctx context.Context) error {
	executed, err := m.getExecutedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, migration := range GetMigrations() {
		if migration.TableName == "" || !executed[migration.Name] {
			continue
		}

		exists, err := m.tableExists(ctx, migration.TableName)
		if err != nil {
			return fmt.Errorf("failed to check if table %s exists: %w", migration.TableName, err)
		}
		if exists {
			continue
		}

		log.Warn().
			Str("migration", migration.Name).
			Str("table", migration.TableName).
			Msg("Table doesn't exist but should. Re-creating it.")

		if err := m.db.Transaction(ctx, func(tx *sql.Tx) error {
			return migration.RunSQL(ctx, tx, m.dialect)
		}); err != nil {
			return fmt.Errorf("failed to create missing table %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name VARCHAR(255) PRIMARY KEY,
			description TEXT,
			executed_at %s NOT NULL
		)`, constants.TableMigrations, m.dialect.Timestamp())
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// getExecutedMigrations returns the names recorded in the ledger.
func (m *Migrator) getExecutedMigrations(ctx context.Context) (map[string]bool, error) {
	query := fmt.Sprintf(`SELECT name FROM %s`, constants.TableMigrations)
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close rows")
		}
	}()

	migrations := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		migrations[name] = true
	}

	return migrations, rows.Err()
}

// runMigration runs a migration and records it within one transaction.
func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	return m.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := migration.RunSQL(ctx, tx, m.dialect); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
		return m.recordMigration(ctx, tx, migration)
	})
}

func (m *Migrator) recordMigration(ctx context.Context, exec database.SQLExecutor, migration Migration) error {
	query := m.db.Rebind(fmt.Sprintf(
		`INSERT INTO %s (name, description, executed_at) VALUES (?, ?, ?)`, constants.TableMigrations))
	if _, err := exec.ExecContext(ctx, query, migration.Name, migration.Description, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
	}
	return nil
}

// tableExists checks if a table exists in the current database.
func (m *Migrator) tableExists(ctx context.Context, tableName string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, m.db.Rebind(m.dialect.TableExistsQuery()), tableName).Scan(&count)
	return count > 0, err
}

// GetMigrations returns all migrations in the order they must be applied.
func GetMigrations() []Migration {
	return []Migration{
		createUsersTable(),
		createTokensTable(),
		createRequestLogsTable(),
	}
}
