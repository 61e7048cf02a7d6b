// Package scripts seeds initial data.
//
// Seeds work like migrations: each one runs inside a transaction and is
// recorded in the seeds table, so SeedDatabase is safe to call on every
// startup. A seed whose input is not configured is skipped without being
// recorded and runs on a later start once it is.
package scripts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/config"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/database"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// errSkipSeed marks a seed that had nothing to do.
var errSkipSeed = errors.New("seed skipped")

// Seed is a named unit of initial data.
type Seed struct {
	Name string
	Run  func(ctx context.Context, tx *sql.Tx) error
}

// Seeder handles database seeding.
type Seeder struct {
	db     *database.Pool
	hasher *auth.PasswordHasher
	cfg    config.BootstrapSettings
}

// NewSeeder creates a new seeder.
func NewSeeder(db *database.Pool, hasher *auth.PasswordHasher, cfg config.BootstrapSettings) *Seeder {
	return &Seeder{db: db, hasher: hasher, cfg: cfg}
}

// Seeds returns the seeds in execution order.
func (s *Seeder) Seeds() []Seed {
	return []Seed{
		{Name: "bootstrap_admin", Run: s.seedAdmin},
	}
}

// SeedDatabase runs every seed that has not been recorded yet.
func (s *Seeder) SeedDatabase(ctx context.Context) error {
	startTime := time.Now()

	if err := s.createSeedsTable(ctx); err != nil {
		return fmt.Errorf("failed to create seeds table: %w", err)
	}

	executed, err := s.getExecutedSeeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to get executed seeds: %w", err)
	}

	for _, seed := range s.Seeds() {
		if executed[seed.Name] {
			log.Debug().Str("seed", seed.Name).Msg("Seed already executed")
			continue
		}
		if err := s.runSeed(ctx, seed); err != nil {
			return err
		}
	}

	log.Debug().Dur("duration", time.Since(startTime)).Msg("Database seeding completed")
	return nil
}

func (s *Seeder) createSeedsTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS seeds (
			name VARCHAR(255) PRIMARY KEY,
			executed_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (s *Seeder) getExecutedSeeds(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM seeds`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close rows")
		}
	}()

	seeds := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		seeds[name] = true
	}
	return seeds, rows.Err()
}

// runSeed runs a seed and records it in the same transaction.
func (s *Seeder) runSeed(ctx context.Context, seed Seed) error {
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := seed.Run(ctx, tx); err != nil {
			return err
		}

		query := s.db.Rebind(`INSERT INTO seeds (name, executed_at) VALUES (?, ?)`)
		if _, err := tx.ExecContext(ctx, query, seed.Name, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record seed: %w", err)
		}
		return nil
	})

	switch {
	case errors.Is(err, errSkipSeed):
		log.Debug().Str("seed", seed.Name).Msg("Seed skipped")
		return nil
	case err != nil:
		return fmt.Errorf("seed %s failed: %w", seed.Name, err)
	}

	log.Info().Str("seed", seed.Name).Msg("Seed executed")
	return nil
}

// seedAdmin creates the configured administrator unless the email is
// already registered, in which case that account is promoted.
func (s *Seeder) seedAdmin(ctx context.Context, tx *sql.Tx) error {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPassword == "" {
		return errSkipSeed
	}

	email := utils.NormalizeEmail(s.cfg.AdminEmail)

	var existing int
	countQuery := s.db.Rebind(`SELECT COUNT(*) FROM users WHERE email = ?`)
	if err := tx.QueryRowContext(ctx, countQuery, email).Scan(&existing); err != nil {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	if existing > 0 {
		query := s.db.Rebind(`UPDATE users SET role = ?, updated_at = ? WHERE email = ?`)
		if _, err := tx.ExecContext(ctx, query, constants.RoleAdmin, time.Now().UTC(), email); err != nil {
			return fmt.Errorf("failed to promote admin: %w", err)
		}
		log.Info().Str("email", email).Msg("Existing account promoted to admin")
		return nil
	}

	name := s.cfg.AdminName
	if name == "" {
		name = constants.DefaultAdminName
	}

	hash, err := s.hasher.Hash(s.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := models.NewUser(email, name)
	admin.Role = constants.RoleAdmin
	admin.PasswordHash = hash
	admin.Verified = true

	query := s.db.Rebind(`
		INSERT INTO users (user_id, email, name, password_hash, role, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := tx.ExecContext(ctx, query,
		admin.ID, admin.Email, admin.Name, admin.PasswordHash,
		admin.Role, admin.Verified, admin.CreatedAt, admin.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	log.Info().Str("user_id", admin.ID).Str("email", email).Msg("Admin account created")
	return nil
}
