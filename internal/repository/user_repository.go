package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/database"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// UserRepository defines methods for interacting with user data.
// Emails are stored normalized, so lookups compare them exactly.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// SQLUserRepository is the database/sql implementation of UserRepository
type SQLUserRepository struct {
	db *database.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *database.Pool) UserRepository {
	return &SQLUserRepository{
		db: db,
	}
}

const userColumns = `user_id, email, name, password_hash, role, verified, created_at, updated_at`

// Create adds a new user to the database
func (r *SQLUserRepository) Create(ctx context.Context, user *models.User) error {
	startTime := time.Now()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = constants.RoleUser
	}

	query := r.db.Rebind(`
        INSERT INTO users (` + userColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `)

	args := []interface{}{
		user.ID, user.Email, user.Name, user.PasswordHash,
		user.Role, user.Verified, user.CreatedAt, user.UpdatedAt,
	}
	_, err := r.db.ExecContext(ctx, query, args...)

	logQuery(query, args, startTime, err)

	if err != nil {
		return utils.ParseDBError("create user", "User", err)
	}

	log.Info().
		Str("user_id", user.ID).
		Str("email", user.Email).
		Msg("User created")

	return nil
}

// FindByID retrieves a user by ID
func (r *SQLUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "find user by id", constants.ColumnUserID, id)
}

// FindByEmail retrieves a user by normalized email
func (r *SQLUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "find user by email", constants.ColumnEmail, email)
}

func (r *SQLUserRepository) findOne(ctx context.Context, operation, column, value string) (*models.User, error) {
	startTime := time.Now()

	query := r.db.Rebind(`
        SELECT ` + userColumns + `
        FROM users
        WHERE ` + column + ` = ?
    `)

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.Verified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	logQuery(query, []interface{}{value}, startTime, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("User", value)
		}
		return nil, utils.ParseDBError(operation, "User", err)
	}

	return user, nil
}

// Update stores the mutable profile fields of a user
func (r *SQLUserRepository) Update(ctx context.Context, user *models.User) error {
	startTime := time.Now()
	user.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`
        UPDATE users
        SET email = ?, name = ?, role = ?, verified = ?, updated_at = ?
        WHERE user_id = ?
    `)

	args := []interface{}{user.Email, user.Name, user.Role, user.Verified, user.UpdatedAt, user.ID}
	return r.execOne(ctx, "update user", query, args, user.ID, startTime)
}

// UpdatePassword replaces the password digest of a user
func (r *SQLUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	startTime := time.Now()

	query := r.db.Rebind(`
        UPDATE users
        SET password_hash = ?, updated_at = ?
        WHERE user_id = ?
    `)

	args := []interface{}{passwordHash, time.Now().UTC(), id}
	if err := r.execOne(ctx, "update password", query, args, id, startTime); err != nil {
		return err
	}

	log.Info().Str("user_id", id).Msg("User password updated")
	return nil
}

// MarkEmailVerified sets the verified flag of a user
func (r *SQLUserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	startTime := time.Now()

	query := r.db.Rebind(`
        UPDATE users
        SET verified = TRUE, updated_at = ?
        WHERE user_id = ?
    `)

	return r.execOne(ctx, "mark email verified", query, []interface{}{time.Now().UTC(), id}, id, startTime)
}

// Delete removes a user. Token records go with it through the foreign key.
func (r *SQLUserRepository) Delete(ctx context.Context, id string) error {
	startTime := time.Now()

	query := r.db.Rebind(`DELETE FROM users WHERE user_id = ?`)
	if err := r.execOne(ctx, "delete user", query, []interface{}{id}, id, startTime); err != nil {
		return err
	}

	log.Info().Str("user_id", id).Msg("User deleted")
	return nil
}

// execOne runs a statement that must touch exactly one user row.
func (r *SQLUserRepository) execOne(ctx context.Context, operation, query string, args []interface{}, id string, startTime time.Time) error {
	result, err := r.db.ExecContext(ctx, query, args...)

	logQuery(query, args, startTime, err)

	if err != nil {
		return utils.ParseDBError(operation, "User", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return utils.NewStoreUnavailableError(operation, err)
	}
	if rowsAffected == 0 {
		return utils.NewNotFoundError("User", id)
	}

	return nil
}
