package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/database"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// TokenRepository is the persisted collection of token records.
type TokenRepository interface {
	auth.CredentialStore

	// RevokeAllForUser blacklists every active record of a user.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes records that expired before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SQLTokenRepository is the database/sql implementation of TokenRepository.
// A repository handed out by WithinTx runs its statements on that
// transaction.
type SQLTokenRepository struct {
	db   *database.Pool
	exec database.SQLExecutor
	inTx bool
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *database.Pool) TokenRepository {
	return &SQLTokenRepository{
		db:   db,
		exec: db,
	}
}

// Create persists a new record. Records are validated before any I/O.
func (r *SQLTokenRepository) Create(ctx context.Context, record *models.TokenRecord) error {
	if err := utils.ValidateStruct(record); err != nil {
		return err
	}

	startTime := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
        INSERT INTO tokens (token_id, token_hash, user_id, purpose, expires_at, blacklisted, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)

	args := []interface{}{
		record.ID, record.TokenHash, record.UserID, record.Purpose,
		record.ExpiresAt.UTC(), record.Blacklisted, record.CreatedAt.UTC(),
	}
	_, err := r.exec.ExecContext(ctx, query, args...)

	logQuery(query, args, startTime, err)

	if err != nil {
		return utils.ParseDBError("create token", "Token", err)
	}

	return nil
}

// FindByHash retrieves a record by the digest of its secret
func (r *SQLTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*models.TokenRecord, error) {
	startTime := time.Now()

	query := r.db.Rebind(`
        SELECT token_id, token_hash, user_id, purpose, expires_at, blacklisted, created_at
        FROM tokens
        WHERE token_hash = ?
    `)

	record := &models.TokenRecord{}
	err := r.exec.QueryRowContext(ctx, query, tokenHash).Scan(
		&record.ID,
		&record.TokenHash,
		&record.UserID,
		&record.Purpose,
		&record.ExpiresAt,
		&record.Blacklisted,
		&record.CreatedAt,
	)

	logQuery(query, []interface{}{tokenHash}, startTime, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NewNotFoundError("Token", "")
		}
		return nil, utils.ParseDBError("find token", "Token", err)
	}

	return record, nil
}

// BlacklistIfActive flips blacklisted in a single conditional update. Of any
// number of concurrent callers exactly one observes true.
func (r *SQLTokenRepository) BlacklistIfActive(ctx context.Context, id string) (bool, error) {
	startTime := time.Now()

	query := r.db.Rebind(`
        UPDATE tokens
        SET blacklisted = TRUE
        WHERE token_id = ? AND blacklisted = FALSE
    `)

	result, err := r.exec.ExecContext(ctx, query, id)

	logQuery(query, []interface{}{id}, startTime, err)

	if err != nil {
		return false, utils.ParseDBError("blacklist token", "Token", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, utils.NewStoreUnavailableError("blacklist token", err)
	}

	return rowsAffected == 1, nil
}

// WithinTx runs fn inside a transaction. Nested calls reuse the outer one.
func (r *SQLTokenRepository) WithinTx(ctx context.Context, fn func(tx auth.CredentialStore) error) error {
	if r.inTx {
		return fn(r)
	}

	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(&SQLTokenRepository{db: r.db, exec: tx, inTx: true})
	})
	if err != nil && utils.KindOf(err) == utils.KindInternal {
		return utils.NewStoreUnavailableError("token transaction", err)
	}
	return err
}

// RevokeAllForUser blacklists every active record of a user
func (r *SQLTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	startTime := time.Now()

	query := r.db.Rebind(`
        UPDATE tokens
        SET blacklisted = TRUE
        WHERE user_id = ? AND blacklisted = FALSE
    `)

	result, err := r.exec.ExecContext(ctx, query, userID)

	logQuery(query, []interface{}{userID}, startTime, err)

	if err != nil {
		return 0, utils.ParseDBError("revoke user tokens", "Token", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, utils.NewStoreUnavailableError("revoke user tokens", err)
	}

	log.Info().
		Str("user_id", userID).
		Int64("revoked", rowsAffected).
		Msg("Revoked all tokens for user")

	return rowsAffected, nil
}

// DeleteExpired removes records whose expiry is before the cutoff
func (r *SQLTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	startTime := time.Now()

	query := r.db.Rebind(`DELETE FROM tokens WHERE expires_at < ?`)
	args := []interface{}{before.UTC()}

	result, err := r.exec.ExecContext(ctx, query, args...)

	logQuery(query, args, startTime, err)

	if err != nil {
		return 0, utils.ParseDBError("delete expired tokens", "Token", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, utils.NewStoreUnavailableError("delete expired tokens", err)
	}

	return rowsAffected, nil
}
