package repository

import (
	"context"
	"time"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/database"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// RequestLogRepository stores served requests.
type RequestLogRepository interface {
	Create(ctx context.Context, entry *models.RequestLog) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// SQLRequestLogRepository is the database/sql implementation of RequestLogRepository
type SQLRequestLogRepository struct {
	db *database.Pool
}

// NewRequestLogRepository creates a new RequestLogRepository
func NewRequestLogRepository(db *database.Pool) RequestLogRepository {
	return &SQLRequestLogRepository{db: db}
}

// Create inserts a request log entry
func (r *SQLRequestLogRepository) Create(ctx context.Context, entry *models.RequestLog) error {
	startTime := time.Now()

	query := r.db.Rebind(`
        INSERT INTO request_logs (log_id, trace_code, request_id, ip, user_id, method, endpoint, status, response_time_ms, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)

	args := []interface{}{
		entry.ID, entry.TraceCode, entry.RequestID, entry.IP, entry.UserID,
		entry.Method, entry.Endpoint, entry.Status, entry.ResponseTimeMs, entry.CreatedAt.UTC(),
	}
	_, err := r.db.ExecContext(ctx, query, args...)

	logQuery(query, args, startTime, err)

	return utils.ParseDBError("create request log", "RequestLog", err)
}

// DeleteOlderThan removes entries created before the cutoff
func (r *SQLRequestLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	startTime := time.Now()

	query := r.db.Rebind(`DELETE FROM request_logs WHERE created_at < ?`)
	args := []interface{}{before.UTC()}

	result, err := r.db.ExecContext(ctx, query, args...)

	logQuery(query, args, startTime, err)

	if err != nil {
		return 0, utils.ParseDBError("delete request logs", "RequestLog", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, utils.NewStoreUnavailableError("delete request logs", err)
	}

	return rowsAffected, nil
}
