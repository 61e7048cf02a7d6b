package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
)

// RequestLog is the persisted record of one served HTTP request.
type RequestLog struct {
	ID             string    `json:"id" db:"log_id"`
	TraceCode      string    `json:"traceCode" db:"trace_code"`
	RequestID      string    `json:"requestId" db:"request_id"`
	IP             string    `json:"ip" db:"ip"`
	UserID         string    `json:"userId" db:"user_id"`
	Method         string    `json:"method" db:"method"`
	Endpoint       string    `json:"endpoint" db:"endpoint"`
	Status         int       `json:"status" db:"status"`
	ResponseTimeMs int64     `json:"responseTimeMs" db:"response_time_ms"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// NewRequestLog creates a log entry stamped with a fresh id and the current time.
func NewRequestLog(traceCode, requestID, ip, userID, method, endpoint string, status int, elapsed time.Duration) *RequestLog {
	return &RequestLog{
		ID:             uuid.NewString(),
		TraceCode:      traceCode,
		RequestID:      requestID,
		IP:             ip,
		UserID:         userID,
		Method:         method,
		Endpoint:       endpoint,
		Status:         status,
		ResponseTimeMs: elapsed.Milliseconds(),
		CreatedAt:      time.Now().UTC(),
	}
}

// TableName returns the database table name for the RequestLog model.
func (l *RequestLog) TableName() string {
	return constants.TableRequestLogs
}
