package migrations

import (
	"context"
	"database/sql"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
)

// createUsersTable creates the users table. The unique constraint name
// carries "email" so duplicate registrations map to a duplicate-email error.
func createUsersTable() Migration {
	return Migration{
		Name:        "create_users_table",
		Description: "Creates the users table",
		TableName:   constants.TableUsers,
		RunSQL: func(ctx context.Context, tx *sql.Tx, d Dialect) error {
			return createTable(ctx, tx, d, constants.TableUsers, []string{
				"user_id VARCHAR(36) PRIMARY KEY",
				"email VARCHAR(255) NOT NULL",
				"name VARCHAR(100) NOT NULL",
				"password_hash VARCHAR(255) NOT NULL",
				"role VARCHAR(20) NOT NULL DEFAULT 'user'",
				"verified BOOLEAN NOT NULL DEFAULT FALSE",
				"created_at " + d.Timestamp() + " NOT NULL",
				"updated_at " + d.Timestamp() + " NOT NULL",
				"CONSTRAINT uq_users_email UNIQUE (email)",
			}, nil)
		},
	}
}

// createTokensTable creates the tokens table holding hashed token secrets.
func createTokensTable() Migration {
	return Migration{
		Name:        "create_tokens_table",
		Description: "Creates the tokens table",
		TableName:   constants.TableTokens,
		RunSQL: func(ctx context.Context, tx *sql.Tx, d Dialect) error {
			return createTable(ctx, tx, d, constants.TableTokens, []string{
				"token_id VARCHAR(36) PRIMARY KEY",
				"token_hash CHAR(64) NOT NULL",
				"user_id VARCHAR(36) NOT NULL",
				"purpose VARCHAR(20) NOT NULL",
				"expires_at " + d.Timestamp() + " NOT NULL",
				"blacklisted BOOLEAN NOT NULL DEFAULT FALSE",
				"created_at " + d.Timestamp() + " NOT NULL",
				"CONSTRAINT uq_tokens_token_hash UNIQUE (token_hash)",
				"CONSTRAINT fk_tokens_user FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE",
			}, []index{
				{name: "idx_tokens_user_id", columns: "user_id"},
				{name: "idx_tokens_expires_at", columns: "expires_at"},
			})
		},
	}
}

// createRequestLogsTable creates the request_logs table.
func createRequestLogsTable() Migration {
	return Migration{
		Name:        "create_request_logs_table",
		Description: "Creates the request_logs table",
		TableName:   constants.TableRequestLogs,
		RunSQL: func(ctx context.Context, tx *sql.Tx, d Dialect) error {
			return createTable(ctx, tx, d, constants.TableRequestLogs, []string{
				"log_id VARCHAR(36) PRIMARY KEY",
				"trace_code VARCHAR(255) NOT NULL",
				"request_id VARCHAR(255) NOT NULL",
				"ip VARCHAR(64) NOT NULL",
				"user_id VARCHAR(36) NOT NULL",
				"method VARCHAR(10) NOT NULL",
				"endpoint VARCHAR(255) NOT NULL",
				"status INTEGER NOT NULL",
				"response_time_ms BIGINT NOT NULL",
				"created_at " + d.Timestamp() + " NOT NULL",
			}, []index{
				{name: "idx_request_logs_created_at", columns: "created_at"},
				{name: "idx_request_logs_trace_code", columns: "trace_code"},
			})
		},
	}
}
