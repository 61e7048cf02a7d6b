// Package repository provides the SQL implementations of the user, token
// record and request log stores.
//
// Every query is written with '?' placeholders and passed through
// database.Pool.Rebind, so the same repository serves PostgreSQL, MySQL and
// SQLite.
package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// logQuery records a query; a missing row is an expected outcome, not an error.
func logQuery(query string, args []interface{}, startTime time.Time, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	utils.LogDBQuery(query, args, time.Since(startTime), err)
}
