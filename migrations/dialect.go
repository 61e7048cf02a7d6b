package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
)

// Dialect names the SQL flavour the DDL is rendered for.
type Dialect string

// Timestamp returns the column type used for instants.
func (d Dialect) Timestamp() string {
	switch d {
	case constants.DriverMySQL:
		return "DATETIME(6)"
	case constants.DriverPostgres:
		return "TIMESTAMPTZ"
	default:
		return "TIMESTAMP"
	}
}

// TableExistsQuery returns a query yielding a row count for one bind
// parameter, the table name.
func (d Dialect) TableExistsQuery() string {
	switch d {
	case constants.DriverMySQL:
		return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	case constants.DriverSQLite:
		return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	default:
		return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	}
}

type index struct {
	name    string
	columns string
}

// createTable renders the CREATE TABLE statement and its secondary indexes.
// MySQL has no CREATE INDEX IF NOT EXISTS, so its indexes are declared inline.
func createTable(ctx context.Context, tx *sql.Tx, d Dialect, table string, columns []string, indexes []index) error {
	defs := append([]string{}, columns...)
	if d == constants.DriverMySQL {
		for _, idx := range indexes {
			defs = append(defs, fmt.Sprintf("INDEX %s (%s)", idx.name, idx.columns))
		}
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(defs, ",\n\t"))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return err
	}

	if d == constants.DriverMySQL {
		return nil
	}

	for _, idx := range indexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idx.name, table, idx.columns)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
