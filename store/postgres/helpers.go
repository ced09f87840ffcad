package postgres

import (
	"database/sql"
	"errors"
)

// isNoRows returns true when err indicates a query matched no rows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
