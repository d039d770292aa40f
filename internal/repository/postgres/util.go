package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrConstraint = errors.New("constraint violation")

// pgCode returns the SQLSTATE of a postgres error, or "".
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
