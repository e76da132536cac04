package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const codeUniqueViolation = "23505"

// IsUniqueViolation reports SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == code
}
