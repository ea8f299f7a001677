package pgdb

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	checkViolation      = "23514"
	numericOutOfRange   = "22003"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func postgresDuplicate(err error) bool {
	return pgErrorCode(err) == uniqueViolation
}

func postgresForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == foreignKeyViolation
}

func postgresCheckViolation(err error) bool {
	return pgErrorCode(err) == checkViolation
}

func postgresNumericOutOfRange(err error) bool {
	return pgErrorCode(err) == numericOutOfRange
}
