package repository

import (
	"database/sql"

	"github.com/lib/pq"
	ierr "github.com/warebill/warebill/internal/errors"
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return ierr.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isNoRows(err error) bool {
	return ierr.Is(err, sql.ErrNoRows)
}
