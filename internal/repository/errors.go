package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique field (email, username, ticket key) is taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrRevisionConflict is returned when a ticket changed since it was read.
	ErrRevisionConflict = errors.New("revision conflict")
)

const uniqueViolation = "23505"

func translatePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
