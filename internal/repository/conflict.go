package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes surfaced as conflicts.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ConflictKind distinguishes the storage constraint behind a conflict.
type ConflictKind string

const (
	ConflictUnique     ConflictKind = "unique"
	ConflictForeignKey ConflictKind = "foreign_key"
)

// ConflictError is returned when a storage-level constraint rejects a
// mutation that already passed application validation. Uniqueness races
// between two concurrent writers end up here: the pre-checks in the service
// layer are advisory, the database constraint is the source of truth.
type ConflictError struct {
	Kind       ConflictKind
	Constraint string
	Message    string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// translateConflict converts a pgconn constraint-violation error into a
// *ConflictError with a human-readable cause. Other errors pass through
// wrapped by the caller.
func translateConflict(err error) (*ConflictError, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil, false
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return &ConflictError{
			Kind:       ConflictUnique,
			Constraint: pgErr.ConstraintName,
			Message:    fmt.Sprintf("duplicate value violates unique constraint %q", pgErr.ConstraintName),
		}, true
	case pgForeignKeyViolation:
		return &ConflictError{
			Kind:       ConflictForeignKey,
			Constraint: pgErr.ConstraintName,
			Message:    fmt.Sprintf("operation violates referential constraint %q", pgErr.ConstraintName),
		}, true
	}

	return nil, false
}
