package apperr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsDuplicateKey reports whether err is a unique-constraint violation from
// either store.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Translate normalises any error into an *Error. Domain errors pass through,
// duplicate keys become Conflict and everything else becomes Internal with
// the generic message; the original error stays reachable through Unwrap.
func Translate(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if IsDuplicateKey(err) {
		return &Error{Kind: KindConflict, Message: "a record with the same unique value already exists", Err: err}
	}
	return Internal(err)
}
