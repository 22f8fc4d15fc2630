package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateToken is returned when a token hash collides or a live token already exists
	ErrDuplicateToken = errors.New("token already exists")

	// ErrDuplicateOAuthIdentity is returned when a provider account is already linked
	ErrDuplicateOAuthIdentity = errors.New("oauth identity already linked")

	// ErrDuplicateAPIKey is returned when an API key hash collides
	ErrDuplicateAPIKey = errors.New("api key already exists")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
