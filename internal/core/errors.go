package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidKind        = errors.New("type must be income or expense")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidMonth       = errors.New("invalid month, expected YYYY-MM")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrMissingTenant      = errors.New("tenant name is required for income")
	ErrTenantNameTooLong  = errors.New("tenant name too long (max 100 characters)")
	ErrInvalidPhone       = errors.New("invalid phone number")

	ErrNotFound        = errors.New("not found")
	ErrPermission      = errors.New("permission denied")
	ErrUnauthenticated = errors.New("not signed in")
)

// ValidationError is a rejected submission, caught before any store call.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AuthError is a sign-in or sign-out failure.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// StoreWriteError is a create or delete the store rejected.
type StoreWriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreWriteError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoreReadError is a failed subscription delivery or one-shot query.
type StoreReadError struct {
	Op  string
	Err error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }
