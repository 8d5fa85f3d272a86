// Package service implements the extension and version lifecycle managers,
// the audit trail recorder, and the user collaborator. Every mutating
// operation writes its entity state and audit record in one transaction;
// blob side effects happen outside the transaction with compensating
// cleanup where the ordering allows it.
package service

import "errors"

var (
	// ErrForbidden means the actor is neither the resource owner nor an
	// admin. Never retried; the caller maps it to a 403-equivalent.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation marks caller-correctable input problems (duplicate
	// username or email, unknown status value). Wrapped with a message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDateRange is returned by audit date-range queries when
	// start is after end.
	ErrInvalidDateRange = errors.New("invalid date range: start is after end")

	// ErrInvalidCredentials is returned by credential validation. It is
	// deliberately the same for unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
