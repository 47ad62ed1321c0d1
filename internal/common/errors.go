// Package common defines shared constants and sentinel errors used across
// the gophauth server layers. Callers should use errors.Is to match these
// values; causes are attached with fmt.Errorf("%w: ...: %w", kind, cause).
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Input errors (malformed input, closed-enum violations).
	ErrValidation = errors.New("validation error")

	// Login failures. Unknown email and wrong password both map here.
	ErrAuthentication = errors.New("email or password is wrong")

	// Auth gate failures (missing, invalid or stale session token).
	ErrUnauthenticated = errors.New("not authorized")

	// Token service failures. Tampering and expiry are not distinguished.
	ErrInvalidToken = errors.New("invalid token")

	// Verification lifecycle.
	ErrAlreadyVerified = errors.New("verification has already been passed")

	// Avatar pipeline failures (decode, resize, relocate).
	ErrProcessing = errors.New("processing error")

	// Collaborator failures (email dispatch).
	ErrDependency = errors.New("dependency error")

	ErrInternal = errors.New("internal error")
)
