package rbac

import "errors"

var (
	// ErrAuthenticationRequired means no resolvable identity; checked before
	// any data access.
	ErrAuthenticationRequired = errors.New("rbac: authentication required")
	// ErrAuthorizationDenied is the fail-closed default whenever permission
	// data is missing or the caller lacks the needed role.
	ErrAuthorizationDenied = errors.New("rbac: authorization denied")
	ErrValidation          = errors.New("rbac: invalid input")
	ErrConflict            = errors.New("rbac: resource conflict")
	ErrNotFound            = errors.New("rbac: not found")
	// ErrBackend marks transient store failures; the only class eligible for
	// automatic retry, and only on idempotent operations.
	ErrBackend = errors.New("rbac: backend unavailable")
)
