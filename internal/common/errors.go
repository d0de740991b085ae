// Package common defines sentinel errors and small helpers shared by the
// sync engine, the submission pipeline and the admin CLI. Callers should use
// errors.Is to match these values; producers wrap them with fmt.Errorf("%w").
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")

	// ErrConfiguration marks a call that cannot proceed because static
	// configuration is wrong or missing: unknown jurisdiction, missing secret,
	// unknown provider. No partial output is produced.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnection marks a transport or provider that is unreachable or
	// rejected authentication. It aborts the whole batch or job.
	ErrConnection = errors.New("connection error")

	// ErrRecord is scoped to a single external record (missing mapping,
	// malformed payload). Siblings keep processing.
	ErrRecord = errors.New("record error")

	// ErrDecryption is returned only by the strict vault path.
	ErrDecryption = errors.New("decryption error")

	// ErrValidation is raised before any output is written, e.g. a file would
	// exceed the jurisdiction row cap.
	ErrValidation = errors.New("validation error")

	// ErrPortalUnavailable is returned for portals in maintenance or disabled.
	ErrPortalUnavailable = errors.New("portal unavailable")
)
