package moderation

import (
	"errors"
	"net/http"
)

// Error taxonomy for platform failures. Adapters wrap their transport
// errors with one of these sentinels so callers can branch without knowing
// the wire protocol.
var (
	// ErrForbidden marks a permission-denied outcome. Non-fatal: callers
	// degrade to a boolean failure or a zero contribution.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks a missing entity, including already-deleted
	// messages, which delete paths treat as success-equivalent.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks rate limits and transport failures that are safe
	// to treat as a skipped unit of work.
	ErrTransient = errors.New("transient platform error")
)

func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }
func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// SentinelForHTTPStatus classifies a platform HTTP status code into the
// taxonomy. Unclassified statuses map to ErrTransient: the purge and
// enforcement paths must degrade rather than escalate.
func SentinelForHTTPStatus(code int) error {
	switch code {
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrTransient
	}
}
