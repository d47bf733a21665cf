// Package common holds the pieces shared by every scorestream package: the error
// taxonomy, quarter-length canonicalisation and the package logger.
package common

import (
	"github.com/pkg/errors"
)

// Error categories. Callers classify failures with errors.Is.
var (
	// ErrNotFound reports a lookup that found nothing: an element that was never
	// inserted into a container, an id with no match, an offset outside a span.
	ErrNotFound = errors.New("not found")

	// ErrInvariant reports a call that would break a structural invariant, such as a
	// meter partition whose parts do not sum to the whole or a negative duration.
	ErrInvariant = errors.New("invariant violation")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// Invariantf wraps ErrInvariant with a formatted message.
func Invariantf(format string, args ...any) error {
	return errors.Wrapf(ErrInvariant, format, args...)
}

// IsNotFound reports whether err is in the not-found category.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvariant reports whether err is in the invariant-violation category.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariant)
}
