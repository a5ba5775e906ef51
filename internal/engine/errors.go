package engine

import (
	"errors"

	"github.com/tartampluch/go-noor/internal/config"
)

var (
	// ErrTimeSourceUnavailable means no live table could be fetched and none was cached.
	ErrTimeSourceUnavailable = errors.New(config.ErrTimeSourceDown)

	// ErrNoLocation is returned when scheduling is requested before a location is set.
	ErrNoLocation = errors.New(config.ErrNoLocation)

	// ErrIncompleteTable is returned when a table lacks one of the scheduled prayers.
	ErrIncompleteTable = errors.New(config.ErrIncompleteTable)

	// ErrPermissionDenied is reported by a notification channel the user refused.
	ErrPermissionDenied = errors.New(config.ErrPermissionDenied)

	// ErrUnsupported is reported by a channel the platform does not offer.
	ErrUnsupported = errors.New(config.ErrUnsupported)

	ErrProviderResponse = errors.New(config.ErrProviderResponse)
)
