package cfr

import (
	"github.com/pkg/errors"
)

var (
	// ErrProtocol is returned (wrapped) for any violation of the session
	// protocol: an unexpected request kind, a desynchronized player on
	// replay, an out of range action, or a malformed simulator message.
	// It is fatal for the traversal and the worker running it.
	ErrProtocol = errors.New("game session protocol violation")

	// ErrEmptyDistribution is returned when a decision offers no actions.
	ErrEmptyDistribution = errors.New("decision offers no actions")
)

// protocolErrorf returns an error wrapping ErrProtocol.
func protocolErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrProtocol, format, args...)
}

// IsProtocolError reports whether err was caused by a protocol violation.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol)
}
