package providers

import "errors"

// Error kinds surfaced by the registry. Of these, only
// ErrBackendFailure and ErrClosed reach a caller of AddProvider or
// GetProviders (which can also return the caller's own ctx.Err());
// the Malformed* kinds are local-recover during a scan (logged and
// skipped, see sweepOnce and loadPeerMap).
var (
	// ErrBackendFailure wraps any I/O failure returned by the injected
	// Datastore. Use errors.Is to test for it. The underlying cause's
	// message is included in the error text; the cause itself is not
	// wrapped, so errors.Is/As do not reach it.
	ErrBackendFailure = errors.New("provider registry: backend failure")

	// ErrMalformedKey is returned by parseKey when a scanned key does
	// not split into the expected number of segments.
	ErrMalformedKey = errors.New("provider registry: malformed key")

	// ErrMalformedRecord is returned by DecodeTimestamp when a stored
	// value is truncated or overflows a 64-bit varint.
	ErrMalformedRecord = errors.New("provider registry: malformed record")

	// ErrClosed is returned by the Serializer when a task is submitted
	// after the registry's context has been cancelled.
	ErrClosed = errors.New("provider registry: closed")
)
