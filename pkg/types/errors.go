package types

import "errors"

// Sentinel errors for the relay client. Operational failures are wrapped with
// call-site context via fmt.Errorf("...: %w", err) so callers can test with
// errors.Is regardless of which component surfaced them.
var (
	// ErrConfiguration indicates neither or both signing modes were supplied.
	// Fatal at construction, never retried.
	ErrConfiguration = errors.New("invalid signing configuration")

	// ErrInvalidKey indicates a malformed local secret key. Fatal at
	// construction.
	ErrInvalidKey = errors.New("invalid secret key")

	// ErrNoAddressAvailable indicates an address was requested before the
	// frontend signer resolved it, or omitted with no configured signer.
	// Recoverable by retrying after resolution or passing an explicit address.
	ErrNoAddressAvailable = errors.New("no address available")

	// ErrRelayRejected indicates the relay declined a submission. The relay's
	// own message is attached by the transport.
	ErrRelayRejected = errors.New("relay rejected submission")

	// ErrMalformedRelayResponse indicates a relay response without the
	// mandatory transaction identifier. A contract violation by the relay,
	// never silently defaulted.
	ErrMalformedRelayResponse = errors.New("malformed relay response")
)
