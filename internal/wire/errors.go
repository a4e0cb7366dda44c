package wire

import "errors"

// The codec recognizes exactly three error kinds. Every exported parse or
// encode failure wraps one of these sentinels with fmt.Errorf("...: %w", ...)
// so callers can classify a failure with errors.Is without parsing strings.
var (
	// ErrBuffer covers any out-of-bounds read/write and name-compression
	// pointer cycles.
	ErrBuffer = errors.New("wire: buffer error")

	// ErrBimap covers reverse lookup of a non-canonical mnemonic.
	ErrBimap = errors.New("wire: bimap error")

	// ErrDNS covers any higher-level inconsistency: unsupported opcode on
	// encode, an RDATA decoder that consumed the wrong number of bytes,
	// transaction-id mismatch, or zone/DiG parse failure.
	ErrDNS = errors.New("wire: dns error")
)
