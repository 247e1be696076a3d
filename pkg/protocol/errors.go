package protocol

import (
	"errors"
	"fmt"
	"io"
)

// ErrTruncated reports a stream that ended mid-field. After it the stream
// position is not trustworthy; the connection should be closed, not resumed.
// Decoder primitives return io.ErrUnexpectedEOF, which ErrTruncated wraps for
// errors.Is checks.
var ErrTruncated = io.ErrUnexpectedEOF

// VersionMismatchError reports an envelope whose protocol version differs
// from Version. The payload is left completely unconsumed: its layout is not
// assumed stable across versions. It usually indicates an incompatible peer.
type VersionMismatchError struct {
	Got  int32
	Want int32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("protocol: version mismatch: peer sent %d, compiled for %d", e.Got, e.Want)
}

// UnknownKindError reports a discriminant outside the closed kind set.
// Treat the stream as desynchronized.
type UnknownKindError struct {
	Kind Kind
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("protocol: unknown message kind 0x%02x", byte(e.Kind))
}

// InvalidEnumError reports an enum payload field holding a value outside its
// closed set (fence type, query type, poll type).
type InvalidEnumError struct {
	Field string
	Value byte
}

func (e *InvalidEnumError) Error() string {
	return fmt.Sprintf("protocol: invalid %s value 0x%02x", e.Field, e.Value)
}

// IsDesync reports whether err poisons the stream position, meaning the
// connection must be closed rather than resumed. A version mismatch is
// deliberately excluded: it is detected before any payload byte is consumed,
// so the outer framing is still intact.
func IsDesync(err error) bool {
	if err == nil {
		return false
	}
	var uk *UnknownKindError
	var ie *InvalidEnumError
	return errors.Is(err, ErrTruncated) ||
		errors.Is(err, ErrVarintOverflow) ||
		errors.Is(err, ErrAllocationTooLarge) ||
		errors.Is(err, ErrCollectionTooLarge) ||
		errors.As(err, &uk) ||
		errors.As(err, &ie)
}
