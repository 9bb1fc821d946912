package stream

import "errors"

// Validation and resource errors behind a failed Manager.Open. None of
// these are fatal, and Open does not return them: it logs the failure
// and reports the same "open failed" result (sid=0) for every one,
// mirroring the exception-as-control-flow behavior of the source this
// protocol was distilled from.
var (
	ErrInvalidName        = errors.New("stream: invalid name")
	ErrNameInUse          = errors.New("stream: name already open")
	ErrAllocatorExhausted = errors.New("stream: index allocator exhausted")
	ErrFileOpen           = errors.New("stream: could not open file")
)
