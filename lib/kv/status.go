package kv

import "fmt"

// Status is the return code of every Backend verb. It implements the error
// interface directly so a verb can return it wherever idiomatic Go expects
// an error, while StatusOK compares equal to nil-as-success via IsOK.
type Status uint32

const (
	StatusOK Status = iota
	StatusInvalidArgs
	StatusInvalidDatabase
	StatusInvalidBackend
	StatusInvalidConfig
	StatusInvalidProvider
	StatusOpUnsupported
	StatusOpForbidden
	StatusKeyNotFound
	StatusKeyExists
	StatusBufferSize
	StatusTimeout
	StatusCorruption
	StatusIO
	StatusTryAgain
	StatusAborted
	StatusBusy
	StatusOther
)

var statusNames = map[Status]string{
	StatusOK:              "SUCCESS",
	StatusInvalidArgs:     "INVALID_ARGS",
	StatusInvalidDatabase: "INVALID_DATABASE",
	StatusInvalidBackend:  "INVALID_BACKEND",
	StatusInvalidConfig:   "INVALID_CONFIG",
	StatusInvalidProvider: "INVALID_PROVIDER",
	StatusOpUnsupported:   "OP_UNSUPPORTED",
	StatusOpForbidden:     "OP_FORBIDDEN",
	StatusKeyNotFound:     "KEY_NOT_FOUND",
	StatusKeyExists:       "KEY_EXISTS",
	StatusBufferSize:      "BUFFER_SIZE",
	StatusTimeout:         "TIMEOUT",
	StatusCorruption:      "CORRUPTION",
	StatusIO:              "IO",
	StatusTryAgain:        "TRY_AGAIN",
	StatusAborted:         "ABORTED",
	StatusBusy:            "BUSY",
	StatusOther:           "OTHER",
}

// String returns the wire name of the status code, e.g. "KEY_NOT_FOUND".
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS(%d)", uint32(s))
}

// Error implements the error interface so a Status can be returned
// directly as an error. A StatusOK should never be wrapped in an error;
// callers are expected to check IsOK before treating a Status as a
// failure.
func (s Status) Error() string {
	return s.String()
}

// IsOK reports whether the status represents success.
func (s Status) IsOK() bool {
	return s == StatusOK
}

// --------------------------------------------------------------------------
// Sentinel size encoding (§4.1 / §6.3)
// --------------------------------------------------------------------------

// Reserved size values written into a result-size slot in place of a real
// byte length. They are chosen so every representable length fits below
// the reserved band on 64-bit platforms.
const (
	KeyNotFound  uint64 = 1<<64 - 1
	SizeTooSmall uint64 = 1<<64 - 2
	NoMoreKeys   uint64 = 1<<64 - 3
)

// IsSentinel reports whether a size value is one of the reserved sentinels
// rather than a real byte length.
func IsSentinel(size uint64) bool {
	return size == KeyNotFound || size == SizeTooSmall || size == NoMoreKeys
}
