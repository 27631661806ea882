package bwe

import (
	"errors"
	"fmt"
)

// ErrInvalidAbsSendTime is returned when the input data is too short to parse
// a 24-bit abs-send-time value from an RTP header extension.
var ErrInvalidAbsSendTime = errors.New("bwe: invalid abs-send-time data, need at least 3 bytes")

// ParseAbsSendTime parses a 24-bit abs-send-time value from a 3-byte big-endian
// representation, the wire format of the abs-send-time RTP header extension.
func ParseAbsSendTime(data []byte) (uint32, error) {
	if len(data) < 3 {
		return 0, fmt.Errorf("%w: got %d bytes", ErrInvalidAbsSendTime, len(data))
	}
	return (uint32(data[0]) << 16) | (uint32(data[1]) << 8) | uint32(data[2]), nil
}

// InterArrivalTimestampShift is the number of bits the 24-bit abs-send-time
// value is left-shifted by to form the 32-bit timestamp domain the
// InterArrival and Kalman stages operate in. The resulting timestamp is a
// fixed-point value in units of 1/2^26 seconds.
const InterArrivalTimestampShift = 8

// TimestampToMs converts one unit of the 32-bit inter-arrival timestamp
// domain (1/2^26 s) to milliseconds.
const TimestampToMs = 1000.0 / (1 << 26)

// ExpandTimestamp left-shifts a 24-bit abs-send-time value into the 32-bit
// timestamp domain used internally by InterArrival and OveruseEstimator.
func ExpandTimestamp(absSendTime uint32) uint32 {
	return absSendTime << InterArrivalTimestampShift
}

// WrappingSub computes a - b as a signed value in the 32-bit modular space,
// i.e. (a - b) reduced to the range [-2^31, 2^31). This is the building
// block for all arithmetic on the wrap-around timestamp domain: send
// timestamps increase forever in principle but are transmitted modulo 2^32,
// wrapping roughly every 64 seconds at the abs-send-time-derived scale.
func WrappingSub(a, b uint32) int32 {
	return int32(a - b)
}

// ModularGT reports whether a is "after" b in the 32-bit modular timestamp
// space: 0 < (a - b) mod 2^32 < 2^31. Equal values are not "after" each
// other, and a difference of exactly 2^31 counts as "behind", which is the
// standard half-range convention for wrapping sequence numbers.
func ModularGT(a, b uint32) bool {
	return WrappingSub(a, b) > 0
}

// ModularGE reports whether a is "at or after" b in the 32-bit modular
// timestamp space.
func ModularGE(a, b uint32) bool {
	return WrappingSub(a, b) >= 0
}
