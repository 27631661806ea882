package bwe

// TimestampGroupLengthMs is the timestamp-domain width, in milliseconds,
// within which packets are coalesced into a single arrival group.
const TimestampGroupLengthMs = 5

// BurstDeltaThresholdMs bounds the arrival-time delta, in milliseconds, a
// packet may have caught up by and still be considered part of a burst.
const BurstDeltaThresholdMs = 5

// groupLengthTimestamp is TimestampGroupLengthMs expressed in the 32-bit
// timestamp domain (1/2^26 s units): 5ms * 2^26 / 1000.
const groupLengthTimestamp = uint32(TimestampGroupLengthMs * (1 << 26) / 1000)

// TimestampGroup is a run of packets coalesced because they arrived close
// enough together, in both send-timestamp and arrival-time terms, to be
// treated as one inter-arrival sample.
type TimestampGroup struct {
	FirstTimestamp uint32
	LastTimestamp  uint32
	ArrivalTimeMs  int64
	HaveArrival    bool
	Size           int64
}

func newTimestampGroup(timestamp uint32) TimestampGroup {
	return TimestampGroup{
		FirstTimestamp: timestamp,
		LastTimestamp:  timestamp,
	}
}

// InterArrivalDelta is the (timestamp, arrival-time, size) delta between
// two consecutive timestamp groups, emitted once per group closure.
type InterArrivalDelta struct {
	Timestamp     uint32
	ArrivalTimeMs int64
	Size          int64
}

// InterArrivalConfig configures an InterArrival grouping stage.
type InterArrivalConfig struct {
	// GroupLengthTimestamp is the group-coalescing width in the 32-bit
	// timestamp domain. Zero selects the abs-send-time-derived default
	// (5ms).
	GroupLengthTimestamp uint32
	// TimestampToMs converts one timestamp-domain unit to milliseconds.
	// Zero selects the abs-send-time-derived default (1000/2^26).
	TimestampToMs float64
}

// DefaultInterArrivalConfig returns the abs-send-time-calibrated defaults:
// a 5ms group length and the corresponding timestamp-to-ms scale.
func DefaultInterArrivalConfig() InterArrivalConfig {
	return InterArrivalConfig{
		GroupLengthTimestamp: groupLengthTimestamp,
		TimestampToMs:        TimestampToMs,
	}
}

// InterArrival groups packet arrivals into TimestampGroups and emits
// inter-group deltas. It holds at most two groups (current, previous) and
// performs no allocation once warm.
type InterArrival struct {
	groupLengthTimestamp uint32
	timestampToMs        float64

	haveCurrent  bool
	current      TimestampGroup
	havePrevious bool
	previous     TimestampGroup
}

// NewInterArrival creates an InterArrival grouping stage with the given
// configuration.
func NewInterArrival(config InterArrivalConfig) *InterArrival {
	groupLength := config.GroupLengthTimestamp
	if groupLength == 0 {
		groupLength = groupLengthTimestamp
	}
	toMs := config.TimestampToMs
	if toMs == 0 {
		toMs = TimestampToMs
	}
	return &InterArrival{
		groupLengthTimestamp: groupLength,
		timestampToMs:        toMs,
	}
}

// ComputeDeltas feeds one packet's (timestamp, arrival_time_ms, size) into
// the grouping stage. It returns the InterArrivalDelta for the group that
// just closed, if any, and whether a delta was emitted.
//
// Packets whose send timestamp lies behind the current group's first
// timestamp in the 32-bit modular sense ((timestamp - first) mod 2^32 >=
// 2^31) are treated as out-of-order and dropped without any state change.
func (ia *InterArrival) ComputeDeltas(timestamp uint32, arrivalTimeMs int64, size int64) (InterArrivalDelta, bool) {
	if !ia.haveCurrent {
		ia.current = newTimestampGroup(timestamp)
		ia.haveCurrent = true
		ia.accumulate(arrivalTimeMs, size)
		return InterArrivalDelta{}, false
	}

	if ia.packetOutOfOrder(timestamp) {
		return InterArrivalDelta{}, false
	}

	var (
		delta   InterArrivalDelta
		emitted bool
	)

	if ia.newTimestampGroup(timestamp, arrivalTimeMs) {
		if ia.havePrevious {
			delta = InterArrivalDelta{
				Timestamp:     uint32(WrappingSub(ia.current.LastTimestamp, ia.previous.LastTimestamp)),
				ArrivalTimeMs: ia.current.ArrivalTimeMs - ia.previous.ArrivalTimeMs,
				Size:          ia.current.Size - ia.previous.Size,
			}
			emitted = true
		}
		ia.previous = ia.current
		ia.havePrevious = true
		ia.current = newTimestampGroup(timestamp)
	} else if ModularGT(timestamp, ia.current.LastTimestamp) {
		ia.current.LastTimestamp = timestamp
	}

	ia.accumulate(arrivalTimeMs, size)
	return delta, emitted
}

// Reset clears all grouping state, as if the InterArrival had just been
// constructed.
func (ia *InterArrival) Reset() {
	ia.haveCurrent = false
	ia.current = TimestampGroup{}
	ia.havePrevious = false
	ia.previous = TimestampGroup{}
}

func (ia *InterArrival) accumulate(arrivalTimeMs int64, size int64) {
	ia.current.Size += size
	ia.current.ArrivalTimeMs = arrivalTimeMs
	ia.current.HaveArrival = true
}

// packetOutOfOrder reports whether timestamp lies behind the current
// group's first timestamp in the 32-bit modular space, i.e. whether
// (timestamp - first) mod 2^32 >= 2^31.
func (ia *InterArrival) packetOutOfOrder(timestamp uint32) bool {
	return WrappingSub(timestamp, ia.current.FirstTimestamp) < 0
}

// newTimestampGroup reports whether timestamp starts a new group: it must
// not belong to a burst, and must be more than groupLengthTimestamp ahead
// of the current group's first timestamp.
func (ia *InterArrival) newTimestampGroup(timestamp uint32, arrivalTimeMs int64) bool {
	if ia.belongsToBurst(timestamp, arrivalTimeMs) {
		return false
	}
	return WrappingSub(timestamp, ia.current.FirstTimestamp) > int32(ia.groupLengthTimestamp)
}

// belongsToBurst reports whether timestamp should be coalesced into the
// current group despite being past the group length, because it either
// arrived effectively simultaneously in timestamp terms, or it "caught up"
// to the sender's pace within a tight arrival window.
func (ia *InterArrival) belongsToBurst(timestamp uint32, arrivalTimeMs int64) bool {
	if !ia.current.HaveArrival {
		return false
	}

	timestampDeltaMs := roundHalfAwayFromZero(ia.timestampToMs * float64(WrappingSub(timestamp, ia.current.LastTimestamp)))
	if timestampDeltaMs == 0 {
		return true
	}

	arrivalTimeDeltaMs := float64(arrivalTimeMs - ia.current.ArrivalTimeMs)
	if arrivalTimeDeltaMs-timestampDeltaMs < 0 && arrivalTimeDeltaMs <= BurstDeltaThresholdMs {
		return true
	}
	return false
}
