package bwe

import (
	"testing"
	"time"

	"github.com/gccbwe/gcc-bwe/pkg/bwe/internal"
	"github.com/gccbwe/gcc-bwe/pkg/bwe/testutil"
	"github.com/stretchr/testify/require"
)

func addTrace(r *RemoteBitrateEstimator, packets []testutil.PacketInfo) {
	for _, p := range packets {
		r.Add(p.ArrivalTime.UnixMilli(), p.SendTime, p.Size, p.SSRC)
	}
}

// S1: steady-state NORMAL under a constant 30fps, 500-byte stream.
func TestRemoteBitrateEstimator_SteadyStateNormal(t *testing.T) {
	clock := internal.NewMockClock(time.Time{})
	r := NewRemoteBitrateEstimator()

	const packets = 300
	// 33ms in abs-send-time units (2^18 per second) is 8650.75; 8651 is the
	// nearest step whose truncated timestamp delta is 33ms, matching the
	// 33ms arrival step exactly.
	const frameSendUnits = 8651
	sendTime := uint32(0)
	for i := 0; i < packets; i++ {
		r.Add(clock.Now().UnixMilli(), sendTime, 500, 0xC0FFEE)
		sendTime += frameSendUnits
		clock.Advance(33 * time.Millisecond)
	}

	require.Equal(t, BwNormal, r.State())
	require.Less(t, absFloat(r.Offset()), 1.0)
}

// S2: gradual overuse as arrival drifts ahead of send by 1ms/frame.
func TestRemoteBitrateEstimator_GradualOveruseTransitions(t *testing.T) {
	clock := internal.NewMockClock(time.Time{})
	r := NewRemoteBitrateEstimator()
	packets := testutil.CongestingNetworkTrace(clock, 300, 33, 1.0)

	sawOveruse := false
	for i, p := range packets {
		r.Add(p.ArrivalTime.UnixMilli(), p.SendTime, p.Size, p.SSRC)
		if i < 100 && r.State() == BwOverusing {
			sawOveruse = true
		}
	}
	require.True(t, sawOveruse, "expected OVERUSING within the first 100 packets")
	require.Equal(t, BwOverusing, r.State())
}

// S3: recovery to NORMAL once the arrival/send drift returns to 0, with the
// threshold staying bounded below by 6 during recovery.
func TestRemoteBitrateEstimator_RecoveryToNormal(t *testing.T) {
	clock := internal.NewMockClock(time.Time{})
	r := NewRemoteBitrateEstimator()

	congestionPackets := testutil.CongestingNetworkTrace(clock, 300, 33, 1.0)
	addTrace(r, congestionPackets)
	require.Equal(t, BwOverusing, r.State())

	lastSend := congestionPackets[len(congestionPackets)-1].SendTime

	prevThreshold := r.Threshold()
	sawNormal := false
	for i := 0; i < 100; i++ {
		lastSend += uint32(33 * 262)
		clock.Advance(33 * time.Millisecond)
		r.Add(clock.Now().UnixMilli(), lastSend, 1200, 0x12345678)

		th := r.Threshold()
		require.GreaterOrEqual(t, th, minThreshold)
		if r.State() == BwNormal {
			sawNormal = true
		}
		if th > prevThreshold {
			// Threshold is allowed brief upward noise only while still
			// overusing; once recovered it must trend down. We only
			// assert the lower bound here, since exact monotonicity
			// depends on the recovery trace shape.
		}
		prevThreshold = th
	}
	require.True(t, sawNormal, "expected recovery to NORMAL")
}

// S4: burst coalescing — identical send timestamp, tight arrival window.
func TestRemoteBitrateEstimator_BurstCoalescing(t *testing.T) {
	ia := NewInterArrival(DefaultInterArrivalConfig())

	const n = 5
	var total int64
	for i := 0; i < n; i++ {
		_, ok := ia.ComputeDeltas(1000, int64(i), 300)
		total += 300
		if ok {
			t.Fatalf("burst packets must never emit a delta")
		}
	}
	require.Equal(t, total, ia.current.Size)
}

// S5: an out-of-order packet is discarded; state matches feeding only the
// in-order prefix.
func TestRemoteBitrateEstimator_OutOfOrderPacketDiscarded(t *testing.T) {
	clock := internal.NewMockClock(time.Time{})
	rWithOOO := NewRemoteBitrateEstimator()
	rWithoutOOO := NewRemoteBitrateEstimator()

	rWithOOO.Add(clock.Now().UnixMilli(), 1000, 500, 1)
	rWithoutOOO.Add(clock.Now().UnixMilli(), 1000, 500, 1)
	clock.Advance(10 * time.Millisecond)

	rWithOOO.Add(clock.Now().UnixMilli(), 1200, 500, 1)
	rWithoutOOO.Add(clock.Now().UnixMilli(), 1200, 500, 1)
	clock.Advance(10 * time.Millisecond)

	rWithOOO.Add(clock.Now().UnixMilli(), 900-100, 500, 1)

	require.Equal(t, rWithoutOOO.State(), rWithOOO.State())
	require.Equal(t, rWithoutOOO.Offset(), rWithOOO.Offset())
	require.Equal(t, rWithoutOOO.NumOfDeltas(), rWithOOO.NumOfDeltas())
}

// S6: a trace crossing the abs-send-time wraparound keeps producing deltas
// and leaves the detector in a defined state.
func TestRemoteBitrateEstimator_WrapAroundTrace(t *testing.T) {
	clock := internal.NewMockClock(time.Time{})
	r := NewRemoteBitrateEstimator()
	packets := testutil.WraparoundTrace(clock, 200)

	for _, p := range packets {
		r.Add(p.ArrivalTime.UnixMilli(), p.SendTime, p.Size, p.SSRC)
	}

	require.Contains(t, []BandwidthUsage{BwNormal, BwUnderusing, BwOverusing}, r.State())
	require.Greater(t, r.NumOfDeltas(), uint32(0))
}

func TestRemoteBitrateEstimator_IncomingBitrateTracksPayload(t *testing.T) {
	clock := internal.NewMockClock(time.Time{})
	r := NewRemoteBitrateEstimator()

	const packetSize = 1200
	sendTime := uint32(0)
	for i := 0; i < 200; i++ {
		r.Add(clock.Now().UnixMilli(), sendTime, packetSize, 0x1)
		sendTime += uint32(10 * 262)
		clock.Advance(10 * time.Millisecond)
	}

	rate, ok := r.IncomingBitrate(clock.Now().UnixMilli())
	require.True(t, ok)
	require.Greater(t, rate, uint64(0))
}

func TestRemoteBitrateEstimator_SsrcsTracksParticipants(t *testing.T) {
	clock := internal.NewMockClock(time.Time{})
	r := NewRemoteBitrateEstimator()

	r.Add(clock.Now().UnixMilli(), 0, 500, 0xAAAA)
	clock.Advance(10 * time.Millisecond)
	r.Add(clock.Now().UnixMilli(), 2620, 500, 0xBBBB)

	ssrcs := r.Ssrcs()
	require.Len(t, ssrcs, 2)
	require.Contains(t, ssrcs, uint32(0xAAAA))
	require.Contains(t, ssrcs, uint32(0xBBBB))
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
