// Package interceptor adapts the pure bwe.RemoteBitrateEstimator core to a
// Pion interceptor.Interceptor, so it can observe a real RTP receive path
// without the core package knowing anything about RTP, SDP, or Pion.
package interceptor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"

	"github.com/gccbwe/gcc-bwe/pkg/bwe"
)

// streamTimeout is how long a stream may go without a packet before
// cleanupLoop evicts its tracked state.
const streamTimeout = 2 * time.Second

// BWEInterceptor observes incoming RTP packets, extracts the abs-send-time
// header extension, and feeds (arrival_time_ms, abs_send_time, size, ssrc)
// tuples into a bwe.RemoteBitrateEstimator. It never writes RTCP; feedback
// generation is outside this package's scope.
type BWEInterceptor struct {
	interceptor.NoOp

	estimator   *bwe.RemoteBitrateEstimator
	estimatorMu sync.Mutex // serializes estimator.Add across stream readers
	streams     sync.Map   // ssrc (uint32) -> *streamState

	absExtID atomic.Uint32

	closed    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
}

// InterceptorOption configures a BWEInterceptor at construction time.
type InterceptorOption func(*BWEInterceptor)

// NewBWEInterceptor wraps an existing RemoteBitrateEstimator in a Pion
// interceptor. The estimator is owned by the returned BWEInterceptor for
// the lifetime of the PeerConnection.
func NewBWEInterceptor(estimator *bwe.RemoteBitrateEstimator, opts ...InterceptorOption) *BWEInterceptor {
	i := &BWEInterceptor{
		estimator: estimator,
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Close shuts down the interceptor's background goroutines.
func (i *BWEInterceptor) Close() error {
	close(i.closed)
	i.wg.Wait()
	return nil
}

// BindRemoteStream is called by Pion when a new remote stream is detected.
// It records the negotiated abs-send-time extension ID and wraps the
// reader to observe every packet read from the stream.
func (i *BWEInterceptor) BindRemoteStream(info *interceptor.StreamInfo, reader interceptor.RTPReader) interceptor.RTPReader {
	i.startOnce.Do(func() {
		i.wg.Add(1)
		go i.cleanupLoop()
	})

	if absID := FindAbsSendTimeID(info.RTPHeaderExtensions); absID != 0 {
		i.absExtID.CompareAndSwap(0, uint32(absID))
	}

	i.streams.Store(info.SSRC, newStreamState(info.SSRC))

	return interceptor.RTPReaderFunc(func(b []byte, a interceptor.Attributes) (int, interceptor.Attributes, error) {
		n, a, err := reader.Read(b, a)
		if err == nil && n > 0 {
			i.processRTP(b[:n], info.SSRC)
		}
		return n, a, err
	})
}

// UnbindRemoteStream is called by Pion when a remote stream is torn down.
func (i *BWEInterceptor) UnbindRemoteStream(info *interceptor.StreamInfo) {
	i.streams.Delete(info.SSRC)
}

// processRTP parses one packet's RTP header, extracts abs-send-time, and
// feeds it to the estimator. Packets with no parseable timing extension
// are silently skipped; this is a normal-operation case, not an error
// (e.g. a stream that never negotiated abs-send-time).
func (i *BWEInterceptor) processRTP(raw []byte, ssrc uint32) {
	var header rtp.Header
	headerLen, err := header.Unmarshal(raw)
	if err != nil {
		return
	}

	now := time.Now()

	if state, ok := i.streams.Load(ssrc); ok {
		state.(*streamState).UpdateLastPacket(now)
	}

	absID := uint8(i.absExtID.Load())
	if absID == 0 {
		return
	}

	extData := header.GetExtension(absID)
	if len(extData) < 3 {
		return
	}

	var ext rtp.AbsSendTimeExtension
	if err := ext.Unmarshal(extData); err != nil {
		return
	}

	pkt := getPacketInfo()
	pkt.ArrivalTime = now
	pkt.SendTime = uint32(ext.Timestamp)
	pkt.Size = len(raw) - headerLen
	pkt.SSRC = ssrc

	i.estimatorMu.Lock()
	i.estimator.Add(pkt.ArrivalTime.UnixMilli(), pkt.SendTime, pkt.Size, pkt.SSRC)
	i.estimatorMu.Unlock()

	putPacketInfo(pkt)
}

// cleanupLoop periodically evicts streams that have gone quiet for longer
// than streamTimeout.
func (i *BWEInterceptor) cleanupLoop() {
	defer i.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-i.closed:
			return
		case now := <-ticker.C:
			i.cleanupInactiveStreams(now)
		}
	}
}

func (i *BWEInterceptor) cleanupInactiveStreams(now time.Time) {
	i.streams.Range(func(key, value any) bool {
		state := value.(*streamState)
		if now.Sub(state.LastPacket()) > streamTimeout {
			i.streams.Delete(key)
		}
		return true
	})
}
