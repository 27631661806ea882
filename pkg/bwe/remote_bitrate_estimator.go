package bwe

// RemoteBitrateEstimatorConfig configures a RemoteBitrateEstimator and its
// four owned sub-components.
type RemoteBitrateEstimatorConfig struct {
	RateCounter  RateCounterConfig
	InterArrival InterArrivalConfig
	Kalman       KalmanConfig
	Overuse      OveruseConfig
}

// DefaultRemoteBitrateEstimatorConfig returns the standard defaults
// for every sub-component.
func DefaultRemoteBitrateEstimatorConfig() RemoteBitrateEstimatorConfig {
	return RemoteBitrateEstimatorConfig{
		RateCounter:  DefaultRateCounterConfig(),
		InterArrival: DefaultInterArrivalConfig(),
		Kalman:       DefaultKalmanConfig(),
		Overuse:      DefaultOveruseConfig(),
	}
}

// RemoteBitrateEstimatorOption customizes a RemoteBitrateEstimator at
// construction time.
type RemoteBitrateEstimatorOption func(*RemoteBitrateEstimatorConfig)

// WithRateCounterConfig overrides the incoming-bitrate RateCounter
// configuration.
func WithRateCounterConfig(cfg RateCounterConfig) RemoteBitrateEstimatorOption {
	return func(c *RemoteBitrateEstimatorConfig) { c.RateCounter = cfg }
}

// WithInterArrivalConfig overrides the InterArrival grouping configuration.
func WithInterArrivalConfig(cfg InterArrivalConfig) RemoteBitrateEstimatorOption {
	return func(c *RemoteBitrateEstimatorConfig) { c.InterArrival = cfg }
}

// WithKalmanConfig overrides the Kalman filter configuration.
func WithKalmanConfig(cfg KalmanConfig) RemoteBitrateEstimatorOption {
	return func(c *RemoteBitrateEstimatorConfig) { c.Kalman = cfg }
}

// WithOveruseConfig overrides the OveruseDetector configuration.
func WithOveruseConfig(cfg OveruseConfig) RemoteBitrateEstimatorOption {
	return func(c *RemoteBitrateEstimatorConfig) { c.Overuse = cfg }
}

// RemoteBitrateEstimator is the top-level facade composing RateCounter,
// InterArrival, OveruseEstimator and OveruseDetector into the full
// receive-side bandwidth estimation pipeline.
//
// A RemoteBitrateEstimator is not safe for concurrent mutation; Add must
// be called from a single goroutine per instance, with monotonically
// non-decreasing arrivalTimeMs.
type RemoteBitrateEstimator struct {
	incomingBitrate     *RateCounter
	incomingBitrateInit bool
	interArrival        *InterArrival
	estimator           *OveruseEstimator
	detector            *OveruseDetector

	ssrcs map[uint32]int64
}

// NewRemoteBitrateEstimator creates a RemoteBitrateEstimator. Sub-components
// without an option use their package defaults; each option replaces one
// sub-component's whole configuration, and zero fields in it are handled by
// that sub-component's constructor (which does not always substitute the
// package default, e.g. a zero RateCounterConfig.Scale becomes 1).
func NewRemoteBitrateEstimator(opts ...RemoteBitrateEstimatorOption) *RemoteBitrateEstimator {
	config := DefaultRemoteBitrateEstimatorConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &RemoteBitrateEstimator{
		incomingBitrate: NewRateCounter(config.RateCounter),
		interArrival:    NewInterArrival(config.InterArrival),
		estimator:       NewOveruseEstimator(config.Kalman),
		detector:        NewOveruseDetector(config.Overuse),
		ssrcs:           make(map[uint32]int64),
	}
}

// Add feeds one packet arrival into the estimator pipeline.
func (r *RemoteBitrateEstimator) Add(arrivalTimeMs int64, absSendTime uint32, payloadSize int, ssrc uint32) {
	timestamp := ExpandTimestamp(absSendTime)

	r.ssrcs[ssrc] = arrivalTimeMs

	if _, ok := r.incomingBitrate.Rate(arrivalTimeMs); ok {
		r.incomingBitrateInit = true
	} else if r.incomingBitrateInit {
		r.incomingBitrate.Reset()
		r.incomingBitrateInit = false
	}
	r.incomingBitrate.Add(uint64(payloadSize), arrivalTimeMs)

	delta, ok := r.interArrival.ComputeDeltas(timestamp, arrivalTimeMs, int64(payloadSize))
	if !ok {
		return
	}

	timestampDeltaMs := truncateToMs(float64(delta.Timestamp) * TimestampToMs)

	currentHypothesis := r.detector.State()
	r.estimator.Update(float64(delta.ArrivalTimeMs), timestampDeltaMs, delta.Size, currentHypothesis, arrivalTimeMs)
	r.detector.Detect(r.estimator.Offset(), timestampDeltaMs, r.estimator.NumOfDeltas(), arrivalTimeMs)
}

// State returns the detector's current bandwidth-usage hypothesis.
func (r *RemoteBitrateEstimator) State() BandwidthUsage { return r.detector.State() }

// Offset returns the Kalman-filtered delay-gradient estimate.
func (r *RemoteBitrateEstimator) Offset() float64 { return r.estimator.Offset() }

// NumOfDeltas returns the number of inter-group deltas observed so far.
func (r *RemoteBitrateEstimator) NumOfDeltas() uint32 { return r.estimator.NumOfDeltas() }

// Threshold returns the detector's current adaptive threshold.
func (r *RemoteBitrateEstimator) Threshold() float64 { return r.detector.Threshold() }

// IncomingBitrate returns the current incoming bitrate measurement ending
// at nowMs, and whether enough data exists to compute one.
func (r *RemoteBitrateEstimator) IncomingBitrate(nowMs int64) (uint64, bool) {
	return r.incomingBitrate.Rate(nowMs)
}

// SetCallback registers a function invoked whenever the detector's
// hypothesis changes as a result of Add.
func (r *RemoteBitrateEstimator) SetCallback(fn func(BandwidthUsage)) {
	r.detector.SetCallback(fn)
}

// Ssrcs returns the set of SSRCs observed so far, mapped to the arrival
// time (ms) of their most recently seen packet.
func (r *RemoteBitrateEstimator) Ssrcs() map[uint32]int64 {
	out := make(map[uint32]int64, len(r.ssrcs))
	for k, v := range r.ssrcs {
		out[k] = v
	}
	return out
}

// truncateToMs converts a timestamp delta to milliseconds by truncating
// rather than rounding, unlike the rounding used in burst detection.
func truncateToMs(v float64) float64 {
	return float64(int64(v))
}
