package bwe

// Detector adaptation gains and bounds.
const (
	initialThreshold    = 12.5
	minThreshold        = 6.0
	maxThreshold        = 600.0
	thresholdGainUp     = 0.0087
	thresholdGainDown   = 0.039
	overuseTimeThreshMs = 10.0
	maxAdaptOffsetMs    = 15.0
	maxAdaptDtMs        = 100
	minNumDeltas        = 2
	minNumDeltasForT    = 60
)

// OveruseConfig configures an OveruseDetector.
type OveruseConfig struct {
	// InitialThreshold seeds the adaptive threshold. Zero selects the
	// package default of 12.5.
	InitialThreshold float64
}

// DefaultOveruseConfig returns the standard detector defaults.
func DefaultOveruseConfig() OveruseConfig {
	return OveruseConfig{InitialThreshold: initialThreshold}
}

// OveruseDetector converts the Kalman estimator's offset into a bandwidth
// usage hypothesis via a self-adaptive, hysteretic threshold comparison.
type OveruseDetector struct {
	hypothesis     BandwidthUsage
	threshold      float64
	previousOffset float64

	overuseCounter  uint32
	overuseTimeMs   float64
	haveOveruseTime bool

	lastUpdateMs   int64
	haveLastUpdate bool

	onStateChange func(BandwidthUsage)
}

// NewOveruseDetector creates an OveruseDetector with the given
// configuration.
func NewOveruseDetector(config OveruseConfig) *OveruseDetector {
	threshold := config.InitialThreshold
	if threshold == 0 {
		threshold = initialThreshold
	}
	return &OveruseDetector{
		hypothesis: BwNormal,
		threshold:  threshold,
	}
}

// State returns the detector's current hypothesis.
func (d *OveruseDetector) State() BandwidthUsage { return d.hypothesis }

// Threshold returns the current adaptive threshold. Every adaptation step
// clamps it to [minThreshold, maxThreshold]; the configured initial value
// is not clamped.
func (d *OveruseDetector) Threshold() float64 { return d.threshold }

// SetCallback registers a function invoked whenever Detect transitions the
// hypothesis to a new value. Passing nil clears any previously registered
// callback. This is pure observation: it never influences detection.
func (d *OveruseDetector) SetCallback(fn func(BandwidthUsage)) {
	d.onStateChange = fn
}

// Detect classifies one inter-group delta given the Kalman-filtered
// offset, the timestamp-delta in milliseconds, and the estimator's total
// observed delta count. It returns the resulting hypothesis (also
// readable afterward via State).
func (d *OveruseDetector) Detect(offset float64, timestampDeltaMs float64, numOfDeltas uint32, nowMs int64) BandwidthUsage {
	if numOfDeltas < minNumDeltas {
		return d.hypothesis
	}

	n := numOfDeltas
	if n > minNumDeltasForT {
		n = minNumDeltasForT
	}
	t := float64(n) * offset

	previous := d.hypothesis

	switch {
	case t > d.threshold:
		if !d.haveOveruseTime {
			d.overuseTimeMs = timestampDeltaMs / 2
			d.haveOveruseTime = true
		} else {
			d.overuseTimeMs += timestampDeltaMs
		}
		d.overuseCounter++

		if d.overuseTimeMs > overuseTimeThreshMs && d.overuseCounter > 1 && offset >= d.previousOffset {
			d.setHypothesis(BwOverusing)
			d.overuseCounter = 0
			d.overuseTimeMs = 0
		}
	case t < -d.threshold:
		d.setHypothesis(BwUnderusing)
		d.overuseCounter = 0
		d.haveOveruseTime = false
	default:
		d.setHypothesis(BwNormal)
		d.overuseCounter = 0
		d.haveOveruseTime = false
	}

	d.previousOffset = offset
	d.updateThreshold(t, nowMs)

	if d.onStateChange != nil && d.hypothesis != previous {
		d.onStateChange(d.hypothesis)
	}

	return d.hypothesis
}

func (d *OveruseDetector) setHypothesis(h BandwidthUsage) {
	d.hypothesis = h
}

// updateThreshold adapts the threshold toward |modifiedOffset| with an
// asymmetric gain: it falls with the larger gain (thresholdGainDown) while
// |modifiedOffset| is below the threshold, and rises with the smaller gain
// (thresholdGainUp) once |modifiedOffset| reaches it.
func (d *OveruseDetector) updateThreshold(modifiedOffset float64, nowMs int64) {
	if !d.haveLastUpdate {
		d.lastUpdateMs = nowMs
		d.haveLastUpdate = true
		return
	}

	absOffset := modifiedOffset
	if absOffset < 0 {
		absOffset = -absOffset
	}

	if absOffset > d.threshold+maxAdaptOffsetMs {
		d.lastUpdateMs = nowMs
		return
	}

	k := thresholdGainDown
	if absOffset >= d.threshold {
		k = thresholdGainUp
	}

	dt := nowMs - d.lastUpdateMs
	if dt > maxAdaptDtMs {
		dt = maxAdaptDtMs
	}

	d.threshold += k * (absOffset - d.threshold) * float64(dt)
	d.threshold = clampFloat(d.threshold, minThreshold, maxThreshold)

	d.lastUpdateMs = nowMs
}
