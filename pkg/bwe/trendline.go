package bwe

import "time"

// trendMinNumDeltasCap mirrors the Kalman detector's MIN_NUM_DELTAS cap: the
// startup multiplier is capped at 60 samples so the output doesn't swing
// wildly before the regression window has filled.
const trendMinNumDeltasCap = 60

// TrendlineConfig configures a TrendlineEstimator.
type TrendlineConfig struct {
	// WindowSize is the number of samples the linear regression runs
	// over. Larger windows trade responsiveness for stability.
	WindowSize int
	// SmoothingCoef is the exponential smoothing coefficient applied to
	// the raw delay-variation signal before it enters the regression
	// window; values closer to 1 weight history more heavily.
	SmoothingCoef float64
	// ThresholdGain scales the regression slope into the same rough
	// magnitude as the Kalman OveruseEstimator's offset, so the two can
	// be compared against the same detector thresholds.
	ThresholdGain float64
}

// DefaultTrendlineConfig returns libwebrtc's defaults: a 20-sample window,
// 0.9 smoothing, and gain 4.0.
func DefaultTrendlineConfig() TrendlineConfig {
	return TrendlineConfig{
		WindowSize:    20,
		SmoothingCoef: 0.9,
		ThresholdGain: 4.0,
	}
}

// trendSample is one (time, accumulated delay) point in the regression
// window.
type trendSample struct {
	arrivalMs     float64
	smoothedDelay float64
}

// TrendlineEstimator is a linear-regression alternative to the two-state
// Kalman OveruseEstimator: it accumulates a smoothed delay-variation signal
// and fits a line to the trailing window, returning the fitted slope scaled
// the same way the Kalman path scales its offset. It is not part of
// RemoteBitrateEstimator's default pipeline; it exists as an independently
// usable filter over the same delay-variation input, for callers who want
// to compare the two approaches.
type TrendlineEstimator struct {
	config TrendlineConfig

	history       []trendSample
	smoothedDelay float64
	numSamples    int
	firstArrival  time.Time
}

// NewTrendlineEstimator creates a TrendlineEstimator. A WindowSize below 2
// is not a usable regression window and falls back to 20.
func NewTrendlineEstimator(config TrendlineConfig) *TrendlineEstimator {
	if config.WindowSize < 2 {
		config.WindowSize = 20
	}
	return &TrendlineEstimator{
		config:  config,
		history: make([]trendSample, 0, config.WindowSize),
	}
}

// Update folds one inter-packet delay-variation sample (arrival time plus
// delayVariationMs, positive when delay is growing) into the regression
// window and returns the resulting modified trend value: a positive value
// signals building queueing delay, negative signals draining.
func (t *TrendlineEstimator) Update(arrivalTime time.Time, delayVariationMs float64) float64 {
	if t.firstArrival.IsZero() {
		t.firstArrival = arrivalTime
	}
	arrivalMs := float64(arrivalTime.Sub(t.firstArrival).Milliseconds())

	t.smoothedDelay = t.config.SmoothingCoef*t.smoothedDelay + (1-t.config.SmoothingCoef)*delayVariationMs

	t.history = append(t.history, trendSample{arrivalMs: arrivalMs, smoothedDelay: t.smoothedDelay})
	if len(t.history) > t.config.WindowSize {
		t.history = t.history[1:]
	}
	t.numSamples++

	slope := t.regressionSlope()

	weight := float64(t.numSamples)
	if weight > trendMinNumDeltasCap {
		weight = trendMinNumDeltasCap
	}

	return weight * slope * t.config.ThresholdGain
}

// regressionSlope fits an ordinary-least-squares line through the sample
// window and returns its slope, in smoothed-delay units per millisecond.
func (t *TrendlineEstimator) regressionSlope() float64 {
	n := len(t.history)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXX, sumXY float64
	for _, s := range t.history {
		sumX += s.arrivalMs
		sumY += s.smoothedDelay
		sumXX += s.arrivalMs * s.arrivalMs
		sumXY += s.arrivalMs * s.smoothedDelay
	}

	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (nf*sumXY - sumX*sumY) / denom
}

// Reset clears all accumulated state, as if the estimator had just been
// constructed.
func (t *TrendlineEstimator) Reset() {
	t.history = t.history[:0]
	t.smoothedDelay = 0
	t.numSamples = 0
	t.firstArrival = time.Time{}
}
