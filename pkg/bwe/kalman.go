package bwe

import "math"

// MinFramePeriodHistoryLength bounds the FIFO history of recent
// timestamp-delta values used to track the minimum frame period.
const MinFramePeriodHistoryLength = 60

// DeltaCounterMax is the saturation point for NumOfDeltas.
const DeltaCounterMax = 1000

// initialSlope and initialOffset seed the 2-state Kalman filter.
const (
	initialSlope  = 1.0 / 64.0
	initialOffset = 0.0
)

// processNoiseSlope and processNoiseOffset are added to E's diagonal on
// every update, representing the model's process noise.
const (
	processNoiseSlope  = 1e-13
	processNoiseOffset = 1e-3
)

// hypothesisConflictBoost further inflates the offset process noise when
// the current hypothesis disagrees with the offset's direction of travel,
// re-opening the filter to fast adaptation.
const hypothesisConflictBoost = 10 * processNoiseOffset

// initialVarNoise and minVarNoise seed and floor the measurement noise
// variance.
const (
	initialVarNoise = 50.0
	minVarNoise     = 1.0
)

// noiseAlphaLow and noiseAlphaHigh select the exponential smoothing gain
// for the noise estimate depending on how many deltas have been observed
// so far.
const (
	noiseAlphaLow           = 0.01
	noiseAlphaHigh          = 0.002
	noiseAlphaCutoverDeltas = 300
)

// residualClampNormalSigma is the number of noise standard deviations the
// residual is clamped to while the hypothesis is NORMAL.
const residualClampNormalSigma = 3.0

// KalmanConfig configures an OveruseEstimator.
type KalmanConfig struct {
	// InitialE is the initial 2x2 covariance matrix, [[E00,E01],[E10,E11]].
	InitialE [2][2]float64
}

// DefaultKalmanConfig returns the standard covariance seed
// E = [[100,0],[0,0.1]].
func DefaultKalmanConfig() KalmanConfig {
	return KalmanConfig{
		InitialE: [2][2]float64{
			{100, 0},
			{0, 0.1},
		},
	}
}

// OveruseEstimator is a two-state Kalman filter tracking [slope, offset]
// over the inter-arrival delay-variation signal. It observes
// y = arrival_delta_ms - timestamp_delta_ms with measurement vector
// h = [size_delta, 1].
type OveruseEstimator struct {
	e [2][2]float64

	slope          float64
	offset         float64
	previousOffset float64

	numOfDeltas uint32

	avgNoise float64
	varNoise float64

	tsDeltaHist []float64
}

// NewOveruseEstimator creates an OveruseEstimator with the given
// configuration.
func NewOveruseEstimator(config KalmanConfig) *OveruseEstimator {
	e := &OveruseEstimator{
		e:        config.InitialE,
		slope:    initialSlope,
		offset:   initialOffset,
		varNoise: initialVarNoise,
	}
	return e
}

// Offset returns the current smoothed delay-gradient estimate.
func (e *OveruseEstimator) Offset() float64 { return e.offset }

// Slope returns the current smoothed slope estimate.
func (e *OveruseEstimator) Slope() float64 { return e.slope }

// NumOfDeltas returns the number of deltas observed so far, saturating at
// DeltaCounterMax.
func (e *OveruseEstimator) NumOfDeltas() uint32 { return e.numOfDeltas }

// Update consumes one inter-group delta and the detector's current
// hypothesis, observed *before* the detector is advanced for this same
// delta, and advances the filter.
func (e *OveruseEstimator) Update(arrivalDeltaMs float64, timestampDeltaMs float64, sizeDelta int64, currentHypothesis BandwidthUsage, _ int64) {
	minFramePeriod := e.updateMinFramePeriod(timestampDeltaMs)

	if e.numOfDeltas < DeltaCounterMax {
		e.numOfDeltas++
	}

	e.e[0][0] += processNoiseSlope
	e.e[1][1] += processNoiseOffset

	if (currentHypothesis == BwOverusing && e.offset < e.previousOffset) ||
		(currentHypothesis == BwUnderusing && e.offset > e.previousOffset) {
		e.e[1][1] += hypothesisConflictBoost
	}

	h := [2]float64{float64(sizeDelta), 1}
	eh := [2]float64{
		e.e[0][0]*h[0] + e.e[0][1]*h[1],
		e.e[1][0]*h[0] + e.e[1][1]*h[1],
	}

	tTsDelta := arrivalDeltaMs - timestampDeltaMs
	residual := tTsDelta - e.slope*float64(sizeDelta) - e.offset

	if currentHypothesis == BwNormal {
		maxResidual := residualClampNormalSigma * math.Sqrt(e.varNoise)
		clamped := clampFloat(residual, -maxResidual, maxResidual)

		alpha := noiseAlphaLow
		if e.numOfDeltas > noiseAlphaCutoverDeltas {
			alpha = noiseAlphaHigh
		}
		beta := math.Pow(1-alpha, minFramePeriod*30/1000)

		e.avgNoise = beta*e.avgNoise + (1-beta)*clamped
		e.varNoise = beta*e.varNoise + (1-beta)*(e.avgNoise-clamped)*(e.avgNoise-clamped)
		if e.varNoise < minVarNoise {
			e.varNoise = minVarNoise
		}
	}

	denom := e.varNoise + h[0]*eh[0] + h[1]*eh[1]
	k := [2]float64{eh[0] / denom, eh[1] / denom}

	e00 := e.e[0][0] - k[0]*(h[0]*e.e[0][0]+h[1]*e.e[1][0])
	e01 := e.e[0][1] - k[0]*(h[0]*e.e[0][1]+h[1]*e.e[1][1])
	e10 := e.e[1][0] - k[1]*(h[0]*e.e[0][0]+h[1]*e.e[1][0])
	e11 := e.e[1][1] - k[1]*(h[0]*e.e[0][1]+h[1]*e.e[1][1])

	e.e[0][0], e.e[0][1], e.e[1][0], e.e[1][1] = e00, e01, e10, e11

	e.previousOffset = e.offset
	e.slope += k[0] * residual
	e.offset += k[1] * residual
}

// updateMinFramePeriod pushes timestampDeltaMs into the bounded history
// and returns the minimum value across the (now current) history.
func (e *OveruseEstimator) updateMinFramePeriod(timestampDeltaMs float64) float64 {
	e.tsDeltaHist = append(e.tsDeltaHist, timestampDeltaMs)
	if len(e.tsDeltaHist) > MinFramePeriodHistoryLength {
		e.tsDeltaHist = e.tsDeltaHist[1:]
	}

	min := e.tsDeltaHist[0]
	for _, v := range e.tsDeltaHist[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
