package bwe

import (
	"math"
	"testing"
)

func TestOveruseEstimator_InitialState(t *testing.T) {
	e := NewOveruseEstimator(DefaultKalmanConfig())
	if e.Offset() != 0 {
		t.Fatalf("initial offset = %v, want 0", e.Offset())
	}
	if e.Slope() != initialSlope {
		t.Fatalf("initial slope = %v, want %v", e.Slope(), initialSlope)
	}
	if e.NumOfDeltas() != 0 {
		t.Fatalf("initial num_of_deltas = %d, want 0", e.NumOfDeltas())
	}
}

func TestOveruseEstimator_NumOfDeltasMonotoneAndSaturates(t *testing.T) {
	e := NewOveruseEstimator(DefaultKalmanConfig())
	prev := e.NumOfDeltas()
	for i := 0; i < DeltaCounterMax+50; i++ {
		e.Update(33, 33, 0, BwNormal, int64(i)*33)
		cur := e.NumOfDeltas()
		if cur < prev {
			t.Fatalf("num_of_deltas decreased: %d -> %d", prev, cur)
		}
		if cur > DeltaCounterMax {
			t.Fatalf("num_of_deltas = %d exceeds cap %d", cur, DeltaCounterMax)
		}
		prev = cur
	}
	if e.NumOfDeltas() != DeltaCounterMax {
		t.Fatalf("num_of_deltas = %d, want saturated at %d", e.NumOfDeltas(), DeltaCounterMax)
	}
}

func TestOveruseEstimator_VarNoiseFloor(t *testing.T) {
	e := NewOveruseEstimator(DefaultKalmanConfig())
	for i := 0; i < 2000; i++ {
		e.Update(33, 33, 0, BwNormal, int64(i)*33)
		if e.varNoise < minVarNoise {
			t.Fatalf("var_noise = %v fell below floor %v at iteration %d", e.varNoise, minVarNoise, i)
		}
	}
}

func TestOveruseEstimator_ConstantDeltasDriveOffsetToZero(t *testing.T) {
	e := NewOveruseEstimator(DefaultKalmanConfig())
	nowMs := int64(0)
	for i := 0; i < 500; i++ {
		e.Update(33, 33, 0, BwNormal, nowMs)
		nowMs += 33
	}
	if math.Abs(e.Offset()) > 1 {
		t.Fatalf("offset = %v, want close to 0 under a constant pattern", e.Offset())
	}
}

func TestOveruseEstimator_HypothesisConflictBoostsCovariance(t *testing.T) {
	e := NewOveruseEstimator(DefaultKalmanConfig())
	e.offset = 5
	e.previousOffset = 10 // offset is decreasing

	before := e.e[1][1]
	e.Update(100, 33, 0, BwOverusing, 1000)
	after := e.e[1][1]

	if after <= before {
		t.Fatalf("E[1][1] did not grow under a conflicting OVERUSING hypothesis: before=%v after=%v", before, after)
	}
}

func TestOveruseEstimator_MinFramePeriodHistoryBounded(t *testing.T) {
	e := NewOveruseEstimator(DefaultKalmanConfig())
	for i := 0; i < MinFramePeriodHistoryLength+30; i++ {
		e.Update(33, float64(i), 0, BwNormal, int64(i)*33)
	}
	if len(e.tsDeltaHist) != MinFramePeriodHistoryLength {
		t.Fatalf("ts_delta_hist length = %d, want capped at %d", len(e.tsDeltaHist), MinFramePeriodHistoryLength)
	}
}
