package bwe

import "testing"

func TestRateCounter_NoDataBeforeFirstAdd(t *testing.T) {
	r := NewRateCounter(DefaultRateCounterConfig())
	if _, ok := r.Rate(0); ok {
		t.Fatalf("expected no rate before any Add")
	}
}

func TestRateCounter_SingleSampleInsufficientWindow(t *testing.T) {
	r := NewRateCounter(DefaultRateCounterConfig())
	r.Add(1000, 0)
	if _, ok := r.Rate(0); ok {
		t.Fatalf("expected no rate with a 1ms-wide window")
	}
}

func TestRateCounter_ConstantRateConverges(t *testing.T) {
	cfg := RateCounterConfig{WindowMs: 1000, Scale: 8000}
	r := NewRateCounter(cfg)

	const packetSize = 125 // bytes, 1000 packets/s*125B = 125,000 B/s -> 1,000,000 bit/s over 1ms cadence
	for ms := int64(0); ms < 1000; ms++ {
		r.Add(packetSize, ms)
	}

	rate, ok := r.Rate(999)
	if !ok {
		t.Fatalf("expected a rate after filling the window")
	}
	want := uint64(8000 * packetSize * 1000 / 1000)
	if diff := int64(rate) - int64(want); diff < -1 || diff > 1 {
		t.Fatalf("rate = %d, want ~%d", rate, want)
	}
}

func TestRateCounter_EraseOldDropsExpiredBuckets(t *testing.T) {
	cfg := RateCounterConfig{WindowMs: 100, Scale: 1}
	r := NewRateCounter(cfg)

	r.Add(500, 0)
	rate, ok := r.Rate(2000)
	if ok && rate != 0 {
		t.Fatalf("expected stale sample to fall out of the window, got rate=%d ok=%v", rate, ok)
	}
}

func TestRateCounter_Reset(t *testing.T) {
	r := NewRateCounter(DefaultRateCounterConfig())
	r.Add(1000, 0)
	r.Add(1000, 500)
	r.Reset()

	if _, ok := r.Rate(500); ok {
		t.Fatalf("expected no rate immediately after Reset")
	}
}

func TestRateCounter_WindowBoundary(t *testing.T) {
	cfg := RateCounterConfig{WindowMs: 10, Scale: 1}
	r := NewRateCounter(cfg)

	for ms := int64(0); ms < 10; ms++ {
		r.Add(1, ms)
	}
	rate, ok := r.Rate(9)
	if !ok {
		t.Fatalf("expected a rate with a full window")
	}
	if rate == 0 {
		t.Fatalf("expected non-zero rate, got 0")
	}
}
