package interceptor

import (
	"github.com/pion/interceptor"

	"github.com/gccbwe/gcc-bwe/pkg/bwe"
)

// FactoryOption configures a BWEInterceptorFactory.
type FactoryOption func(*BWEInterceptorFactory)

// BWEInterceptorFactory creates one BWEInterceptor per PeerConnection.
// Register it with a Pion interceptor.Registry to enable receive-side
// bandwidth estimation.
type BWEInterceptorFactory struct {
	estimatorOpts []bwe.RemoteBitrateEstimatorOption
	onStateChange func(bwe.BandwidthUsage)
}

// WithRateCounterConfig overrides the incoming-bitrate RateCounter
// configuration for every interceptor the factory creates.
func WithRateCounterConfig(cfg bwe.RateCounterConfig) FactoryOption {
	return func(f *BWEInterceptorFactory) {
		f.estimatorOpts = append(f.estimatorOpts, bwe.WithRateCounterConfig(cfg))
	}
}

// WithKalmanConfig overrides the Kalman filter configuration for every
// interceptor the factory creates.
func WithKalmanConfig(cfg bwe.KalmanConfig) FactoryOption {
	return func(f *BWEInterceptorFactory) {
		f.estimatorOpts = append(f.estimatorOpts, bwe.WithKalmanConfig(cfg))
	}
}

// WithOveruseConfig overrides the OveruseDetector configuration for every
// interceptor the factory creates.
func WithOveruseConfig(cfg bwe.OveruseConfig) FactoryOption {
	return func(f *BWEInterceptorFactory) {
		f.estimatorOpts = append(f.estimatorOpts, bwe.WithOveruseConfig(cfg))
	}
}

// WithStateChangeCallback registers a function invoked whenever any
// interceptor created by this factory observes a hypothesis transition.
func WithStateChangeCallback(fn func(bwe.BandwidthUsage)) FactoryOption {
	return func(f *BWEInterceptorFactory) {
		f.onStateChange = fn
	}
}

// NewBWEInterceptorFactory creates a factory for BWEInterceptor instances.
func NewBWEInterceptorFactory(opts ...FactoryOption) (*BWEInterceptorFactory, error) {
	f := &BWEInterceptorFactory{}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// NewInterceptor is called by the interceptor registry when a
// PeerConnection is set up. It builds a fresh RemoteBitrateEstimator and
// wraps it in a BWEInterceptor.
func (f *BWEInterceptorFactory) NewInterceptor(_ string) (interceptor.Interceptor, error) {
	estimator := bwe.NewRemoteBitrateEstimator(f.estimatorOpts...)
	if f.onStateChange != nil {
		estimator.SetCallback(f.onStateChange)
	}
	return NewBWEInterceptor(estimator), nil
}
