// Package interceptor provides a Pion WebRTC interceptor that drives
// receiver-side bandwidth estimation (the GCC delay-based core in
// github.com/gccbwe/gcc-bwe/pkg/bwe) off a real RTP receive path.
//
// This interceptor observes incoming RTP packets, extracts the abs-send-time
// header extension, and feeds the resulting (arrival_time_ms, abs_send_time,
// size, ssrc) tuples to a bwe.RemoteBitrateEstimator. It does not build or
// send any RTCP feedback (REMB or otherwise); consuming the estimator's
// state and deciding how to act on it is left to the caller.
//
// # Quick Start
//
//	import (
//	    "github.com/pion/interceptor"
//	    "github.com/pion/webrtc/v4"
//	    bweint "github.com/gccbwe/gcc-bwe/pkg/bwe/interceptor"
//	)
//
//	func setupPeerConnection() (*webrtc.PeerConnection, error) {
//	    m := &webrtc.MediaEngine{}
//	    if err := m.RegisterDefaultCodecs(); err != nil {
//	        return nil, err
//	    }
//	    if err := bweint.RegisterWithMediaEngine(m); err != nil {
//	        return nil, err
//	    }
//
//	    registry := &interceptor.Registry{}
//	    factory, err := bweint.NewBWEInterceptorFactory()
//	    if err != nil {
//	        return nil, err
//	    }
//	    registry.Add(factory)
//
//	    api := webrtc.NewAPI(
//	        webrtc.WithMediaEngine(m),
//	        webrtc.WithInterceptorRegistry(registry),
//	    )
//	    return api.NewPeerConnection(webrtc.Configuration{})
//	}
//
// # Configuration
//
// The factory accepts options that override individual sub-component
// configuration for every interceptor it creates:
//
//	factory, err := bweint.NewBWEInterceptorFactory(
//	    bweint.WithKalmanConfig(bwe.DefaultKalmanConfig()),
//	    bweint.WithStateChangeCallback(func(state bwe.BandwidthUsage) {
//	        log.Printf("bandwidth usage: %s", state)
//	    }),
//	)
//
// # How It Works
//
//  1. BindRemoteStream extracts the negotiated abs-send-time extension ID
//     and begins tracking the stream's SSRC.
//  2. Each RTP packet read from the stream is parsed, its abs-send-time
//     extension decoded, and the result passed to RemoteBitrateEstimator.Add.
//  3. Streams with no packets for 2 seconds are evicted by a background
//     cleanup loop.
//
// # Requirements
//
// The sender must negotiate the abs-send-time RTP header extension; packets
// without it are silently skipped for bandwidth-estimation purposes.
package interceptor
