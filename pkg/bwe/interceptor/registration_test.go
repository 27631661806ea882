package interceptor

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

func TestRegisterWithMediaEngine_NegotiatesAbsSendTime(t *testing.T) {
	m := &webrtc.MediaEngine{}
	require.NoError(t, m.RegisterDefaultCodecs())
	require.NoError(t, RegisterWithMediaEngine(m))
}

func TestRegisterWithMediaEngine_SucceedsWithoutCodecs(t *testing.T) {
	// RegisterHeaderExtension on a MediaEngine with no codecs registered
	// for a given kind still succeeds in pion/webrtc; this only verifies
	// the helper doesn't panic when called on a bare MediaEngine.
	m := &webrtc.MediaEngine{}
	require.NoError(t, RegisterWithMediaEngine(m))
}
