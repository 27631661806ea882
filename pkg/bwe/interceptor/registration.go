package interceptor

import (
	"github.com/pion/webrtc/v4"
)

// RegisterWithMediaEngine negotiates the abs-send-time RTP header extension
// on m for both audio and video codecs. Call this before creating a
// PeerConnection from m; extensions registered afterward are not included
// in SDP offers/answers, and a sender that never negotiates abs-send-time
// produces packets this package silently ignores.
func RegisterWithMediaEngine(m *webrtc.MediaEngine) error {
	for _, codecType := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		if err := m.RegisterHeaderExtension(webrtc.RTPHeaderExtensionCapability{
			URI: AbsSendTimeURI,
		}, codecType); err != nil {
			return err
		}
	}
	return nil
}
