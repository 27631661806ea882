package interceptor

import (
	"github.com/pion/interceptor"
)

// AbsSendTimeURI is the RTP header extension URI negotiated during SDP
// exchange to carry the sender's abs-send-time value: a 3-byte, 24-bit
// 6.18 fixed-point timestamp that wraps roughly every 64 seconds. This is
// the only timing extension the estimator consumes.
const AbsSendTimeURI = "http://www.webrtc.org/experiments/rtp-hdrext/abs-send-time"

// FindExtensionID searches the negotiated RTP header extensions for uri
// and returns its ID, or 0 if not present. ID 0 is reserved and invalid
// per RFC 5285, so callers treat it as "not negotiated".
func FindExtensionID(exts []interceptor.RTPHeaderExtension, uri string) uint8 {
	for _, ext := range exts {
		if ext.URI == uri {
			return uint8(ext.ID)
		}
	}
	return 0
}

// FindAbsSendTimeID looks up the negotiated abs-send-time extension ID.
func FindAbsSendTimeID(exts []interceptor.RTPHeaderExtension) uint8 {
	return FindExtensionID(exts, AbsSendTimeURI)
}
