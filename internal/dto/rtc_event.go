package dto

import "github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"

const (
	TypeRTCAnswer       MessageType = "RTC_ANSWER"
	TypeRTCIceCandidate MessageType = "RTC_ICE_CANDIDATE"
)

// RTCAnswer mirrors an SDP answer onto the room's rtc/offer topic.
type RTCAnswer struct {
	Type        MessageType `json:"type"`
	Room        string      `json:"room"`
	Participant string      `json:"participant"`
	Sender      string      `json:"sender"`
	SDPAnswer   string      `json:"sdpAnswer"`
}

// RTCIceCandidate mirrors a server-gathered candidate onto the room's rtc/ice topic.
type RTCIceCandidate struct {
	Type        MessageType     `json:"type"`
	Room        string          `json:"room"`
	Participant string          `json:"participant"`
	Sender      string          `json:"sender"`
	Candidate   media.Candidate `json:"candidate"`
}
