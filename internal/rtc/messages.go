package rtc

import "github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"

// Outbound message ids emitted by rooms and media resources.
const (
	MsgNewParticipantArrived = "newParticipantArrived"
	MsgParticipantLeft       = "participantLeft"
	MsgExistingParticipants  = "existingParticipants"
	MsgIceCandidate          = "iceCandidate"
)

type NewParticipantArrived struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ParticipantLeft struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ExistingParticipants struct {
	ID   string   `json:"id"`
	Data []string `json:"data"`
}

// IceCandidate carries a candidate gathered by the endpoint that exchanges
// media with participant Name.
type IceCandidate struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Candidate media.Candidate `json:"candidate"`
}
