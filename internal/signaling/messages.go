package signaling

import (
	"errors"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/rtc"
)

// Inbound message ids.
const (
	MsgJoinRoom         = "joinRoom"
	MsgReceiveVideoFrom = "receiveVideoFrom"
	MsgOnIceCandidate   = "onIceCandidate"
	MsgLeaveRoom        = "leaveRoom"
)

// Outbound message ids, besides those a room emits itself.
const (
	MsgReceiveVideoAnswer = "receiveVideoAnswer"
	MsgError              = "error"
)

// Error codes carried by outbound error messages.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeEngineFailure = "ENGINE_FAILURE"
	CodeBadRequest    = "BAD_REQUEST"
)

// inbound is the flat envelope every client message arrives in; which fields
// are set depends on ID.
type inbound struct {
	ID        string           `json:"id"`
	Room      string           `json:"room,omitempty"`
	Name      string           `json:"name,omitempty"`
	Sender    string           `json:"sender,omitempty"`
	SDPOffer  string           `json:"sdpOffer,omitempty"`
	Candidate *media.Candidate `json:"candidate,omitempty"`
}

// ReceiveVideoAnswer answers an offer made for the media of participant Name.
type ReceiveVideoAnswer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SDPAnswer string `json:"sdpAnswer"`
}

type ErrorMessage struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	errBadRequest   = errors.New("signaling: bad request")
	errInvalidState = errors.New("signaling: message not valid in current state")
)

func codeFor(err error) string {
	switch {
	case errors.Is(err, rtc.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, rtc.ErrConflict):
		return CodeConflict
	case errors.Is(err, rtc.ErrEngineFailure):
		return CodeEngineFailure
	default:
		return CodeBadRequest
	}
}
