// Package media defines the contract with the media engine that terminates
// WebRTC sessions for a room.
package media

import (
	"context"
	"errors"
)

// Handle is an opaque reference to a pipeline or an endpoint inside the engine.
type Handle string

// Candidate is an ICE candidate in its browser-facing shape.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// CandidateFunc receives candidates gathered by an endpoint.
type CandidateFunc func(Candidate)

// ErrUnknownHandle is returned for handles the engine never issued or already released.
var ErrUnknownHandle = errors.New("media: unknown handle")

// Engine is the media engine collaborator. Every call may fail with a
// transport or engine error; callers treat those as non-retryable.
type Engine interface {
	// CreatePipeline allocates a room-scoped pipeline.
	CreatePipeline(ctx context.Context) (Handle, error)
	// CreateEndpoint allocates a participant-scoped endpoint inside pipeline.
	// onCandidate is invoked for every local candidate the endpoint gathers.
	CreateEndpoint(ctx context.Context, pipeline Handle, onCandidate CandidateFunc) (Handle, error)
	// Connect routes media flowing into source out through sink.
	Connect(ctx context.Context, source, sink Handle) error
	// ProcessOffer applies a remote SDP offer and returns the SDP answer.
	ProcessOffer(ctx context.Context, endpoint Handle, sdp string) (string, error)
	// AddIceCandidate hands a remote candidate to the endpoint. Candidates
	// arriving before the offer are buffered by the engine.
	AddIceCandidate(ctx context.Context, endpoint Handle, c Candidate) error
	// Release frees a pipeline or an endpoint. Releasing a pipeline releases
	// every endpoint created in it.
	Release(ctx context.Context, h Handle) error
	// Close tears the engine connection down.
	Close() error
}
