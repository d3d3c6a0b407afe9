package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
)

// pipelineRef is the room pipeline shared by every MediaResource in the room.
// The last reference to drop releases it.
type pipelineRef struct {
	engine   media.Engine
	handle   media.Handle
	refs     atomic.Int32
	released atomic.Bool
}

func newPipelineRef(engine media.Engine, h media.Handle) *pipelineRef {
	return &pipelineRef{engine: engine, handle: h}
}

func (p *pipelineRef) acquire() { p.refs.Inc() }

// drop returns true when this call released the pipeline.
func (p *pipelineRef) drop(ctx context.Context, log *logrus.Entry) bool {
	if p.refs.Dec() > 0 {
		return false
	}
	return p.release(ctx, log)
}

func (p *pipelineRef) release(ctx context.Context, log *logrus.Entry) bool {
	if !p.released.CAS(false, true) {
		return false
	}
	if err := p.engine.Release(ctx, p.handle); err != nil {
		log.WithField("pipeline", p.handle).WithError(err).Warn("Failed to release pipeline")
	}
	return true
}

// SenderCandidateFunc receives a candidate gathered by the endpoint that
// exchanges media with sender.
type SenderCandidateFunc func(sender string, c media.Candidate)

// MediaResource owns one participant's media endpoints: the outgoing endpoint
// that publishes the participant's media and one incoming endpoint per remote
// participant it receives from.
type MediaResource struct {
	engine      media.Engine
	pipeline    *pipelineRef
	owner       string
	outgoing    media.Handle
	onCandidate SenderCandidateFunc
	log         *logrus.Entry

	mu       sync.Mutex
	incoming map[string]media.Handle
	released atomic.Bool
}

// newMediaResource takes a pipeline reference and creates the outgoing
// endpoint. An engine failure here is fatal for the join and not retried.
func newMediaResource(ctx context.Context, engine media.Engine, pipeline *pipelineRef, owner string, onCandidate SenderCandidateFunc, log *logrus.Entry) (*MediaResource, error) {
	r := &MediaResource{
		engine:      engine,
		pipeline:    pipeline,
		owner:       owner,
		onCandidate: onCandidate,
		incoming:    make(map[string]media.Handle),
		log:         log.WithField("participant", owner),
	}

	pipeline.acquire()
	h, err := engine.CreateEndpoint(ctx, pipeline.handle, r.candidateFor(owner))
	if err != nil {
		pipeline.drop(ctx, r.log)
		return nil, fmt.Errorf("%w: create outgoing endpoint: %w", ErrEngineFailure, err)
	}
	r.outgoing = h
	return r, nil
}

func (r *MediaResource) candidateFor(sender string) media.CandidateFunc {
	return func(c media.Candidate) {
		if r.released.Load() || r.onCandidate == nil {
			return
		}
		r.onCandidate(sender, c)
	}
}

func (r *MediaResource) Owner() string          { return r.owner }
func (r *MediaResource) Outgoing() media.Handle { return r.outgoing }
func (r *MediaResource) Released() bool         { return r.released.Load() }

// Incoming returns the endpoint receiving from sender, if one exists.
func (r *MediaResource) Incoming(sender string) (media.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.incoming[sender]
	return h, ok
}

// endpointFor returns the endpoint that exchanges media with sender: the
// outgoing endpoint for the owner, otherwise an incoming endpoint created on
// first use and connected from the sender's outgoing endpoint.
func (r *MediaResource) endpointFor(ctx context.Context, sender *Participant) (media.Handle, error) {
	if sender.Name == r.owner {
		if r.released.Load() {
			return "", ErrNotFound
		}
		return r.outgoing, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released.Load() {
		return "", ErrNotFound
	}
	if h, ok := r.incoming[sender.Name]; ok {
		return h, nil
	}
	if sender.Resource == nil || sender.Resource.Released() {
		return "", fmt.Errorf("%w: participant %q has left", ErrNotFound, sender.Name)
	}

	h, err := r.engine.CreateEndpoint(ctx, r.pipeline.handle, r.candidateFor(sender.Name))
	if err != nil {
		return "", fmt.Errorf("%w: create incoming endpoint: %w", ErrEngineFailure, err)
	}
	if err := r.engine.Connect(ctx, sender.Resource.Outgoing(), h); err != nil {
		if relErr := r.engine.Release(ctx, h); relErr != nil {
			r.log.WithError(relErr).Warn("Failed to release unconnected endpoint")
		}
		return "", fmt.Errorf("%w: connect from %q: %w", ErrEngineFailure, sender.Name, err)
	}
	r.incoming[sender.Name] = h
	return h, nil
}

// ReceiveFrom negotiates media with sender and returns the SDP answer.
func (r *MediaResource) ReceiveFrom(ctx context.Context, sender *Participant, sdpOffer string) (string, error) {
	h, err := r.endpointFor(ctx, sender)
	if err != nil {
		return "", err
	}
	answer, err := r.engine.ProcessOffer(ctx, h, sdpOffer)
	if err != nil {
		return "", fmt.Errorf("%w: process offer: %w", ErrEngineFailure, err)
	}
	return answer, nil
}

// AddCandidate hands a remote candidate to the endpoint exchanging media with
// sender, creating it when the candidate arrives ahead of the offer.
func (r *MediaResource) AddCandidate(ctx context.Context, sender *Participant, c media.Candidate) error {
	h, err := r.endpointFor(ctx, sender)
	if err != nil {
		return err
	}
	if err := r.engine.AddIceCandidate(ctx, h, c); err != nil {
		return fmt.Errorf("%w: add candidate: %w", ErrEngineFailure, err)
	}
	return nil
}

// CancelFrom releases the incoming endpoint for a participant that left.
func (r *MediaResource) CancelFrom(ctx context.Context, sender string) {
	r.mu.Lock()
	h, ok := r.incoming[sender]
	delete(r.incoming, sender)
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := r.engine.Release(ctx, h); err != nil {
		r.log.WithFields(logrus.Fields{"sender": sender, "endpoint": h}).WithError(err).Warn("Failed to release incoming endpoint")
	}
}

// Release tears down incoming endpoints, then the outgoing endpoint, then the
// pipeline reference. Only the first call does anything, and engine errors are
// logged so that sibling teardown always proceeds.
func (r *MediaResource) Release(ctx context.Context) {
	if !r.released.CAS(false, true) {
		return
	}

	r.mu.Lock()
	incoming := r.incoming
	r.incoming = make(map[string]media.Handle)
	r.mu.Unlock()

	for sender, h := range incoming {
		if err := r.engine.Release(ctx, h); err != nil {
			r.log.WithFields(logrus.Fields{"sender": sender, "endpoint": h}).WithError(err).Warn("Failed to release incoming endpoint")
		}
	}
	if err := r.engine.Release(ctx, r.outgoing); err != nil {
		r.log.WithField("endpoint", r.outgoing).WithError(err).Warn("Failed to release outgoing endpoint")
	}
	if r.pipeline.drop(ctx, r.log) {
		r.log.WithField("pipeline", r.pipeline.handle).Debug("Pipeline released with last resource")
	}
}
