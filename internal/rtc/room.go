package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
)

// CandidateObserver sees every candidate the server gathers for a participant.
type CandidateObserver func(room, owner, sender string, c media.Candidate)

// Room is the set of participants in one named room and their shared pipeline.
// Join and Leave are serialized per room; nothing here blocks other rooms.
type Room struct {
	name     string
	engine   media.Engine
	observer CandidateObserver
	log      *logrus.Entry

	mu       sync.Mutex
	registry *SessionRegistry
	pipeline *pipelineRef
	closed   bool
}

func newRoom(name string, engine media.Engine, observer CandidateObserver, log *logrus.Entry) *Room {
	return &Room{
		name:     name,
		engine:   engine,
		observer: observer,
		log:      log.WithField("room_name", name),
		registry: NewSessionRegistry(),
	}
}

func (r *Room) Name() string { return r.name }

// Join admits a new participant, creating the room pipeline on the first join.
// Existing participants are told best-effort; the joiner receives the roster
// of names that were present before it.
func (r *Room) Join(ctx context.Context, name string, conn Conn) (*Participant, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, nil, ErrRoomClosed
	}
	if _, taken := r.registry.LookupByName(name); taken {
		return nil, nil, fmt.Errorf("%w: name %q already in room %q", ErrConflict, name, r.name)
	}
	if _, dup := r.registry.LookupByConnection(conn.ID()); dup {
		return nil, nil, fmt.Errorf("%w: connection already in room %q", ErrConflict, r.name)
	}

	if r.pipeline == nil {
		h, err := r.engine.CreatePipeline(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: create pipeline: %w", ErrEngineFailure, err)
		}
		r.pipeline = newPipelineRef(r.engine, h)
		r.log.WithField("pipeline", h).Info("Room pipeline created")
	}

	res, err := newMediaResource(ctx, r.engine, r.pipeline, name, r.candidateSink(name, conn), r.log)
	if err != nil {
		if r.registry.Len() == 0 {
			r.pipeline = nil
		}
		return nil, nil, err
	}

	p := &Participant{Name: name, RoomName: r.name, Conn: conn, Resource: res}
	existing := r.registry.All()
	if err := r.registry.Register(p); err != nil {
		res.Release(ctx)
		if r.registry.Len() == 0 {
			r.pipeline = nil
		}
		return nil, nil, err
	}

	names := make([]string, 0, len(existing))
	for _, other := range existing {
		names = append(names, other.Name)
		if err := other.Conn.Send(NewParticipantArrived{ID: MsgNewParticipantArrived, Name: name}); err != nil {
			r.log.WithFields(logrus.Fields{"participant": other.Name, "conn_id": other.Conn.ID()}).
				WithError(err).Warn("Failed to notify participant of arrival")
		}
	}
	if err := conn.Send(ExistingParticipants{ID: MsgExistingParticipants, Data: names}); err != nil {
		r.log.WithField("participant", name).WithError(err).Warn("Failed to send roster to joiner")
	}

	r.log.WithFields(logrus.Fields{"participant": name, "conn_id": conn.ID(), "count": len(names) + 1}).Info("Participant joined")
	return p, names, nil
}

func (r *Room) candidateSink(owner string, conn Conn) SenderCandidateFunc {
	return func(sender string, c media.Candidate) {
		if err := conn.Send(IceCandidate{ID: MsgIceCandidate, Name: sender, Candidate: c}); err != nil {
			r.log.WithFields(logrus.Fields{"participant": owner, "sender": sender}).WithError(err).Debug("Dropped local candidate")
		}
		if r.observer != nil {
			r.observer(r.name, owner, sender, c)
		}
	}
}

// Leave removes p, tells the rest best-effort, and releases p's media. It
// reports whether the room is now empty; an emptied room is closed and its
// pipeline released before Leave returns.
func (r *Room) Leave(ctx context.Context, p *Participant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.registry.LookupByConnection(p.Conn.ID())
	if !ok || current != p {
		return false, fmt.Errorf("%w: %q is not in room %q", ErrNotFound, p.Name, r.name)
	}
	r.registry.Remove(p.Conn.ID())

	for _, other := range r.registry.All() {
		if err := other.Conn.Send(ParticipantLeft{ID: MsgParticipantLeft, Name: p.Name}); err != nil {
			r.log.WithFields(logrus.Fields{"participant": other.Name, "conn_id": other.Conn.ID()}).
				WithError(err).Warn("Failed to notify participant of departure")
		}
		other.Resource.CancelFrom(ctx, p.Name)
	}
	p.Resource.Release(ctx)

	logCtx := r.log.WithFields(logrus.Fields{"participant": p.Name, "conn_id": p.Conn.ID()})
	if r.registry.Len() > 0 {
		logCtx.Info("Participant left")
		return false, nil
	}

	r.closed = true
	if r.pipeline != nil {
		r.pipeline.release(ctx, r.log)
		r.pipeline = nil
	}
	logCtx.Info("Last participant left, room closed")
	return true, nil
}

// CloseIfEmpty closes a room that nobody is in, typically after a failed
// first join. It reports whether the room is closed.
func (r *Room) CloseIfEmpty(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return true
	}
	if r.registry.Len() > 0 {
		return false
	}
	r.closed = true
	if r.pipeline != nil {
		r.pipeline.release(ctx, r.log)
		r.pipeline = nil
	}
	return true
}

// close evicts everyone without notifications and releases the pipeline.
func (r *Room) close(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, p := range r.registry.All() {
		r.registry.Remove(p.Conn.ID())
		p.Resource.Release(ctx)
	}
	r.closed = true
	if r.pipeline != nil {
		r.pipeline.release(ctx, r.log)
		r.pipeline = nil
	}
}

func (r *Room) Participants() []*Participant { return r.registry.All() }

func (r *Room) Participant(name string) (*Participant, bool) {
	return r.registry.LookupByName(name)
}

func (r *Room) Len() int { return r.registry.Len() }

func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// HasPipeline reports whether the room currently holds a live pipeline.
func (r *Room) HasPipeline() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipeline != nil && !r.pipeline.released.Load()
}
