// Package signaling turns client signaling messages into room and media
// operations for one connection at a time.
package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/dto"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/metrics"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/rtc"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/topic"
)

const (
	// closed rooms met during join are retried this many times.
	maxJoinAttempts = 3
	mirrorTimeout   = 2 * time.Second
)

// Router owns the room directory and opens one Session per connection.
type Router struct {
	dir       *rtc.Directory
	publisher repository.Publisher
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

// NewRouter creates a Router. publisher may be nil, in which case answers are
// not mirrored onto rtc topics.
func NewRouter(dir *rtc.Directory, publisher repository.Publisher, m *metrics.Metrics, log *logrus.Logger) *Router {
	if dir == nil {
		panic("room directory cannot be nil for Router")
	}
	if m == nil {
		panic("metrics cannot be nil for Router")
	}
	return &Router{
		dir:       dir,
		publisher: publisher,
		metrics:   m,
		log:       log.WithField("component", "signaling_router"),
	}
}

func (rt *Router) Directory() *rtc.Directory { return rt.dir }

// Open starts the signaling state machine for an authenticated connection.
func (rt *Router) Open(conn rtc.Conn, principal domain.Principal) *Session {
	return &Session{
		router:    rt,
		conn:      conn,
		principal: principal,
		state:     StateUnjoined,
		log: rt.log.WithFields(logrus.Fields{
			"conn_id": conn.ID(),
			"user_id": principal.UserID,
		}),
	}
}

func (rt *Router) updateGauges() {
	rt.metrics.Rooms.Set(float64(rt.dir.Len()))
	rt.metrics.Participants.Set(float64(rt.dir.ParticipantCount()))
}

// State of one signaling connection.
type State int

const (
	StateUnjoined State = iota
	StateJoined
	StateLeft
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateLeft:
		return "left"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is the per-connection signaling state. Messages from one connection
// are handled one at a time; sessions never block each other.
type Session struct {
	router    *Router
	conn      rtc.Conn
	principal domain.Principal
	log       *logrus.Entry

	mu          sync.Mutex
	state       State
	room        *rtc.Room
	participant *rtc.Participant
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Participant returns the joined participant, or nil.
func (s *Session) Participant() *rtc.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

// Handle dispatches one raw inbound message. Failures are reported to this
// connection as error messages and also returned.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return s.fail("decode", fmt.Errorf("%w: malformed message: %v", errBadRequest, err))
	}
	s.router.metrics.Messages.WithLabelValues(messageLabel(msg.ID)).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.ID {
	case MsgJoinRoom:
		return s.join(ctx, msg)
	case MsgReceiveVideoFrom:
		return s.receiveVideoFrom(ctx, msg)
	case MsgOnIceCandidate:
		return s.onIceCandidate(ctx, msg)
	case MsgLeaveRoom:
		s.leave(ctx, StateLeft)
		return nil
	default:
		return s.fail(msg.ID, fmt.Errorf("%w: unknown message id %q", errBadRequest, msg.ID))
	}
}

func messageLabel(id string) string {
	switch id {
	case MsgJoinRoom, MsgReceiveVideoFrom, MsgOnIceCandidate, MsgLeaveRoom:
		return id
	}
	return "unknown"
}

// Close is the transport-closed path. It is safe to call after an explicit
// leave and safe to call twice.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.leave(ctx, StateClosed)
}

func (s *Session) fail(op string, err error) error {
	code := codeFor(err)
	s.router.metrics.Errors.WithLabelValues(code).Inc()
	if code == CodeEngineFailure {
		s.router.metrics.EngineFailures.WithLabelValues(op).Inc()
	}
	s.log.WithFields(logrus.Fields{"op": op, "code": code}).WithError(err).Warn("Signaling request failed")
	if sendErr := s.conn.Send(ErrorMessage{ID: MsgError, Code: code, Message: err.Error()}); sendErr != nil {
		s.log.WithError(sendErr).Debug("Could not report error to connection")
	}
	return err
}

func (s *Session) join(ctx context.Context, msg inbound) error {
	if s.state == StateJoined {
		return s.fail(MsgJoinRoom, fmt.Errorf("%w: already joined %q", errInvalidState, s.room.Name()))
	}
	if s.state == StateClosed {
		return fmt.Errorf("%w: connection closed", rtc.ErrTransportClosed)
	}
	if msg.Room == "" {
		return s.fail(MsgJoinRoom, fmt.Errorf("%w: room is required", errBadRequest))
	}
	name := msg.Name
	if name == "" {
		name = s.principal.DisplayName
	}
	if name == "" {
		return s.fail(MsgJoinRoom, fmt.Errorf("%w: display name is required", errBadRequest))
	}

	dir := s.router.dir
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		room := dir.GetOrCreate(msg.Room)
		p, _, err := room.Join(ctx, name, s.conn)
		if errors.Is(err, rtc.ErrRoomClosed) {
			dir.Remove(ctx, room)
			continue
		}
		if err != nil {
			if room.CloseIfEmpty(ctx) {
				dir.Remove(ctx, room)
			}
			return s.fail(MsgJoinRoom, err)
		}

		s.room = room
		s.participant = p
		s.state = StateJoined
		s.log = s.log.WithFields(logrus.Fields{"room_name": room.Name(), "participant": name})
		s.router.updateGauges()
		s.log.Info("Joined room")
		return nil
	}
	return s.fail(MsgJoinRoom, fmt.Errorf("%w: room %q kept closing", rtc.ErrConflict, msg.Room))
}

func (s *Session) target(op, name string) (*rtc.Participant, error) {
	if s.state != StateJoined {
		return nil, s.fail(op, fmt.Errorf("%w: join a room first", errInvalidState))
	}
	if name == "" {
		return nil, s.fail(op, fmt.Errorf("%w: target name is required", errBadRequest))
	}
	target, ok := s.room.Participant(name)
	if !ok {
		return nil, s.fail(op, fmt.Errorf("%w: participant %q is not in room %q", rtc.ErrNotFound, name, s.room.Name()))
	}
	return target, nil
}

func (s *Session) receiveVideoFrom(ctx context.Context, msg inbound) error {
	target, err := s.target(MsgReceiveVideoFrom, msg.Sender)
	if err != nil {
		return err
	}
	answer, err := s.participant.Resource.ReceiveFrom(ctx, target, msg.SDPOffer)
	if err != nil {
		return s.fail(MsgReceiveVideoFrom, err)
	}

	if err := s.conn.Send(ReceiveVideoAnswer{ID: MsgReceiveVideoAnswer, Name: target.Name, SDPAnswer: answer}); err != nil {
		s.log.WithError(err).Warn("Failed to deliver answer")
	}
	s.mirrorAnswer(ctx, target.Name, answer)
	return nil
}

func (s *Session) mirrorAnswer(ctx context.Context, sender, answer string) {
	if s.router.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()
	err := s.router.publisher.Publish(ctx, topic.RoomOffer(s.room.Name()), dto.RTCAnswer{
		Type:        dto.TypeRTCAnswer,
		Room:        s.room.Name(),
		Participant: s.participant.Name,
		Sender:      sender,
		SDPAnswer:   answer,
	})
	if err != nil {
		s.log.WithError(err).Debug("Answer mirror publish failed")
	}
}

func (s *Session) onIceCandidate(ctx context.Context, msg inbound) error {
	if msg.Candidate == nil {
		return s.fail(MsgOnIceCandidate, fmt.Errorf("%w: candidate is required", errBadRequest))
	}
	target, err := s.target(MsgOnIceCandidate, msg.Name)
	if err != nil {
		return err
	}
	if err := s.participant.Resource.AddCandidate(ctx, target, *msg.Candidate); err != nil {
		return s.fail(MsgOnIceCandidate, err)
	}
	return nil
}

// leave runs with s.mu held. Leaving twice is a no-op because the session has
// already dropped its participant.
func (s *Session) leave(ctx context.Context, next State) {
	room, p := s.room, s.participant
	s.room, s.participant = nil, nil
	s.state = next
	if p == nil {
		return
	}

	emptied, err := room.Leave(ctx, p)
	if err != nil {
		s.log.WithError(err).Debug("Participant was already gone from room")
	}
	if emptied {
		s.router.dir.Remove(ctx, room)
	}
	s.router.updateGauges()
	s.log.WithField("state", next.String()).Info("Left room")
}
