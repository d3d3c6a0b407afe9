package signaling

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/domain"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/dto"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media/mediatest"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/metrics"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository/mocks"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/rtc"
)

type fakeConn struct {
	id   string
	mu   sync.Mutex
	sent []interface{}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) messages() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.sent...)
}

func (c *fakeConn) last() interface{} {
	msgs := c.messages()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

type fixture struct {
	engine    *mediatest.Engine
	dir       *rtc.Directory
	router    *Router
	metrics   *metrics.Metrics
	publisher *mocks.Publisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	engine := mediatest.New()
	dir := rtc.NewDirectory(engine, log)
	m := metrics.NewNop()
	pub := new(mocks.Publisher)
	return &fixture{
		engine:    engine,
		dir:       dir,
		router:    NewRouter(dir, pub, m, log),
		metrics:   m,
		publisher: pub,
	}
}

func (f *fixture) open(id, displayName string) (*Session, *fakeConn) {
	conn := &fakeConn{id: id}
	return f.router.Open(conn, domain.Principal{UserID: 1, DisplayName: displayName}), conn
}

func raw(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func joinMsg(t *testing.T, room, name string) []byte {
	return raw(t, map[string]interface{}{"id": MsgJoinRoom, "room": room, "name": name})
}

func TestRouter_AliceThenBob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, aliceConn := f.open("c-alice", "alice")
	bob, bobConn := f.open("c-bob", "bob")

	require.NoError(t, alice.Handle(ctx, joinMsg(t, "roomX", "alice")))
	assert.Equal(t, []interface{}{rtc.ExistingParticipants{ID: rtc.MsgExistingParticipants, Data: []string{}}}, aliceConn.messages())

	require.NoError(t, bob.Handle(ctx, joinMsg(t, "roomX", "bob")))
	assert.Equal(t, rtc.NewParticipantArrived{ID: rtc.MsgNewParticipantArrived, Name: "bob"}, aliceConn.last())
	assert.Equal(t, rtc.ExistingParticipants{ID: rtc.MsgExistingParticipants, Data: []string{"alice"}}, bobConn.last())

	assert.Equal(t, StateJoined, bob.State())
	assert.Equal(t, 1, f.dir.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Rooms))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Participants))
}

func TestRouter_DisplayNameDefaultsToPrincipal(t *testing.T) {
	f := newFixture(t)
	s, _ := f.open("c1", "carol")

	require.NoError(t, s.Handle(context.Background(), joinMsg(t, "roomX", "")))
	assert.Equal(t, "carol", s.Participant().Name)
}

func TestRouter_DuplicateNameReportsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, _ := f.open("c1", "alice")
	second, secondConn := f.open("c2", "alice")

	require.NoError(t, first.Handle(ctx, joinMsg(t, "roomX", "alice")))
	err := second.Handle(ctx, joinMsg(t, "roomX", "alice"))
	assert.ErrorIs(t, err, rtc.ErrConflict)

	msg, ok := secondConn.last().(ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, CodeConflict, msg.Code)
	assert.Equal(t, StateUnjoined, second.State())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Errors.WithLabelValues(CodeConflict)))
}

func TestRouter_OfferIsAnsweredAndMirrored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.open("c-alice", "alice")
	bob, bobConn := f.open("c-bob", "bob")
	require.NoError(t, alice.Handle(ctx, joinMsg(t, "roomX", "alice")))
	require.NoError(t, bob.Handle(ctx, joinMsg(t, "roomX", "bob")))

	f.publisher.On("Publish", mock.Anything, "room/roomX/rtc/offer", dto.RTCAnswer{
		Type:        dto.TypeRTCAnswer,
		Room:        "roomX",
		Participant: "bob",
		Sender:      "alice",
		SDPAnswer:   "answer:sdp-1",
	}).Return(nil).Once()

	err := bob.Handle(ctx, raw(t, map[string]interface{}{"id": MsgReceiveVideoFrom, "sender": "alice", "sdpOffer": "sdp-1"}))
	require.NoError(t, err)
	assert.Equal(t, ReceiveVideoAnswer{ID: MsgReceiveVideoAnswer, Name: "alice", SDPAnswer: "answer:sdp-1"}, bobConn.last())
	f.publisher.AssertExpectations(t)

	incoming, ok := bob.Participant().Resource.Incoming("alice")
	require.True(t, ok)
	assert.Equal(t, []media.Handle{alice.Participant().Resource.Outgoing()}, f.engine.Sources(incoming))
}

func TestRouter_OfferToDepartedTargetIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.open("c-alice", "alice")
	bob, bobConn := f.open("c-bob", "bob")
	require.NoError(t, alice.Handle(ctx, joinMsg(t, "roomX", "alice")))
	require.NoError(t, bob.Handle(ctx, joinMsg(t, "roomX", "bob")))
	require.NoError(t, alice.Handle(ctx, raw(t, map[string]string{"id": MsgLeaveRoom})))

	err := bob.Handle(ctx, raw(t, map[string]interface{}{"id": MsgReceiveVideoFrom, "sender": "alice", "sdpOffer": "sdp"}))
	assert.ErrorIs(t, err, rtc.ErrNotFound)

	msg, ok := bobConn.last().(ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, msg.Code)

	room, ok := f.dir.Get("roomX")
	require.True(t, ok)
	assert.Equal(t, 1, room.Len())
	assert.Equal(t, StateJoined, bob.State())
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_IceCandidateReachesEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.open("c-alice", "alice")
	require.NoError(t, alice.Handle(ctx, joinMsg(t, "roomX", "alice")))

	err := alice.Handle(ctx, raw(t, map[string]interface{}{
		"id":        MsgOnIceCandidate,
		"name":      "alice",
		"candidate": map[string]interface{}{"candidate": "candidate:1", "sdpMid": "0", "sdpMLineIndex": 0},
	}))
	require.NoError(t, err)

	got := f.engine.Candidates(alice.Participant().Resource.Outgoing())
	require.Len(t, got, 1)
	assert.Equal(t, "candidate:1", got[0].Candidate)
}

func TestRouter_MessagesBeforeJoinAreBadRequests(t *testing.T) {
	f := newFixture(t)
	s, conn := f.open("c1", "alice")

	err := s.Handle(context.Background(), raw(t, map[string]interface{}{"id": MsgReceiveVideoFrom, "sender": "bob", "sdpOffer": "x"}))
	require.Error(t, err)
	msg, ok := conn.last().(ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, CodeBadRequest, msg.Code)

	err = s.Handle(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.Equal(t, CodeBadRequest, conn.last().(ErrorMessage).Code)

	err = s.Handle(context.Background(), raw(t, map[string]string{"id": "dance"}))
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Messages.WithLabelValues("unknown")))
}

func TestRouter_EngineFailureOnJoinLeavesNoRoom(t *testing.T) {
	f := newFixture(t)
	s, conn := f.open("c1", "alice")
	f.engine.FailOn("CreateEndpoint", nil)

	err := s.Handle(context.Background(), joinMsg(t, "roomX", "alice"))
	assert.ErrorIs(t, err, rtc.ErrEngineFailure)
	assert.Equal(t, CodeEngineFailure, conn.last().(ErrorMessage).Code)
	assert.Zero(t, f.dir.Len())
	assert.Zero(t, f.engine.Pipelines())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.EngineFailures.WithLabelValues(MsgJoinRoom)))
}

func TestRouter_LeaveThenCloseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.open("c1", "alice")
	require.NoError(t, s.Handle(ctx, joinMsg(t, "roomX", "alice")))

	require.NoError(t, s.Handle(ctx, raw(t, map[string]string{"id": MsgLeaveRoom})))
	assert.Equal(t, StateLeft, s.State())
	s.Close(ctx)
	s.Close(ctx)

	assert.Equal(t, StateClosed, s.State())
	assert.Zero(t, f.dir.Len())
	assert.Zero(t, f.engine.Pipelines())
	assert.Zero(t, f.engine.Endpoints())
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.Participants))
}

func TestRouter_CloseWithoutLeaveNotifiesRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.open("c-alice", "alice")
	bob, bobConn := f.open("c-bob", "bob")
	require.NoError(t, bob.Handle(ctx, joinMsg(t, "roomX", "bob")))
	require.NoError(t, alice.Handle(ctx, joinMsg(t, "roomX", "alice")))

	alice.Close(ctx)

	assert.Equal(t, rtc.ParticipantLeft{ID: rtc.MsgParticipantLeft, Name: "alice"}, bobConn.last())
	room, ok := f.dir.Get("roomX")
	require.True(t, ok)
	assert.Equal(t, 1, room.Len())
}

func TestRouter_JoinSkipsClosedRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := f.dir.GetOrCreate("roomX")
	p, _, err := stale.Join(ctx, "ghost", &fakeConn{id: "c-ghost"})
	require.NoError(t, err)
	emptied, err := stale.Leave(ctx, p)
	require.NoError(t, err)
	require.True(t, emptied)

	s, _ := f.open("c1", "alice")
	require.NoError(t, s.Handle(ctx, joinMsg(t, "roomX", "alice")))

	room, ok := f.dir.Get("roomX")
	require.True(t, ok)
	assert.NotSame(t, stale, room)
	assert.Equal(t, 1, room.Len())
}

func TestRouter_RejoinAfterLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.open("c1", "alice")

	require.NoError(t, s.Handle(ctx, joinMsg(t, "roomX", "alice")))
	require.NoError(t, s.Handle(ctx, raw(t, map[string]string{"id": MsgLeaveRoom})))
	require.NoError(t, s.Handle(ctx, joinMsg(t, "roomY", "alice")))

	assert.Equal(t, []string{"roomY"}, f.dir.Rooms())
	assert.Equal(t, "roomY", s.Participant().RoomName)
}
