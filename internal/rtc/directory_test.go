package rtc

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media/mediatest"
)

func TestDirectory_ConcurrentGetOrCreateYieldsOneRoom(t *testing.T) {
	dir := NewDirectory(mediatest.New(), testLogger())

	const n = 64
	rooms := make([]*Room, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i] = dir.GetOrCreate("fresh")
		}(i)
	}
	wg.Wait()

	for _, r := range rooms[1:] {
		assert.Same(t, rooms[0], r)
	}
	assert.Equal(t, 1, dir.Len())
}

func TestDirectory_RemoveIsIdempotentAndExact(t *testing.T) {
	engine := mediatest.New()
	dir := NewDirectory(engine, testLogger())
	ctx := context.Background()

	old := dir.GetOrCreate("study")
	alice, _, err := old.Join(ctx, "alice", newFakeConn("c1"))
	require.NoError(t, err)
	emptied, err := old.Leave(ctx, alice)
	require.NoError(t, err)
	require.True(t, emptied)

	assert.True(t, dir.Remove(ctx, old))
	assert.False(t, dir.Remove(ctx, old))

	successor := dir.GetOrCreate("study")
	assert.NotSame(t, old, successor)
	assert.False(t, dir.Remove(ctx, old), "a stale room must not evict its successor")
	got, ok := dir.Get("study")
	assert.True(t, ok)
	assert.Same(t, successor, got)
}

func TestDirectory_RemoveReleasesOccupiedRoom(t *testing.T) {
	engine := mediatest.New()
	dir := NewDirectory(engine, testLogger())
	ctx := context.Background()

	room := dir.GetOrCreate("study")
	_, _, err := room.Join(ctx, "alice", newFakeConn("c1"))
	require.NoError(t, err)

	assert.True(t, dir.Remove(ctx, room))
	assert.True(t, room.Closed())
	assert.Zero(t, engine.Pipelines())
	assert.Zero(t, engine.Endpoints())
}

func TestDirectory_CloseTearsDownEveryRoom(t *testing.T) {
	engine := mediatest.New()
	dir := NewDirectory(engine, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		room := dir.GetOrCreate(fmt.Sprintf("room%d", i))
		_, _, err := room.Join(ctx, "alice", newFakeConn(fmt.Sprintf("c%d", i)))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, dir.ParticipantCount())

	require.NoError(t, dir.Close(ctx))
	assert.Zero(t, dir.Len())
	assert.Zero(t, engine.Pipelines())
	assert.Zero(t, engine.Endpoints())
}

func TestDirectory_CandidateObserver(t *testing.T) {
	engine := mediatest.New()
	var seen []string
	dir := NewDirectory(engine, testLogger(), WithCandidateObserver(func(room, owner, sender string, c media.Candidate) {
		seen = append(seen, room+"/"+owner+"/"+sender+"/"+c.Candidate)
	}))

	conn := newFakeConn("c1")
	alice, _, err := dir.GetOrCreate("study").Join(context.Background(), "alice", conn)
	require.NoError(t, err)

	require.True(t, engine.EmitCandidate(alice.Resource.Outgoing(), media.Candidate{Candidate: "cand"}))
	assert.Equal(t, []string{"study/alice/alice/cand"}, seen)
	assert.Contains(t, conn.messages(), IceCandidate{ID: MsgIceCandidate, Name: "alice", Candidate: media.Candidate{Candidate: "cand"}})
}
