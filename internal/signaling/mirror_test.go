package signaling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/dto"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
)

// stallingPublisher holds every Publish until release is closed.
type stallingPublisher struct {
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	topics []string
}

func newStallingPublisher() *stallingPublisher {
	return &stallingPublisher{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (p *stallingPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.started <- struct{}{}
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.mu.Lock()
	p.topics = append(p.topics, topic)
	p.mu.Unlock()
	return nil
}

func (p *stallingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func TestCandidateMirror_ObserveDoesNotWaitForPublisher(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	pub := newStallingPublisher()
	mirror := NewCandidateMirror(pub, 2, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	cand := media.Candidate{Candidate: "candidate:1 1 udp 1 10.0.0.1 5000 typ host"}
	mirror.Observe("study", "alice", "alice", cand)
	select {
	case <-pub.started:
	case <-time.After(time.Second):
		t.Fatal("first candidate never reached the publisher")
	}

	// The publisher is now stuck; the engine callback must still return at once.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			mirror.Observe("study", "alice", "bob", cand)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Observe blocked behind a stalled publisher")
	}
	assert.Equal(t, uint64(3), mirror.Dropped(), "two fit in the buffer, the rest are dropped")

	close(pub.release)
	require.Eventually(t, func() bool { return len(pub.published()) == 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"room/study/rtc/ice", "room/study/rtc/ice", "room/study/rtc/ice"}, pub.published())
}

func TestCandidateMirror_PublishesIceEvent(t *testing.T) {
	f := newFixture(t)
	mirror := NewCandidateMirror(f.publisher, 4, logrus.New())
	cand := media.Candidate{Candidate: "candidate:2 1 udp 1 10.0.0.2 5001 typ host"}

	published := make(chan struct{})
	f.publisher.On("Publish", mock.Anything, "room/study/rtc/ice", dto.RTCIceCandidate{
		Type:        dto.TypeRTCIceCandidate,
		Room:        "study",
		Participant: "alice",
		Sender:      "bob",
		Candidate:   cand,
	}).Run(func(mock.Arguments) { close(published) }).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)
	mirror.Observe("study", "alice", "bob", cand)

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("candidate was not published")
	}
	f.publisher.AssertExpectations(t)
	assert.Zero(t, mirror.Dropped())
}
