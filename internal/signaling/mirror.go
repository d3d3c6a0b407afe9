package signaling

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/dto"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/repository"
	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/topic"
)

// DefaultMirrorBuffer is the number of candidates waiting for publication
// before new ones are dropped.
const DefaultMirrorBuffer = 1024

// CandidateMirror copies server-gathered candidates onto the room's rtc/ice
// topic. Observe runs on the media engine's callback path, so it only queues;
// Run does the publishing.
type CandidateMirror struct {
	publisher repository.Publisher
	queue     chan dto.RTCIceCandidate
	dropped   *atomic.Uint64
	log       *logrus.Entry
}

func NewCandidateMirror(publisher repository.Publisher, buffer int, log *logrus.Logger) *CandidateMirror {
	if publisher == nil {
		panic("Publisher cannot be nil for CandidateMirror")
	}
	if buffer <= 0 {
		buffer = DefaultMirrorBuffer
	}
	return &CandidateMirror{
		publisher: publisher,
		queue:     make(chan dto.RTCIceCandidate, buffer),
		dropped:   atomic.NewUint64(0),
		log:       log.WithField("component", "candidate_mirror"),
	}
}

// Observe implements rtc.CandidateObserver. It never blocks; a full queue
// drops the candidate.
func (m *CandidateMirror) Observe(room, owner, sender string, c media.Candidate) {
	msg := dto.RTCIceCandidate{
		Type:        dto.TypeRTCIceCandidate,
		Room:        room,
		Participant: owner,
		Sender:      sender,
		Candidate:   c,
	}
	select {
	case m.queue <- msg:
	default:
		if n := m.dropped.Inc(); n == 1 || n%100 == 0 {
			m.log.WithFields(logrus.Fields{"room_name": room, "dropped_total": n}).Warn("Candidate mirror queue full, dropping")
		}
	}
}

// Dropped returns how many candidates were discarded on a full queue.
func (m *CandidateMirror) Dropped() uint64 {
	return m.dropped.Load()
}

// Run publishes queued candidates until ctx is cancelled.
func (m *CandidateMirror) Run(ctx context.Context) {
	m.log.Info("Candidate mirror started")
	defer m.log.Info("Candidate mirror stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			pubCtx, cancel := context.WithTimeout(ctx, mirrorTimeout)
			err := m.publisher.Publish(pubCtx, topic.RoomIce(msg.Room), msg)
			cancel()
			if err != nil {
				m.log.WithFields(logrus.Fields{"room_name": msg.Room, "participant": msg.Participant}).WithError(err).Debug("Candidate mirror publish failed")
			}
		}
	}
}
