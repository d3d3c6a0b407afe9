// Package pion is an in-process media engine built on pion/webrtc. A pipeline
// groups the peer connections of one room; an endpoint is one peer connection.
// Connecting a source to a sink forwards every RTP track received on the source
// out through the sink.
package pion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
)

// Config tunes the ICE side of the engine.
type Config struct {
	NAT1To1IP  string
	UDPPortMin uint16
	UDPPortMax uint16
	STUNURLs   []string
}

type pipeline struct {
	endpoints map[media.Handle]*endpoint
}

type endpoint struct {
	handle   media.Handle
	pipeline media.Handle
	pc       *webrtc.PeerConnection

	mu      sync.Mutex
	pending []webrtc.ICECandidateInit
	tracks  []*webrtc.TrackLocalStaticRTP
	sinks   map[media.Handle]*endpoint
}

// Engine implements media.Engine on pion/webrtc.
type Engine struct {
	api    *webrtc.API
	config webrtc.Configuration
	log    *logrus.Entry

	mu        sync.Mutex
	pipelines map[media.Handle]*pipeline
	endpoints map[media.Handle]*endpoint
}

// NewEngine builds the shared webrtc.API with default codecs, the default
// interceptors and a periodic PLI so forwarded video recovers quickly.
func NewEngine(cfg Config, log *logrus.Logger) (*Engine, error) {
	entry := log.WithField("component", "pion_engine")

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("pion: register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("pion: create pli interceptor: %w", err)
	}
	registry.Add(pli)
	if err := webrtc.RegisterDefaultInterceptors(m, registry); err != nil {
		return nil, fmt.Errorf("pion: register interceptors: %w", err)
	}

	se := webrtc.SettingEngine{LoggerFactory: newLoggerFactory(entry)}
	if cfg.UDPPortMin != 0 && cfg.UDPPortMax != 0 {
		if err := se.SetEphemeralUDPPortRange(cfg.UDPPortMin, cfg.UDPPortMax); err != nil {
			return nil, fmt.Errorf("pion: set udp port range: %w", err)
		}
	}
	if cfg.NAT1To1IP != "" {
		se.SetNAT1To1IPs([]string{cfg.NAT1To1IP}, webrtc.ICECandidateTypeHost)
	}

	var iceServers []webrtc.ICEServer
	if len(cfg.STUNURLs) > 0 {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: cfg.STUNURLs})
	}

	return &Engine{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(m),
			webrtc.WithInterceptorRegistry(registry),
			webrtc.WithSettingEngine(se),
		),
		config:    webrtc.Configuration{ICEServers: iceServers},
		log:       entry,
		pipelines: make(map[media.Handle]*pipeline),
		endpoints: make(map[media.Handle]*endpoint),
	}, nil
}

func newHandle(kind string) media.Handle {
	return media.Handle(kind + "-" + uuid.NewString())
}

func (e *Engine) CreatePipeline(ctx context.Context) (media.Handle, error) {
	h := newHandle("pipeline")
	e.mu.Lock()
	e.pipelines[h] = &pipeline{endpoints: make(map[media.Handle]*endpoint)}
	e.mu.Unlock()
	e.log.WithField("pipeline", h).Debug("Pipeline created")
	return h, nil
}

func (e *Engine) CreateEndpoint(ctx context.Context, pipelineHandle media.Handle, onCandidate media.CandidateFunc) (media.Handle, error) {
	e.mu.Lock()
	_, ok := e.pipelines[pipelineHandle]
	e.mu.Unlock()
	if !ok {
		return "", media.ErrUnknownHandle
	}

	pc, err := e.api.NewPeerConnection(e.config)
	if err != nil {
		return "", fmt.Errorf("pion: new peer connection: %w", err)
	}

	ep := &endpoint{
		handle:   newHandle("endpoint"),
		pipeline: pipelineHandle,
		pc:       pc,
		sinks:    make(map[media.Handle]*endpoint),
	}
	logCtx := e.log.WithFields(logrus.Fields{"pipeline": pipelineHandle, "endpoint": ep.handle})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || onCandidate == nil {
			return
		}
		init := c.ToJSON()
		onCandidate(media.Candidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
	})
	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		e.forwardTrack(ep, remote, logCtx)
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logCtx.WithField("state", state.String()).Debug("Peer connection state changed")
	})

	e.mu.Lock()
	p, ok := e.pipelines[pipelineHandle]
	if !ok {
		e.mu.Unlock()
		_ = pc.Close()
		return "", media.ErrUnknownHandle
	}
	p.endpoints[ep.handle] = ep
	e.endpoints[ep.handle] = ep
	e.mu.Unlock()

	logCtx.Debug("Endpoint created")
	return ep.handle, nil
}

// forwardTrack copies RTP from a received track into a local track that every
// current and future sink of ep sends out.
func (e *Engine) forwardTrack(ep *endpoint, remote *webrtc.TrackRemote, logCtx *logrus.Entry) {
	local, err := webrtc.NewTrackLocalStaticRTP(remote.Codec().RTPCodecCapability, remote.ID(), remote.StreamID())
	if err != nil {
		logCtx.WithError(err).Warn("Failed to create forwarding track")
		return
	}

	ep.mu.Lock()
	ep.tracks = append(ep.tracks, local)
	sinks := make([]*endpoint, 0, len(ep.sinks))
	for _, s := range ep.sinks {
		sinks = append(sinks, s)
	}
	ep.mu.Unlock()

	for _, sink := range sinks {
		addTrack(sink, local, logCtx)
	}
	logCtx.WithFields(logrus.Fields{"track_id": remote.ID(), "kind": remote.Kind().String()}).Info("Forwarding remote track")

	for {
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logCtx.WithError(err).Debug("Remote track read ended")
			}
			return
		}
		if err := local.WriteRTP(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			logCtx.WithError(err).Debug("Forwarding track write failed")
			return
		}
	}
}

// addTrack attaches a forwarding track to sink and drains its RTCP so the
// interceptors keep running.
func addTrack(sink *endpoint, track *webrtc.TrackLocalStaticRTP, logCtx *logrus.Entry) {
	sender, err := sink.pc.AddTrack(track)
	if err != nil {
		logCtx.WithError(err).WithField("sink", sink.handle).Warn("Failed to add forwarding track to sink")
		return
	}
	go func() {
		buf := make([]byte, 1500)
		for {
			if _, _, err := sender.Read(buf); err != nil {
				return
			}
		}
	}()
}

func (e *Engine) lookup(h media.Handle) (*endpoint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ep, ok := e.endpoints[h]
	if !ok {
		return nil, media.ErrUnknownHandle
	}
	return ep, nil
}

func (e *Engine) Connect(ctx context.Context, source, sink media.Handle) error {
	src, err := e.lookup(source)
	if err != nil {
		return err
	}
	dst, err := e.lookup(sink)
	if err != nil {
		return err
	}

	src.mu.Lock()
	src.sinks[dst.handle] = dst
	tracks := append([]*webrtc.TrackLocalStaticRTP(nil), src.tracks...)
	src.mu.Unlock()

	logCtx := e.log.WithFields(logrus.Fields{"source": source, "sink": sink})
	for _, t := range tracks {
		addTrack(dst, t, logCtx)
	}
	return nil
}

func (e *Engine) ProcessOffer(ctx context.Context, h media.Handle, sdp string) (string, error) {
	ep, err := e.lookup(h)
	if err != nil {
		return "", err
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := ep.pc.SetRemoteDescription(offer); err != nil {
		return "", fmt.Errorf("pion: set remote description: %w", err)
	}

	ep.mu.Lock()
	pending := ep.pending
	ep.pending = nil
	ep.mu.Unlock()
	for _, c := range pending {
		if err := ep.pc.AddICECandidate(c); err != nil {
			e.log.WithField("endpoint", h).WithError(err).Warn("Failed to apply buffered candidate")
		}
	}

	answer, err := ep.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("pion: create answer: %w", err)
	}
	if err := ep.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("pion: set local description: %w", err)
	}
	return answer.SDP, nil
}

func (e *Engine) AddIceCandidate(ctx context.Context, h media.Handle, c media.Candidate) error {
	ep, err := e.lookup(h)
	if err != nil {
		return err
	}
	init := webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}

	ep.mu.Lock()
	if ep.pc.RemoteDescription() == nil {
		ep.pending = append(ep.pending, init)
		ep.mu.Unlock()
		return nil
	}
	ep.mu.Unlock()

	if err := ep.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("pion: add ice candidate: %w", err)
	}
	return nil
}

func (e *Engine) Release(ctx context.Context, h media.Handle) error {
	e.mu.Lock()
	var victims []*endpoint
	if p, ok := e.pipelines[h]; ok {
		for eh, ep := range p.endpoints {
			victims = append(victims, ep)
			delete(e.endpoints, eh)
		}
		delete(e.pipelines, h)
	} else if ep, ok := e.endpoints[h]; ok {
		victims = append(victims, ep)
		delete(e.endpoints, h)
		if p, ok := e.pipelines[ep.pipeline]; ok {
			delete(p.endpoints, h)
		}
	} else {
		e.mu.Unlock()
		return media.ErrUnknownHandle
	}
	others := make([]*endpoint, 0, len(e.endpoints))
	for _, ep := range e.endpoints {
		others = append(others, ep)
	}
	e.mu.Unlock()

	for _, v := range victims {
		for _, o := range others {
			o.mu.Lock()
			delete(o.sinks, v.handle)
			o.mu.Unlock()
		}
	}

	var firstErr error
	for _, v := range victims {
		if err := v.pc.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("pion: close peer connection %s: %w", v.handle, err)
		}
	}
	e.log.WithFields(logrus.Fields{"handle": h, "endpoints": len(victims)}).Debug("Released")
	return firstErr
}

// Close releases every pipeline still alive.
func (e *Engine) Close() error {
	e.mu.Lock()
	handles := make([]media.Handle, 0, len(e.pipelines))
	for h := range e.pipelines {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := e.Release(context.Background(), h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ media.Engine = (*Engine)(nil)
