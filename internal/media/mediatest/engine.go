// Package mediatest provides an in-memory media.Engine for tests.
package mediatest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("mediatest: injected failure")

type endpoint struct {
	pipeline    media.Handle
	onCandidate media.CandidateFunc
	candidates  []media.Candidate
	sources     []media.Handle
}

// Engine is a deterministic fake. Handles are "pipeline-N" and "endpoint-N".
type Engine struct {
	mu        sync.Mutex
	seq       int
	pipelines map[media.Handle]bool
	endpoints map[media.Handle]*endpoint
	failures  map[string]error
	released  map[media.Handle]int
	closed    bool
}

// New creates an empty fake engine.
func New() *Engine {
	return &Engine{
		pipelines: make(map[media.Handle]bool),
		endpoints: make(map[media.Handle]*endpoint),
		failures:  make(map[string]error),
		released:  make(map[media.Handle]int),
	}
}

// FailOn makes every later call of op fail with err (ErrInjected when err is nil).
// op is one of "CreatePipeline", "CreateEndpoint", "Connect", "ProcessOffer",
// "AddIceCandidate" or "Release".
func (e *Engine) FailOn(op string, err error) {
	if err == nil {
		err = ErrInjected
	}
	e.mu.Lock()
	e.failures[op] = err
	e.mu.Unlock()
}

// Heal clears every injected failure.
func (e *Engine) Heal() {
	e.mu.Lock()
	e.failures = make(map[string]error)
	e.mu.Unlock()
}

func (e *Engine) fail(op string) error {
	return e.failures[op]
}

func (e *Engine) next(kind string) media.Handle {
	e.seq++
	return media.Handle(fmt.Sprintf("%s-%d", kind, e.seq))
}

func (e *Engine) CreatePipeline(ctx context.Context) (media.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.fail("CreatePipeline"); err != nil {
		return "", err
	}
	h := e.next("pipeline")
	e.pipelines[h] = true
	return h, nil
}

func (e *Engine) CreateEndpoint(ctx context.Context, pipeline media.Handle, onCandidate media.CandidateFunc) (media.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.fail("CreateEndpoint"); err != nil {
		return "", err
	}
	if !e.pipelines[pipeline] {
		return "", media.ErrUnknownHandle
	}
	h := e.next("endpoint")
	e.endpoints[h] = &endpoint{pipeline: pipeline, onCandidate: onCandidate}
	return h, nil
}

func (e *Engine) Connect(ctx context.Context, source, sink media.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.fail("Connect"); err != nil {
		return err
	}
	if _, ok := e.endpoints[source]; !ok {
		return media.ErrUnknownHandle
	}
	ep, ok := e.endpoints[sink]
	if !ok {
		return media.ErrUnknownHandle
	}
	ep.sources = append(ep.sources, source)
	return nil
}

// ProcessOffer answers with "answer:" + sdp.
func (e *Engine) ProcessOffer(ctx context.Context, h media.Handle, sdp string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.fail("ProcessOffer"); err != nil {
		return "", err
	}
	if _, ok := e.endpoints[h]; !ok {
		return "", media.ErrUnknownHandle
	}
	return "answer:" + sdp, nil
}

func (e *Engine) AddIceCandidate(ctx context.Context, h media.Handle, c media.Candidate) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.fail("AddIceCandidate"); err != nil {
		return err
	}
	ep, ok := e.endpoints[h]
	if !ok {
		return media.ErrUnknownHandle
	}
	ep.candidates = append(ep.candidates, c)
	return nil
}

func (e *Engine) Release(ctx context.Context, h media.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.released[h]++
	if err := e.fail("Release"); err != nil {
		return err
	}
	if e.pipelines[h] {
		delete(e.pipelines, h)
		for eh, ep := range e.endpoints {
			if ep.pipeline == h {
				delete(e.endpoints, eh)
			}
		}
		return nil
	}
	if _, ok := e.endpoints[h]; ok {
		delete(e.endpoints, h)
		return nil
	}
	return media.ErrUnknownHandle
}

func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return nil
}

// EmitCandidate simulates the engine gathering a local candidate on h.
func (e *Engine) EmitCandidate(h media.Handle, c media.Candidate) bool {
	e.mu.Lock()
	ep, ok := e.endpoints[h]
	e.mu.Unlock()
	if !ok || ep.onCandidate == nil {
		return false
	}
	ep.onCandidate(c)
	return true
}

// Pipelines returns the number of live pipelines.
func (e *Engine) Pipelines() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pipelines)
}

// Endpoints returns the number of live endpoints.
func (e *Engine) Endpoints() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.endpoints)
}

// Alive reports whether h is a live pipeline or endpoint.
func (e *Engine) Alive(h media.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pipelines[h] {
		return true
	}
	_, ok := e.endpoints[h]
	return ok
}

// ReleaseCount returns how many times Release was called for h.
func (e *Engine) ReleaseCount(h media.Handle) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released[h]
}

// Candidates returns the remote candidates added to h.
func (e *Engine) Candidates(h media.Handle) []media.Candidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	ep, ok := e.endpoints[h]
	if !ok {
		return nil
	}
	return append([]media.Candidate(nil), ep.candidates...)
}

// Sources returns the endpoints connected into sink.
func (e *Engine) Sources(sink media.Handle) []media.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	ep, ok := e.endpoints[sink]
	if !ok {
		return nil
	}
	return append([]media.Handle(nil), ep.sources...)
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

var _ media.Engine = (*Engine)(nil)
