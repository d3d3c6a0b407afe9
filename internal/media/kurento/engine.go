// Package kurento drives an external Kurento Media Server over its JSON-RPC 2.0
// websocket protocol. Pipelines and endpoints are server-side MediaPipeline and
// WebRtcEndpoint objects; handles are their object ids.
package kurento

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	callTimeout  = 15 * time.Second
)

// ErrClosed is returned for calls made after the connection to the media
// server has gone away.
var ErrClosed = errors.New("kurento: connection closed")

// Engine implements media.Engine against a Kurento Media Server.
type Engine struct {
	conn *websocket.Conn
	log  *logrus.Entry

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu        sync.Mutex
	sessionID string
	pending   map[uint64]chan message
	listeners map[string]media.CandidateFunc
	// endpoints by pipeline, so that releasing a pipeline drops its listeners.
	children map[string][]string

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the media server at url and starts the read and keepalive
// loops.
func Dial(ctx context.Context, url string, log *logrus.Logger) (*Engine, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("kurento: dial %s: %w", url, err)
	}
	e := &Engine{
		conn:      conn,
		log:       log.WithFields(logrus.Fields{"component": "kurento_engine", "url": url}),
		pending:   make(map[uint64]chan message),
		listeners: make(map[string]media.CandidateFunc),
		children:  make(map[string][]string),
		done:      make(chan struct{}),
	}
	go e.readLoop()
	go e.keepalive()
	e.log.Info("Connected to media server")
	return e, nil
}

func (e *Engine) readLoop() {
	defer e.shutdown()
	for {
		var msg message
		if err := e.conn.ReadJSON(&msg); err != nil {
			select {
			case <-e.done:
			default:
				e.log.WithError(err).Warn("Media server connection read failed")
			}
			return
		}

		if msg.ID != nil && msg.Method == "" {
			e.mu.Lock()
			ch, ok := e.pending[*msg.ID]
			delete(e.pending, *msg.ID)
			e.mu.Unlock()
			if ok {
				ch <- msg
			}
			continue
		}
		if msg.Method == "onEvent" {
			e.dispatchEvent(msg.Params)
		}
	}
}

func (e *Engine) dispatchEvent(raw json.RawMessage) {
	var ev eventParams
	if err := json.Unmarshal(raw, &ev); err != nil {
		e.log.WithError(err).Warn("Malformed media server event")
		return
	}
	if ev.Value.Type != "IceCandidateFound" {
		return
	}
	source := ev.Value.Data.Source
	if source == "" {
		source = ev.Value.Object
	}

	e.mu.Lock()
	cb := e.listeners[source]
	e.mu.Unlock()
	if cb == nil {
		return
	}
	c := ev.Value.Data.Candidate
	cb(media.Candidate{Candidate: c.Candidate, SDPMid: c.SDPMid, SDPMLineIndex: c.SDPMLineIndex})
}

func (e *Engine) keepalive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			_, err := e.call(ctx, "ping", pingParams{Interval: int(2 * pingInterval / time.Millisecond)})
			cancel()
			if err != nil {
				e.log.WithError(err).Warn("Media server ping failed")
			}
		}
	}
}

func (e *Engine) shutdown() {
	e.closeOnce.Do(func() {
		close(e.done)
		_ = e.conn.Close()
	})
	e.mu.Lock()
	for id, ch := range e.pending {
		close(ch)
		delete(e.pending, id)
	}
	e.mu.Unlock()
}

func (e *Engine) call(ctx context.Context, method string, params interface{}) (result, error) {
	select {
	case <-e.done:
		return result{}, ErrClosed
	default:
	}

	id := e.nextID.Inc()
	ch := make(chan message, 1)
	e.mu.Lock()
	e.pending[id] = ch
	e.mu.Unlock()

	e.writeMu.Lock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := e.conn.WriteJSON(request{JSONRPC: jsonrpcVersion, ID: id, Method: method, Params: params})
	e.writeMu.Unlock()
	if err != nil {
		e.mu.Lock()
		delete(e.pending, id)
		e.mu.Unlock()
		return result{}, fmt.Errorf("kurento: write %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		e.mu.Lock()
		delete(e.pending, id)
		e.mu.Unlock()
		return result{}, ctx.Err()
	case <-e.done:
		return result{}, ErrClosed
	case msg, ok := <-ch:
		if !ok {
			return result{}, ErrClosed
		}
		if msg.Error != nil {
			return result{}, msg.Error
		}
		var res result
		if len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, &res); err != nil {
				return result{}, fmt.Errorf("kurento: decode %s result: %w", method, err)
			}
		}
		if res.SessionID != "" {
			e.mu.Lock()
			e.sessionID = res.SessionID
			e.mu.Unlock()
		}
		return res, nil
	}
}

func (e *Engine) session() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

func (e *Engine) create(ctx context.Context, typ string, constructor map[string]interface{}) (string, error) {
	if constructor == nil {
		constructor = map[string]interface{}{}
	}
	res, err := e.call(ctx, "create", createParams{
		Type:              typ,
		ConstructorParams: constructor,
		Properties:        map[string]interface{}{},
		SessionID:         e.session(),
	})
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(res.Value, &id); err != nil {
		return "", fmt.Errorf("kurento: decode %s id: %w", typ, err)
	}
	return id, nil
}

func (e *Engine) invoke(ctx context.Context, object, operation string, params map[string]interface{}) (result, error) {
	return e.call(ctx, "invoke", invokeParams{
		Object:          object,
		Operation:       operation,
		OperationParams: params,
		SessionID:       e.session(),
	})
}

func (e *Engine) CreatePipeline(ctx context.Context) (media.Handle, error) {
	id, err := e.create(ctx, "MediaPipeline", nil)
	if err != nil {
		return "", err
	}
	e.log.WithField("pipeline", id).Debug("Pipeline created")
	return media.Handle(id), nil
}

func (e *Engine) CreateEndpoint(ctx context.Context, pipeline media.Handle, onCandidate media.CandidateFunc) (media.Handle, error) {
	id, err := e.create(ctx, "WebRtcEndpoint", map[string]interface{}{"mediaPipeline": string(pipeline)})
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if onCandidate != nil {
		e.listeners[id] = onCandidate
	}
	e.children[string(pipeline)] = append(e.children[string(pipeline)], id)
	e.mu.Unlock()

	if _, err := e.call(ctx, "subscribe", subscribeParams{
		Type:      "IceCandidateFound",
		Object:    id,
		SessionID: e.session(),
	}); err != nil {
		_ = e.Release(ctx, media.Handle(id))
		return "", fmt.Errorf("kurento: subscribe IceCandidateFound: %w", err)
	}
	return media.Handle(id), nil
}

func (e *Engine) Connect(ctx context.Context, source, sink media.Handle) error {
	_, err := e.invoke(ctx, string(source), "connect", map[string]interface{}{"sink": string(sink)})
	return err
}

func (e *Engine) ProcessOffer(ctx context.Context, endpoint media.Handle, sdp string) (string, error) {
	res, err := e.invoke(ctx, string(endpoint), "processOffer", map[string]interface{}{"offer": sdp})
	if err != nil {
		return "", err
	}
	var answer string
	if err := json.Unmarshal(res.Value, &answer); err != nil {
		return "", fmt.Errorf("kurento: decode answer: %w", err)
	}
	if _, err := e.invoke(ctx, string(endpoint), "gatherCandidates", nil); err != nil {
		return "", fmt.Errorf("kurento: gather candidates: %w", err)
	}
	return answer, nil
}

func (e *Engine) AddIceCandidate(ctx context.Context, endpoint media.Handle, c media.Candidate) error {
	_, err := e.invoke(ctx, string(endpoint), "addIceCandidate", map[string]interface{}{
		"candidate": iceCandidate{
			Module:        "kurento",
			Type:          "IceCandidate",
			Candidate:     c.Candidate,
			SDPMid:        c.SDPMid,
			SDPMLineIndex: c.SDPMLineIndex,
		},
	})
	return err
}

func (e *Engine) Release(ctx context.Context, h media.Handle) error {
	id := string(h)
	e.mu.Lock()
	delete(e.listeners, id)
	for _, child := range e.children[id] {
		delete(e.listeners, child)
	}
	delete(e.children, id)
	e.mu.Unlock()

	_, err := e.call(ctx, "release", releaseParams{Object: id, SessionID: e.session()})
	return err
}

// Close closes the connection; pending calls fail with ErrClosed.
func (e *Engine) Close() error {
	e.writeMu.Lock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = e.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	e.writeMu.Unlock()
	e.shutdown()
	return nil
}

var _ media.Engine = (*Engine)(nil)
