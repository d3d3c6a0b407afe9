package kurento

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mocamp-Official/Mocamp-BackEnd/internal/media"
)

// fakeServer answers the subset of the media server protocol the engine uses.
type fakeServer struct {
	mu       sync.Mutex
	objects  int
	methods  []string
	released []string
	failOp   string
}

func (f *fakeServer) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			var req struct {
				ID     uint64          `json:"id"`
				Method string          `json:"method"`
				Params json.RawMessage `json:"params"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			var params map[string]interface{}
			_ = json.Unmarshal(req.Params, &params)

			f.mu.Lock()
			f.methods = append(f.methods, req.Method)
			f.mu.Unlock()

			resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
			var event map[string]interface{}
			switch req.Method {
			case "create":
				f.mu.Lock()
				f.objects++
				id := fmt.Sprintf("obj-%d", f.objects)
				f.mu.Unlock()
				resp["result"] = map[string]interface{}{"value": id, "sessionId": "sess-1"}
			case "invoke":
				op, _ := params["operation"].(string)
				if op == f.failOp {
					resp["error"] = map[string]interface{}{"code": 40101, "message": "operation failed"}
					break
				}
				switch op {
				case "processOffer":
					offer := params["operationParams"].(map[string]interface{})["offer"].(string)
					resp["result"] = map[string]interface{}{"value": "answer:" + offer, "sessionId": "sess-1"}
				case "gatherCandidates":
					resp["result"] = map[string]interface{}{"sessionId": "sess-1"}
					event = map[string]interface{}{
						"jsonrpc": "2.0",
						"method":  "onEvent",
						"params": map[string]interface{}{
							"value": map[string]interface{}{
								"object": params["object"],
								"type":   "IceCandidateFound",
								"data": map[string]interface{}{
									"source": params["object"],
									"type":   "IceCandidateFound",
									"candidate": map[string]interface{}{
										"__module__":    "kurento",
										"__type__":      "IceCandidate",
										"candidate":     "candidate:1 1 UDP 2013266431 10.0.0.1 40000 typ host",
										"sdpMid":        "0",
										"sdpMLineIndex": 0,
									},
								},
							},
						},
					}
				default:
					resp["result"] = map[string]interface{}{"sessionId": "sess-1"}
				}
			case "subscribe":
				resp["result"] = map[string]interface{}{"value": "sub-1", "sessionId": "sess-1"}
			case "release":
				f.mu.Lock()
				f.released = append(f.released, params["object"].(string))
				f.mu.Unlock()
				resp["result"] = map[string]interface{}{"sessionId": "sess-1"}
			case "ping":
				resp["result"] = map[string]interface{}{"value": "pong"}
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
			if event != nil {
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			}
		}
	}
}

func dialFake(t *testing.T, f *fakeServer) *Engine {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	e, err := Dial(context.Background(), url, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_NegotiationAndCandidateEvents(t *testing.T) {
	f := &fakeServer{}
	e := dialFake(t, f)
	ctx := context.Background()

	pipeline, err := e.CreatePipeline(ctx)
	require.NoError(t, err)
	assert.Equal(t, media.Handle("obj-1"), pipeline)

	got := make(chan media.Candidate, 1)
	ep, err := e.CreateEndpoint(ctx, pipeline, func(c media.Candidate) { got <- c })
	require.NoError(t, err)
	assert.Equal(t, media.Handle("obj-2"), ep)

	answer, err := e.ProcessOffer(ctx, ep, "v=0")
	require.NoError(t, err)
	assert.Equal(t, "answer:v=0", answer)

	select {
	case c := <-got:
		assert.Contains(t, c.Candidate, "typ host")
		require.NotNil(t, c.SDPMid)
		assert.Equal(t, "0", *c.SDPMid)
	case <-time.After(2 * time.Second):
		t.Fatal("no candidate event delivered")
	}
}

func TestEngine_RPCErrorSurfaces(t *testing.T) {
	f := &fakeServer{failOp: "connect"}
	e := dialFake(t, f)
	ctx := context.Background()

	p, err := e.CreatePipeline(ctx)
	require.NoError(t, err)
	a, err := e.CreateEndpoint(ctx, p, nil)
	require.NoError(t, err)
	b, err := e.CreateEndpoint(ctx, p, nil)
	require.NoError(t, err)

	err = e.Connect(ctx, a, b)
	require.Error(t, err)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 40101, rpcErr.Code)
}

func TestEngine_ReleaseDropsListeners(t *testing.T) {
	f := &fakeServer{}
	e := dialFake(t, f)
	ctx := context.Background()

	p, err := e.CreatePipeline(ctx)
	require.NoError(t, err)
	_, err = e.CreateEndpoint(ctx, p, func(media.Candidate) {})
	require.NoError(t, err)

	require.NoError(t, e.Release(ctx, p))

	e.mu.Lock()
	assert.Empty(t, e.listeners)
	e.mu.Unlock()
	f.mu.Lock()
	assert.Equal(t, []string{"obj-1"}, f.released)
	f.mu.Unlock()
}

func TestEngine_CallsFailAfterClose(t *testing.T) {
	f := &fakeServer{}
	e := dialFake(t, f)

	require.NoError(t, e.Close())
	_, err := e.CreatePipeline(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
