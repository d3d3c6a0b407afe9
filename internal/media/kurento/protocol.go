package kurento

import (
	"encoding/json"
	"fmt"
)

const jsonrpcVersion = "2.0"

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// message is any frame read from the media server: a response to one of our
// requests, or a server-initiated notification such as onEvent.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the media server.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("kurento: rpc error %d: %s", e.Code, e.Message)
}

type result struct {
	Value     json.RawMessage `json:"value,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

type createParams struct {
	Type              string                 `json:"type"`
	ConstructorParams map[string]interface{} `json:"constructorParams"`
	Properties        map[string]interface{} `json:"properties"`
	SessionID         string                 `json:"sessionId,omitempty"`
}

type invokeParams struct {
	Object          string                 `json:"object"`
	Operation       string                 `json:"operation"`
	OperationParams map[string]interface{} `json:"operationParams,omitempty"`
	SessionID       string                 `json:"sessionId,omitempty"`
}

type subscribeParams struct {
	Type      string `json:"type"`
	Object    string `json:"object"`
	SessionID string `json:"sessionId,omitempty"`
}

type releaseParams struct {
	Object    string `json:"object"`
	SessionID string `json:"sessionId,omitempty"`
}

type pingParams struct {
	Interval int `json:"interval"`
}

// iceCandidate is the media server's IceCandidate complex type.
type iceCandidate struct {
	Module        string  `json:"__module__,omitempty"`
	Type          string  `json:"__type__,omitempty"`
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

type eventParams struct {
	Value struct {
		Object string `json:"object"`
		Type   string `json:"type"`
		Data   struct {
			Source    string       `json:"source"`
			Type      string       `json:"type"`
			Candidate iceCandidate `json:"candidate"`
		} `json:"data"`
	} `json:"value"`
}
