package server

import (
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"
)

// JSON-RPC 2.0 error codes. DeniedCode is returned when the gate blocks a
// tools/call, RateLimitedCode when the connection exceeds its call rate.
const (
	ParseErrorCode     = -32700
	InvalidRequestCode = -32600
	MethodNotFoundCode = -32601
	InvalidParamsCode  = -32602
	InternalErrorCode  = -32603
	DeniedCode         = -32001
	RateLimitedCode    = -32002
)

// RPCError is the error member of a response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// deniedData tells the caller what it may call instead.
type deniedData struct {
	Tool           string   `json:"tool"`
	Reason         string   `json:"reason"`
	AvailableTools []string `json:"available_tools"`
}

func errorResponse(id json.RawMessage, code int, msg string, data any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg, Data: data}}
}

func deniedError(id json.RawMessage, tool, reason string, available []string) *Response {
	return errorResponse(id, DeniedCode, "ARBITER_DENIED: "+reason,
		deniedData{Tool: tool, Reason: reason, AvailableTools: available})
}

func invalidRequest(id json.RawMessage, reason string) *Response {
	return errorResponse(id, InvalidRequestCode, "Invalid Request: "+reason, nil)
}

func rateLimited(id json.RawMessage, limit rate.Limit) *Response {
	return errorResponse(id, RateLimitedCode, fmt.Sprintf("ARBITER_RATE_LIMITED: at most %g tool calls per second", float64(limit)), nil)
}
