// Package server exposes the tool registry to an orchestrator over
// newline-delimited JSON-RPC 2.0 on a reader/writer pair (normally stdio).
//
// A connection is one run: gate decisions see every verdict produced on the
// connection, in request order. Requests are handled one at a time.
//
// Methods: initialize, ping, tools/list, tools/call, arbiter/history.
// tools/list only returns tools the gate currently enables unless
// include_disabled is set; a tools/call for a disabled tool is answered with
// DeniedCode and the list of tools that are available instead.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/checker"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/engine"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/logging"
	otelobs "github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability/otel"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/version"
)

// ProtocolVersion reported by initialize.
const ProtocolVersion = "2024-11-05"

type Server struct {
	engine *engine.Engine

	callRate  rate.Limit
	callBurst int
}

// Option configures a Server.
type Option func(*Server)

// WithCallRate limits tools/call to perSecond per connection with the given
// burst. Calls over the limit are answered with RateLimitedCode and never
// reach the engine, so they leave no audit entry or history record.
func WithCallRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.callRate = rate.Limit(perSecond)
		s.callBurst = burst
	}
}

func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{engine: e, callRate: rate.Inf}
	for _, opt := range opts {
		opt(s)
	}
	if s.callBurst < 1 {
		s.callBurst = 1
	}
	return s
}

// Serve handles requests from r until EOF. Cancellation is checked between
// requests; a read in progress is not interrupted.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	return s.ServeRun(ctx, s.engine.NewRun(), r, w)
}

// ServeRun is Serve on an existing run.
func (s *Server) ServeRun(ctx context.Context, run *engine.Run, r io.Reader, w io.Writer) error {
	conn := NewConn(r, w)
	limiter := rate.NewLimiter(s.callRate, s.callBurst)
	ctx = observability.WithRunID(ctx, run.ID())
	log := logging.From(ctx)
	log.Event(ctx, "server.start", map[string]any{"protocol": ProtocolVersion})

	handled := 0
	defer func() {
		log.Event(ctx, "server.stop", map[string]any{"requests": handled})
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := conn.ReadRequest()
		var rpcErr *RPCError
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, ErrLineTooLong):
			log.Warn("server", "dropped oversize request line", "limit_bytes", MaxLineSize)
			if werr := conn.WriteResponse(invalidRequest(nil, err.Error())); werr != nil {
				return werr
			}
			continue
		case errors.As(err, &rpcErr):
			if werr := conn.WriteResponse(&Response{JSONRPC: "2.0", Error: rpcErr}); werr != nil {
				return werr
			}
			continue
		default:
			return fmt.Errorf("failed to read request: %w", err)
		}

		handled++
		resp := s.handle(ctx, run, limiter, req)
		if req.IsNotification() || resp == nil {
			continue
		}
		if err := conn.WriteResponse(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handle(ctx context.Context, run *engine.Run, limiter *rate.Limiter, req *Request) *Response {
	if err := ValidateID(req.ID); err != nil {
		return invalidRequest(nil, err.Error())
	}
	if req.JSONRPC != "2.0" {
		return invalidRequest(req.ID, `jsonrpc must be "2.0"`)
	}

	switch req.Method {
	case "initialize":
		return result(req.ID, initializeResult{
			ProtocolVersion: ProtocolVersion,
			ServerInfo:      serverInfo{Name: otelobs.ServiceName, Version: version.BuildVersion()},
			Capabilities:    map[string]any{"tools": map[string]any{"listChanged": true}},
		})
	case "ping":
		return result(req.ID, struct{}{})
	case "tools/list":
		return s.toolsList(run, req)
	case "tools/call":
		if !limiter.Allow() {
			logging.From(ctx).Event(ctx, "server.rate_limited", map[string]any{"method": req.Method})
			return rateLimited(req.ID, limiter.Limit())
		}
		return s.toolsCall(ctx, run, req)
	case "arbiter/history":
		return result(req.ID, historyResult{RunID: run.ID(), Records: run.History()})
	}

	if strings.HasPrefix(req.Method, "notifications/") {
		return nil
	}
	return errorResponse(req.ID, MethodNotFoundCode, "Method not found: "+req.Method, nil)
}

func result(id json.RawMessage, v any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: v}
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      serverInfo     `json:"serverInfo"`
	Capabilities    map[string]any `json:"capabilities"`
}

type historyResult struct {
	RunID   string `json:"run_id"`
	Records any    `json:"records"`
}

type listParams struct {
	IncludeDisabled bool `json:"include_disabled"`
}

type toolEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Enabled     bool            `json:"enabled"`
}

type listResult struct {
	Tools []toolEntry `json:"tools"`
}

// toolsList filters the registry down to the tools the gate enables.
func (s *Server) toolsList(run *engine.Run, req *Request) *Response {
	var p listParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, InvalidParamsCode, "Invalid params: "+err.Error(), nil)
		}
	}

	available := map[string]bool{}
	for _, name := range run.AvailableTools() {
		available[name] = true
	}

	out := listResult{Tools: []toolEntry{}}
	for _, t := range s.engine.Registry().Tools() {
		if !available[t.Name] && !p.IncludeDisabled {
			continue
		}
		out.Tools = append(out.Tools, toolEntry{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema(),
			Enabled:     available[t.Name],
		})
	}
	return result(req.ID, out)
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content           []content      `json:"content"`
	StructuredContent engine.Outcome `json:"structuredContent"`
	IsError           bool           `json:"isError"`
}

func (s *Server) toolsCall(ctx context.Context, run *engine.Run, req *Request) *Response {
	var p callParams
	if err := json.Unmarshal(req.Params, &p); err != nil || p.Name == "" {
		return errorResponse(req.ID, InvalidParamsCode, "Invalid params: tools/call requires a tool name", nil)
	}

	log := logging.From(ctx)
	out, err := run.Invoke(ctx, p.Name, p.Arguments)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrToolDisabled):
		d := run.Decide(p.Name)
		log.Event(ctx, "server.block", map[string]any{"tool": p.Name, "reason": d.Reason})
		return deniedError(req.ID, p.Name, d.Reason, run.AvailableTools())
	case errors.Is(err, engine.ErrUnknownTool), errors.Is(err, checker.ErrInvalidArgument):
		return errorResponse(req.ID, InvalidParamsCode, err.Error(), nil)
	default:
		return errorResponse(req.ID, InternalErrorCode, err.Error(), nil)
	}

	text, err := json.Marshal(out.Output)
	if err != nil {
		return errorResponse(req.ID, InternalErrorCode, "failed to encode tool output: "+err.Error(), nil)
	}
	return result(req.ID, callResult{
		Content:           []content{{Type: "text", Text: string(text)}},
		StructuredContent: out,
		IsError:           !out.Verdict.Passed,
	})
}
