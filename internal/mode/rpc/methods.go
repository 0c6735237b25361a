// ABOUTME: Router and handler implementations for the completion RPC methods
// ABOUTME: complete, views, cancel, invalidate, reset and get_status backed by the engine

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mauromedda/pi-complete-go/internal/completion"
	"github.com/mauromedda/pi-complete-go/internal/server"
	"github.com/mauromedda/pi-complete-go/pkg/ai"
)

// HandlerFunc processes one request and returns its Response.
type HandlerFunc func(ctx context.Context, id string, params json.RawMessage) Response

// Router dispatches RPC requests to registered handlers by method name.
type Router struct {
	handlers map[string]HandlerFunc
	async    map[string]bool
}

// NewRouter creates a Router with an empty handler registry.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc), async: make(map[string]bool)}
}

// Register associates a method name with a handler that runs inline, in
// request order.
func (r *Router) Register(method string, handler HandlerFunc) {
	r.handlers[method] = handler
}

// RegisterAsync registers a handler that runs in its own goroutine so later
// requests (cancel, a superseding complete) are read while it works.
func (r *Router) RegisterAsync(method string, handler HandlerFunc) {
	r.handlers[method] = handler
	r.async[method] = true
}

// IsAsync reports whether method was registered with RegisterAsync.
func (r *Router) IsAsync(method string) bool {
	return r.async[method]
}

// Handle dispatches a request to the registered handler, or returns
// a method-not-found error if no handler is registered.
func (r *Router) Handle(ctx context.Context, req Request) Response {
	h, ok := r.handlers[req.Method]
	if !ok {
		return Response{ID: req.ID, Error: NewMethodNotFoundError(req.Method)}
	}
	resp := h(ctx, req.ID, req.Params)
	resp.ID = req.ID
	return resp
}

// Service binds the RPC methods to an engine.
type Service struct {
	Engine   *completion.Engine
	Marker   string
	Endpoint string
	Model    string
	// Supervisor is reported by get_status when set.
	Supervisor *server.Supervisor
	// Notify sends partial results; nil disables them.
	Notify func(method string, params any)
}

// Register installs every method on r.
func (s *Service) Register(r *Router) {
	r.RegisterAsync(MethodComplete, s.handleComplete)
	r.Register(MethodViews, s.handleViews)
	r.Register(MethodCancel, s.handleCancel)
	r.Register(MethodInvalidate, s.handleInvalidate)
	r.Register(MethodReset, s.handleReset)
	r.Register(MethodGetStatus, s.handleGetStatus)
}

func decode(params json.RawMessage, v any) *Error {
	if len(params) == 0 {
		return NewInvalidParamsError("missing params")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return NewInvalidParamsError(err.Error())
	}
	return nil
}

var errUnknownRole = errors.New("unknown role")

func (s *Service) messages(in []MessageParam) ([]ai.Message, error) {
	out := make([]ai.Message, len(in))
	for i, m := range in {
		switch m.Role {
		case ai.RoleSystem, ai.RoleUser, ai.RoleAssistant:
		default:
			return nil, fmt.Errorf("messages[%d]: %w %q", i, errUnknownRole, m.Role)
		}
		out[i] = ai.SplitCheckpoints(m.Role, m.Content, s.Marker)
	}
	return out, nil
}

func (s *Service) handleComplete(ctx context.Context, id string, params json.RawMessage) Response {
	var p CompleteParams
	if e := decode(params, &p); e != nil {
		return Response{Error: e}
	}
	if p.Document.ID == "" {
		return Response{Error: NewInvalidParamsError("document.id is required")}
	}

	co := completion.CompleteOptions{MaxLines: p.MaxLines}
	if p.Partials && s.Notify != nil {
		co.OnPartial = func(text string) bool {
			s.Notify(NotifyPartial, PartialParams{RequestID: id, Text: text})
			return true
		}
	}

	var res ai.Result
	if len(p.Messages) > 0 {
		msgs, err := s.messages(p.Messages)
		if err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		docChars := p.DocumentChars
		if docChars == 0 {
			docChars = len(p.Document.Text)
		}
		res = s.Engine.CompleteMessages(ctx, p.Document.ID, msgs, docChars, co)
	} else {
		res = s.Engine.Complete(ctx, p.Document, nil, co)
	}

	out := CompleteResult{Text: res.Text, Reason: res.Reason, Overflow: res.Overflow}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return Response{Result: out}
}

func (s *Service) handleViews(_ context.Context, _ string, params json.RawMessage) Response {
	var p CompleteParams
	if e := decode(params, &p); e != nil {
		return Response{Error: e}
	}
	v := s.Engine.Views(p.Document)
	return Response{Result: ViewsResult{
		Head:              v.Budget.Head,
		Centered:          v.Budget.Centered,
		CenteredStartLine: v.Budget.CenteredStartLine,
		Window:            v.Window,
		Truncated:         v.Budget.Truncated,
		Exceeded:          v.Budget.Exceeded,
		Limit:             v.Budget.Limit,
		Bounds:            v.Bounds,
	}}
}

func (s *Service) handleCancel(context.Context, string, json.RawMessage) Response {
	return Response{Result: CancelResult{Cancelled: s.Engine.Cancel()}}
}

func (s *Service) handleInvalidate(_ context.Context, _ string, params json.RawMessage) Response {
	var p DocumentParams
	if e := decode(params, &p); e != nil {
		return Response{Error: e}
	}
	if p.DocumentID == "" {
		return Response{Error: NewInvalidParamsError("documentId is required")}
	}
	s.Engine.Invalidate(p.DocumentID)
	return Response{Result: OKResult{OK: true}}
}

func (s *Service) handleReset(context.Context, string, json.RawMessage) Response {
	s.Engine.Reset()
	return Response{Result: OKResult{OK: true}}
}

func (s *Service) handleGetStatus(context.Context, string, json.RawMessage) Response {
	res := StatusResult{
		Endpoint: s.Endpoint,
		Model:    s.Model,
		Engine:   s.Engine.Status(),
	}
	if s.Supervisor != nil {
		sv := s.Supervisor.Status()
		res.Server = &sv
	}
	return Response{Result: res}
}
