// Package engine defines the narrow contract between the chat orchestrator
// and the remote generative model.
package engine

import (
	"context"
	"strings"

	"github.com/go-go-golems/devassist/pkg/history"
	"github.com/go-go-golems/devassist/pkg/turns"
)

// Engine sends a prompt, with the session's replayed history as context, to
// the remote model.
type Engine interface {
	Send(ctx context.Context, replay []history.Entry, prompt string) (*Reply, error)
}

// Reply is the model's answer. Parts keep the order the model produced them.
type Reply struct {
	Parts []turns.Payload
	// TotalTokens is the provider-reported total, 0 when unavailable.
	TotalTokens int
}

// First returns the first content part, or nil for an empty reply.
func (r *Reply) First() turns.Payload {
	if r == nil || len(r.Parts) == 0 {
		return nil
	}
	return r.Parts[0]
}

// Text concatenates the reply's text parts.
func (r *Reply) Text() string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Parts {
		if s, ok := turns.Text(p); ok {
			sb.WriteString(s)
		}
	}
	return sb.String()
}

// FunctionCalls returns the function call parts of the reply.
func (r *Reply) FunctionCalls() []turns.FunctionCallPayload {
	if r == nil {
		return nil
	}
	var out []turns.FunctionCallPayload
	for _, p := range r.Parts {
		if fc, ok := p.(turns.FunctionCallPayload); ok {
			out = append(out, fc)
		}
	}
	return out
}

// Func adapts a function to Engine.
type Func func(ctx context.Context, replay []history.Entry, prompt string) (*Reply, error)

func (f Func) Send(ctx context.Context, replay []history.Entry, prompt string) (*Reply, error) {
	return f(ctx, replay, prompt)
}
