package tools

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ParameterType is the JSON type of a tool parameter.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeInteger ParameterType = "integer"
	TypeNumber  ParameterType = "number"
	TypeBoolean ParameterType = "boolean"
)

type Parameter struct {
	Name        string
	Type        ParameterType
	Description string
	Required    bool
}

// Definition describes a tool to the model.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Func executes a tool with the arguments the model supplied.
type Func func(ctx context.Context, args map[string]any) (any, *ToolError)

type registeredTool struct {
	def Definition
	fn  Func
}

// Registry holds tools by name, preserving registration order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]registeredTool
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]registeredTool{}}
}

func (r *Registry) Register(def Definition, fn Func) error {
	if r == nil {
		return errors.New("tools: registry is nil")
	}
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return errors.New("tools: tool name is empty")
	}
	if fn == nil {
		return errors.Errorf("tools: tool %s has no function", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return errors.Errorf("tools: tool %s already registered", name)
	}
	def.Name = name
	r.tools[name] = registeredTool{def: def, fn: fn}
	r.order = append(r.order, name)
	return nil
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Execute runs the named tool and returns the response object sent back to
// the model: {"result": ...} on success, {"error": {...}} otherwise.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) map[string]any {
	if r == nil {
		return errorResponse(&ToolError{Kind: KindUnknownTool, Message: "no tools are registered"})
	}
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return errorResponse(&ToolError{Kind: KindUnknownTool, Message: "unknown tool " + name})
	}
	if args == nil {
		args = map[string]any{}
	}
	v, terr := t.fn(ctx, args)
	if terr != nil {
		log.Warn().Str("tool", name).Str("kind", string(terr.Kind)).Err(terr).Msg("tool call failed")
		return errorResponse(terr)
	}
	return map[string]any{"result": v}
}

func errorResponse(terr *ToolError) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"kind":    string(terr.Kind),
			"message": terr.Message,
		},
	}
}
