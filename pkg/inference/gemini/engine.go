// Package gemini implements engine.Engine on top of the Gemini API.
package gemini

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/go-go-golems/devassist/pkg/history"
	"github.com/go-go-golems/devassist/pkg/inference/engine"
	"github.com/go-go-golems/devassist/pkg/tools"
)

const DefaultModel = "gemini-2.5-pro"

type Settings struct {
	APIKey string
	Model  string
	// AutoFunctionCalling executes requested tools and feeds their results
	// back until the model answers without a function call.
	AutoFunctionCalling bool
	// MaxToolIterations bounds the number of tool rounds per Send.
	MaxToolIterations int
	SystemInstruction string
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type Engine struct {
	settings Settings
	registry *tools.Registry
	generate generateFunc
}

var _ engine.Engine = &Engine{}

// New creates a Gemini API client. registry may be nil when no tools should
// be offered to the model.
func New(ctx context.Context, s Settings, registry *tools.Registry) (*Engine, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gemini: create client")
	}
	return newEngine(s, registry, client.Models.GenerateContent), nil
}

func newEngine(s Settings, registry *tools.Registry, generate generateFunc) *Engine {
	if strings.TrimSpace(s.Model) == "" {
		s.Model = DefaultModel
	}
	if s.MaxToolIterations < 0 {
		s.MaxToolIterations = 0
	}
	return &Engine{settings: s, registry: registry, generate: generate}
}

func (e *Engine) Model() string { return e.settings.Model }

func (e *Engine) Send(ctx context.Context, replay []history.Entry, prompt string) (*engine.Reply, error) {
	if e == nil || e.generate == nil {
		return nil, errors.New("gemini: engine is not initialized")
	}
	contents := toContents(replay)
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
	cfg := e.config()

	total := 0
	for round := 0; ; round++ {
		resp, err := e.generate(ctx, e.settings.Model, contents, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "gemini: generate content")
		}
		total += totalTokens(resp)
		content := firstCandidateContent(resp)
		reply := &engine.Reply{Parts: fromParts(content), TotalTokens: total}

		calls := functionCalls(content)
		if len(calls) == 0 || !e.canExecuteTools() || round >= e.settings.MaxToolIterations {
			if pending := reply.FunctionCalls(); len(pending) > 0 {
				log.Debug().
					Str("model", e.settings.Model).
					Str("function", pending[0].Name).
					Int("pending", len(pending)).
					Int("round", round).
					Msg("returning unexecuted function call")
			}
			return reply, nil
		}

		contents = append(contents, content)
		contents = append(contents, e.executeCalls(ctx, calls))
	}
}

func (e *Engine) canExecuteTools() bool {
	return e.settings.AutoFunctionCalling && e.registry != nil && e.registry.Len() > 0
}

func (e *Engine) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if decls := functionDeclarations(e.registry); len(decls) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	if s := strings.TrimSpace(e.settings.SystemInstruction); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	return cfg
}

func (e *Engine) executeCalls(ctx context.Context, calls []*genai.FunctionCall) *genai.Content {
	parts := make([]*genai.Part, 0, len(calls))
	for _, fc := range calls {
		log.Info().Str("model", e.settings.Model).Str("function", fc.Name).Msg("executing function call")
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       fc.ID,
				Name:     fc.Name,
				Response: e.registry.Execute(ctx, fc.Name, fc.Args),
			},
		})
	}
	return &genai.Content{Role: string(genai.RoleUser), Parts: parts}
}

func totalTokens(resp *genai.GenerateContentResponse) int {
	if resp == nil || resp.UsageMetadata == nil {
		return 0
	}
	return int(resp.UsageMetadata.TotalTokenCount)
}

func firstCandidateContent(resp *genai.GenerateContentResponse) *genai.Content {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	return resp.Candidates[0].Content
}

func functionCalls(c *genai.Content) []*genai.FunctionCall {
	if c == nil {
		return nil
	}
	var calls []*genai.FunctionCall
	for _, p := range c.Parts {
		if p != nil && p.FunctionCall != nil {
			calls = append(calls, p.FunctionCall)
		}
	}
	return calls
}
