package gemini

import (
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/go-go-golems/devassist/pkg/history"
	"github.com/go-go-golems/devassist/pkg/tools"
	"github.com/go-go-golems/devassist/pkg/turns"
)

// toContents maps replay entries to Gemini contents, one content per entry.
func toContents(replay []history.Entry) []*genai.Content {
	out := make([]*genai.Content, 0, len(replay)+1)
	for _, entry := range replay {
		var part *genai.Part
		switch p := entry.Payload.(type) {
		case turns.TextPayload:
			part = genai.NewPartFromText(p.Text)
		case turns.FunctionCallPayload:
			part = &genai.Part{FunctionCall: &genai.FunctionCall{Name: p.Name, Args: p.Args}}
		default:
			log.Warn().Str("role", string(entry.Role)).Msgf("skipping replay entry with payload %T", entry.Payload)
			continue
		}
		role := string(genai.RoleUser)
		if entry.Role == turns.RoleModel {
			role = string(genai.RoleModel)
		}
		out = append(out, &genai.Content{Role: role, Parts: []*genai.Part{part}})
	}
	return out
}

// fromParts keeps text and function call parts in order. Thought parts are
// dropped.
func fromParts(c *genai.Content) []turns.Payload {
	if c == nil {
		return nil
	}
	out := make([]turns.Payload, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch {
		case p == nil || p.Thought:
			continue
		case p.FunctionCall != nil:
			out = append(out, turns.FunctionCallPayload{
				Name: p.FunctionCall.Name,
				Args: normalizeArgs(p.FunctionCall.Args),
			})
		case p.Text != "":
			out = append(out, turns.TextPayload{Text: p.Text})
		}
	}
	return out
}

// normalizeArgs brings args into the form the history codec decodes later.
func normalizeArgs(args map[string]any) map[string]any {
	out, err := turns.NormalizeArgs(args)
	if err != nil {
		log.Warn().Err(err).Msg("function call args are not JSON serializable")
		return args
	}
	return out
}

func functionDeclarations(r *tools.Registry) []*genai.FunctionDeclaration {
	defs := r.Definitions()
	if len(defs) == 0 {
		return nil
	}
	out := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: map[string]*genai.Schema{},
		}
		for _, p := range d.Parameters {
			schema.Properties[p.Name] = &genai.Schema{
				Type:        schemaType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  schema,
		})
	}
	return out
}

func schemaType(t tools.ParameterType) genai.Type {
	switch t {
	case tools.TypeInteger:
		return genai.TypeInteger
	case tools.TypeNumber:
		return genai.TypeNumber
	case tools.TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
