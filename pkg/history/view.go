package history

import (
	chatstore "github.com/go-go-golems/devassist/pkg/persistence/chatstore"
	"github.com/go-go-golems/devassist/pkg/turns"
)

const (
	// RoleAssistant is the display name for turns stored with the model role.
	RoleAssistant = "assistant"
	// NonTextPlaceholder replaces function calls and undecodable content.
	NonTextPlaceholder = "[non-text content]"
)

// ViewEntry is one display row of a session's history.
type ViewEntry struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Format maps stored turns to display rows. Function call arguments are never
// exposed.
func Format(stored []chatstore.Turn) []ViewEntry {
	out := make([]ViewEntry, 0, len(stored))
	for _, t := range stored {
		out = append(out, ViewEntry{
			Role:    displayRole(t.Role),
			Content: displayContent(t.Content),
		})
	}
	return out
}

func displayRole(r turns.Role) string {
	if r == turns.RoleModel {
		return RoleAssistant
	}
	return string(r)
}

func displayContent(raw string) string {
	p, err := turns.Decode(raw)
	if err != nil {
		return NonTextPlaceholder
	}
	if text, ok := turns.Text(p); ok {
		return text
	}
	return NonTextPlaceholder
}
