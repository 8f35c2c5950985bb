package history

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	chatstore "github.com/go-go-golems/devassist/pkg/persistence/chatstore"
	"github.com/go-go-golems/devassist/pkg/turns"
)

// Entry is one turn of replayed context.
type Entry struct {
	Role    turns.Role    `json:"role" yaml:"role"`
	Payload turns.Payload `json:"payload" yaml:"payload"`
}

// HistoryReader is the read side of chatstore.HistoryStore.
type HistoryReader interface {
	ReadAll(ctx context.Context, sessionID string) ([]chatstore.Turn, error)
}

// BuildReplay reads every turn of sessionID and decodes it into replay order.
func BuildReplay(ctx context.Context, store HistoryReader, sessionID string) ([]Entry, error) {
	if store == nil {
		return nil, errors.New("history: store is nil")
	}
	stored, err := store.ReadAll(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "history: read session")
	}
	return Replay(stored), nil
}

// Replay decodes stored turns one to one. Values that fail to decode are
// replayed as their raw text.
func Replay(stored []chatstore.Turn) []Entry {
	out := make([]Entry, 0, len(stored))
	for _, t := range stored {
		p, err := t.Payload()
		if err != nil {
			log.Warn().
				Err(err).
				Str("session_id", t.SessionID).
				Int64("sequence", t.Sequence).
				Msg("replaying undecodable turn as raw text")
			p = turns.TextPayload{Text: t.Content}
		}
		out = append(out, Entry{Role: t.Role, Payload: p})
	}
	return out
}
