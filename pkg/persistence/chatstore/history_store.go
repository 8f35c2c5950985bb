package chatstore

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/devassist/pkg/turns"
)

// Turn is one persisted row of a session's history log. Content holds the
// payload exactly as encoded by turns.Encode.
type Turn struct {
	Sequence  int64      `json:"sequence"`
	SessionID string     `json:"session_id"`
	Role      turns.Role `json:"role"`
	Content   string     `json:"content"`
}

// Payload decodes the stored content. A *turns.DecodeError is returned for
// values that are not validly tagged.
func (t Turn) Payload() (turns.Payload, error) {
	return turns.Decode(t.Content)
}

// NewTurn is a turn waiting to be appended.
type NewTurn struct {
	Role    turns.Role
	Payload turns.Payload
}

// HistoryStore is an append-only, per-session log of conversation turns.
// Sequence numbers strictly increase in append order.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, role turns.Role, payload turns.Payload) (int64, error)
	// AppendTurns writes all turns atomically, in slice order.
	AppendTurns(ctx context.Context, sessionID string, ts []NewTurn) ([]int64, error)
	// ReadAll returns the session's turns by ascending sequence, or an empty
	// slice when the session has none.
	ReadAll(ctx context.Context, sessionID string) ([]Turn, error)
	Close() error
}

// SessionSummary describes one session of the history log.
type SessionSummary struct {
	SessionID    string `json:"session_id" yaml:"session_id"`
	Turns        int    `json:"turns" yaml:"turns"`
	LastSequence int64  `json:"last_sequence" yaml:"last_sequence"`
}

// SessionLister enumerates sessions, most recently appended first.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]SessionSummary, error)
}

type encodedTurn struct {
	role    turns.Role
	content string
}

func encodeNewTurns(prefix string, sessionID string, ts []NewTurn) ([]encodedTurn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.Errorf("%s: sessionID is empty", prefix)
	}
	if len(ts) == 0 {
		return nil, errors.Errorf("%s: no turns to append", prefix)
	}
	out := make([]encodedTurn, 0, len(ts))
	for i, t := range ts {
		if !t.Role.Valid() {
			return nil, errors.Errorf("%s: turn %d: invalid role %q", prefix, i, t.Role)
		}
		content, err := turns.Encode(t.Payload)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: turn %d: encode payload", prefix, i)
		}
		out = append(out, encodedTurn{role: t.Role, content: content})
	}
	return out, nil
}
