package chatstore

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/go-go-golems/devassist/pkg/turns"
)

const memoryHistoryPrefix = "in-memory history store"

// InMemoryHistoryStore is a HistoryStore kept in process memory. Sequence
// numbers come from one store-wide counter, matching SQLite autoincrement.
type InMemoryHistoryStore struct {
	mu       sync.Mutex
	lastSeq  int64
	sessions map[string][]Turn
}

var (
	_ HistoryStore  = &InMemoryHistoryStore{}
	_ SessionLister = &InMemoryHistoryStore{}
)

func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{sessions: map[string][]Turn{}}
}

func (s *InMemoryHistoryStore) Close() error { return nil }

func (s *InMemoryHistoryStore) Append(ctx context.Context, sessionID string, role turns.Role, payload turns.Payload) (int64, error) {
	seqs, err := s.AppendTurns(ctx, sessionID, []NewTurn{{Role: role, Payload: payload}})
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

func (s *InMemoryHistoryStore) AppendTurns(_ context.Context, sessionID string, ts []NewTurn) ([]int64, error) {
	if s == nil {
		return nil, errors.New("in-memory history store: nil store")
	}
	encoded, err := encodeNewTurns(memoryHistoryPrefix, sessionID, ts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seqs := make([]int64, 0, len(encoded))
	for _, et := range encoded {
		s.lastSeq++
		s.sessions[sessionID] = append(s.sessions[sessionID], Turn{
			Sequence:  s.lastSeq,
			SessionID: sessionID,
			Role:      et.role,
			Content:   et.content,
		})
		seqs = append(seqs, s.lastSeq)
	}
	return seqs, nil
}

func (s *InMemoryHistoryStore) ReadAll(_ context.Context, sessionID string) ([]Turn, error) {
	if s == nil {
		return nil, errors.New("in-memory history store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.sessions[sessionID]
	out := make([]Turn, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *InMemoryHistoryStore) ListSessions(_ context.Context) ([]SessionSummary, error) {
	if s == nil {
		return nil, errors.New("in-memory history store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionSummary, 0, len(s.sessions))
	for id, ts := range s.sessions {
		if len(ts) == 0 {
			continue
		}
		out = append(out, SessionSummary{SessionID: id, Turns: len(ts), LastSequence: ts[len(ts)-1].Sequence})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSequence > out[j].LastSequence })
	return out, nil
}
