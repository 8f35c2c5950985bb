// Package chat orchestrates one chat turn: replay the session's history, ask
// the model, classify its reply and append both sides to the history log.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/devassist/pkg/history"
	"github.com/go-go-golems/devassist/pkg/inference/engine"
	chatstore "github.com/go-go-golems/devassist/pkg/persistence/chatstore"
	"github.com/go-go-golems/devassist/pkg/turns"
)

type Request struct {
	Prompt    string
	SessionID string
}

type Response struct {
	ResponseText string              `json:"response_text"`
	TokensUsed   int                 `json:"tokens_used"`
	History      []history.ViewEntry `json:"history"`
}

type ServiceConfig struct {
	Store  chatstore.HistoryStore
	Engine engine.Engine
}

// Service is the only writer of the history log. Requests for the same
// session are serialized; different sessions proceed concurrently.
type Service struct {
	store  chatstore.HistoryStore
	engine engine.Engine
	locks  *sessionLocks
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("chat service: history store is nil")
	}
	if cfg.Engine == nil {
		return nil, errors.New("chat service: engine is nil")
	}
	return &Service{store: cfg.Store, engine: cfg.Engine, locks: newSessionLocks()}, nil
}

// Chat runs one turn. A blank session id only returns that id's history: the
// model is not called and nothing is appended.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	if s == nil || s.store == nil || s.engine == nil {
		return Response{}, errors.New("chat service is not initialized")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		view, err := s.History(ctx, req.SessionID)
		if err != nil {
			return Response{}, err
		}
		return Response{History: view}, nil
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Response{}, &ValidationError{Msg: "missing prompt"}
	}

	unlock, err := s.locks.Lock(ctx, req.SessionID)
	if err != nil {
		return Response{}, errors.Wrap(err, "chat: wait for session")
	}
	defer unlock()

	logger := log.With().Str("session_id", req.SessionID).Logger()
	started := time.Now()

	replay, err := history.BuildReplay(ctx, s.store, req.SessionID)
	if err != nil {
		return Response{}, &StorageError{Op: "load history", Err: err}
	}

	reply, err := s.engine.Send(ctx, replay, req.Prompt)
	if err != nil {
		logger.Error().Err(err).Int("replay_turns", len(replay)).Msg("remote model call failed")
		return Response{}, &RemoteModelError{Err: err}
	}

	modelPayload := Classify(reply)

	// The model already answered; a client disconnect must not drop the turn.
	persistCtx := context.WithoutCancel(ctx)
	if _, err := s.store.AppendTurns(persistCtx, req.SessionID, []chatstore.NewTurn{
		{Role: turns.RoleUser, Payload: turns.TextPayload{Text: req.Prompt}},
		{Role: turns.RoleModel, Payload: modelPayload},
	}); err != nil {
		return Response{}, &StorageError{Op: "append turns", Err: err}
	}

	view, err := s.History(persistCtx, req.SessionID)
	if err != nil {
		return Response{}, err
	}

	tokens := 0
	if reply != nil {
		tokens = reply.TotalTokens
	}
	logger.Info().
		Int("replay_turns", len(replay)).
		Str("reply_kind", modelPayload.Kind()).
		Int("tokens_used", tokens).
		Dur("elapsed", time.Since(started)).
		Msg("chat turn completed")

	return Response{
		ResponseText: reply.Text(),
		TokensUsed:   tokens,
		History:      view,
	}, nil
}

// History returns the display view of a session, empty when unknown.
func (s *Service) History(ctx context.Context, sessionID string) ([]history.ViewEntry, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("chat service is not initialized")
	}
	stored, err := s.store.ReadAll(ctx, sessionID)
	if err != nil {
		return nil, &StorageError{Op: "read history", Err: err}
	}
	return history.Format(stored), nil
}

// Classify decides once how the model's reply is stored: a function call
// when the first part is one, its text otherwise.
func Classify(reply *engine.Reply) turns.Payload {
	if fc, ok := reply.First().(turns.FunctionCallPayload); ok {
		if n, err := turns.Normalize(fc); err == nil {
			return n
		}
		if fc.Args == nil {
			fc.Args = map[string]any{}
		}
		return fc
	}
	return turns.TextPayload{Text: reply.Text()}
}
