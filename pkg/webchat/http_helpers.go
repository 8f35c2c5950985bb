package webchat

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/go-go-golems/devassist/pkg/chat"
	"github.com/go-go-golems/devassist/pkg/history"
)

// DefaultSessionID is used when a chat request omits session_id entirely.
const DefaultSessionID = "default_session"

const (
	CodeInvalidRequest   = "invalid_request"
	CodeRemoteModelError = "remote_model_error"
	CodeStorageError     = "storage_error"
	CodeInternalError    = "internal_error"
)

// ChatHTTPService describes the chat surface used by HTTP handlers.
type ChatHTTPService interface {
	Chat(ctx context.Context, req chat.Request) (chat.Response, error)
	History(ctx context.Context, sessionID string) ([]history.ViewEntry, error)
}

type chatRequestBody struct {
	Prompt    string  `json:"prompt"`
	SessionID *string `json:"session_id"`
}

type historyResponse struct {
	History []history.ViewEntry `json:"history"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse keeps response_text so clients that only display that field
// still show the failure.
type errorResponse struct {
	ResponseText string      `json:"response_text"`
	Error        errorDetail `json:"error"`
}

func NewChatHTTPHandler(svc ChatHTTPService) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if svc == nil {
			writeError(w, req, http.StatusServiceUnavailable, CodeInternalError, "chat service not initialized")
			return
		}
		var body chatRequestBody
		dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20))
		if err := dec.Decode(&body); err != nil {
			writeError(w, req, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body: "+err.Error())
			return
		}
		sessionID := DefaultSessionID
		if body.SessionID != nil {
			sessionID = *body.SessionID
		}

		resp, err := svc.Chat(req.Context(), chat.Request{Prompt: body.Prompt, SessionID: sessionID})
		if err != nil {
			writeServiceError(w, req, err)
			return
		}
		if resp.History == nil {
			resp.History = []history.ViewEntry{}
		}
		writeJSON(w, req, http.StatusOK, resp)
	}
}

func NewHistoryHTTPHandler(svc ChatHTTPService) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if svc == nil {
			writeError(w, req, http.StatusServiceUnavailable, CodeInternalError, "chat service not initialized")
			return
		}
		sessionID := req.PathValue("session_id")
		view, err := svc.History(req.Context(), sessionID)
		if err != nil {
			writeServiceError(w, req, err)
			return
		}
		if view == nil {
			view = []history.ViewEntry{}
		}
		writeJSON(w, req, http.StatusOK, historyResponse{History: view})
	}
}

func NewRootHTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, req, http.StatusOK, map[string]string{
			"message": "Development assistant server is running",
		})
	}
}

// StatusForError maps a chat service error to its HTTP status and error code.
func StatusForError(err error) (int, string) {
	var ve *chat.ValidationError
	var rme *chat.RemoteModelError
	var se *chat.StorageError
	switch {
	case stderrors.As(err, &ve):
		return http.StatusBadRequest, CodeInvalidRequest
	case stderrors.As(err, &rme):
		return http.StatusBadGateway, CodeRemoteModelError
	case stderrors.As(err, &se):
		return http.StatusInternalServerError, CodeStorageError
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

func writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status, code := StatusForError(err)
	zerolog.Ctx(req.Context()).Error().Err(err).Str("code", code).Int("status", status).Msg("chat request failed")
	writeError(w, req, status, code, err.Error())
}

func writeError(w http.ResponseWriter, req *http.Request, status int, code, msg string) {
	writeJSON(w, req, status, errorResponse{
		ResponseText: msg,
		Error:        errorDetail{Code: code, Message: msg},
	})
}

func writeJSON(w http.ResponseWriter, req *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(req.Context()).Warn().Err(err).Msg("response write failed")
	}
}
