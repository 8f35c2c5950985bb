package tools

import (
	"fmt"
)

// ErrorKind classifies tool failures.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindInvalidArgument  ErrorKind = "invalid_argument"
	KindIO               ErrorKind = "io"
	KindUnknownTool      ErrorKind = "unknown_tool"
)

// ToolError is a typed tool failure.
type ToolError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *ToolError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Result is the outcome of a tool call.
type Result[T any] struct {
	Value T
	Err   *ToolError
}

func (r Result[T]) OK() bool { return r.Err == nil }

func ok[T any](v T) Result[T] { return Result[T]{Value: v} }

func fail[T any](kind ErrorKind, msg string, err error) Result[T] {
	return Result[T]{Err: &ToolError{Kind: kind, Message: msg, Err: err}}
}
