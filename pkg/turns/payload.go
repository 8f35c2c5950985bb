// Package turns defines the persisted unit of conversation (a turn's role and
// payload) and the textual codec used to store it.
package turns

import (
	"strings"

	"github.com/pkg/errors"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the roles the history log accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModel:
		return true
	default:
		return false
	}
}

// ParseRole normalizes s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", errors.Errorf("turns: unknown role %q", s)
	}
	return r, nil
}

const (
	PayloadKeyText         = "text"
	PayloadKeyFunctionCall = "function_call"
)

// Payload is the content of a turn. It is exactly one of TextPayload or
// FunctionCallPayload.
type Payload interface {
	isPayload()
	// Kind returns the tag the payload is stored under.
	Kind() string
}

// TextPayload is plain text from the user or the model.
type TextPayload struct {
	Text string `json:"text"`
}

func (TextPayload) isPayload()   {}
func (TextPayload) Kind() string { return PayloadKeyText }

// FunctionCallPayload is a function invocation requested by the model.
type FunctionCallPayload struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

func (FunctionCallPayload) isPayload()   {}
func (FunctionCallPayload) Kind() string { return PayloadKeyFunctionCall }

// Text returns the text of p when it is a TextPayload.
func Text(p Payload) (string, bool) {
	switch v := p.(type) {
	case TextPayload:
		return v.Text, true
	case *TextPayload:
		if v == nil {
			return "", false
		}
		return v.Text, true
	default:
		return "", false
	}
}
