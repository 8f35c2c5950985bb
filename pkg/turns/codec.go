package turns

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DecodeError is returned by Decode when a stored value is not a validly
// tagged payload. Readers fall back to showing Raw as opaque text.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("turns: decode payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

type encodedFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type encodedPayload struct {
	Text         *string              `json:"text,omitempty"`
	FunctionCall *encodedFunctionCall `json:"function_call,omitempty"`
}

// Encode serializes p into its canonical stored form:
// {"text": "..."} or {"function_call": {"name": "...", "args": {...}}}.
//
// Decode(Encode(p)) equals p when p is canonical: function call args must be
// non-nil and hold only JSON-decoded values (float64 numbers, []any,
// map[string]any). Normalize converts any other payload into that form.
func Encode(p Payload) (string, error) {
	var enc encodedPayload
	switch v := p.(type) {
	case TextPayload:
		enc.Text = &v.Text
	case *TextPayload:
		if v == nil {
			return "", errors.New("turns: encode nil payload")
		}
		enc.Text = &v.Text
	case FunctionCallPayload:
		enc.FunctionCall = newEncodedFunctionCall(v)
	case *FunctionCallPayload:
		if v == nil {
			return "", errors.New("turns: encode nil payload")
		}
		enc.FunctionCall = newEncodedFunctionCall(*v)
	case nil:
		return "", errors.New("turns: encode nil payload")
	default:
		return "", errors.Errorf("turns: unsupported payload type %T", p)
	}
	if enc.FunctionCall != nil && strings.TrimSpace(enc.FunctionCall.Name) == "" {
		return "", errors.New("turns: function call without name")
	}

	var buf bytes.Buffer
	e := json.NewEncoder(&buf)
	e.SetEscapeHTML(false)
	if err := e.Encode(enc); err != nil {
		return "", errors.Wrap(err, "turns: encode payload")
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func newEncodedFunctionCall(fc FunctionCallPayload) *encodedFunctionCall {
	args := fc.Args
	if args == nil {
		args = map[string]any{}
	}
	return &encodedFunctionCall{Name: fc.Name, Args: args}
}

// Decode is the inverse of Encode. Any value that is not valid JSON or does
// not carry exactly one tag yields a *DecodeError.
func Decode(raw string) (Payload, error) {
	var enc encodedPayload
	if err := json.Unmarshal([]byte(raw), &enc); err != nil {
		return nil, &DecodeError{Raw: raw, Err: err}
	}
	switch {
	case enc.Text != nil && enc.FunctionCall != nil:
		return nil, &DecodeError{Raw: raw, Err: errors.New("both text and function_call present")}
	case enc.Text != nil:
		return TextPayload{Text: *enc.Text}, nil
	case enc.FunctionCall != nil:
		if strings.TrimSpace(enc.FunctionCall.Name) == "" {
			return nil, &DecodeError{Raw: raw, Err: errors.New("function_call without name")}
		}
		args := enc.FunctionCall.Args
		if args == nil {
			args = map[string]any{}
		}
		return FunctionCallPayload{Name: enc.FunctionCall.Name, Args: args}, nil
	default:
		return nil, &DecodeError{Raw: raw, Err: errors.New("no payload tag")}
	}
}

// Normalize returns the canonical form of p, the value Decode yields for
// Encode(p).
func Normalize(p Payload) (Payload, error) {
	raw, err := Encode(p)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// NormalizeArgs round-trips args through JSON. A nil map becomes empty.
func NormalizeArgs(args map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if len(args) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Wrap(err, "turns: normalize args")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "turns: normalize args")
	}
	return out, nil
}
