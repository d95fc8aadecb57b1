// ABOUTME: Wire types for the workflow backend's POST /chat contract.
// ABOUTME: Field casing (Plan, Think, response) mirrors the backend exactly and must not be normalized.

package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ChatPath is the backend endpoint that runs the Plan/Think/Output pipeline.
const ChatPath = "/chat"

// Request is the JSON body sent to the backend.
type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
}

// Result holds the three stage outputs returned by the backend.
type Result struct {
	Plan     string `json:"Plan"`
	Think    string `json:"Think"`
	Response string `json:"response"`
}

var errMissingField = errors.New("missing field")

// DecodeResult parses a success body. All three fields must be present under
// their exact wire names and hold strings; unknown fields are ignored.
// Keys are matched case-sensitively, so "plan" does not stand in for "Plan".
func DecodeResult(body []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, newDecodeError(errors.New("body is not a JSON object"), body)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, newDecodeError(err, body)
	}

	var result Result
	fields := []struct {
		name string
		dst  *string
	}{{"Plan", &result.Plan}, {"Think", &result.Think}, {"response", &result.Response}}
	for _, f := range fields {
		value, ok := raw[f.name]
		if !ok {
			return nil, newDecodeError(fmt.Errorf("%w %q", errMissingField, f.name), body)
		}
		value = bytes.TrimSpace(value)
		if len(value) == 0 || value[0] != '"' {
			return nil, newDecodeError(fmt.Errorf("field %q is not a string", f.name), body)
		}
		if err := json.Unmarshal(value, f.dst); err != nil {
			return nil, newDecodeError(fmt.Errorf("field %q: %w", f.name, err), body)
		}
	}

	return &result, nil
}
