package heyloyalty

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// result is a decoded response body. At most one of payload and err is set;
// both are empty for an empty body.
type result struct {
	payload json.RawMessage
	err     error
}

// decode inspects a response body once. An "error" key anywhere at the top
// level of an object turns the whole body into a *RemoteError.
func decode(body []byte) result {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return result{}
	}

	if !json.Valid(trimmed) {
		return result{err: fmt.Errorf("failed to parse response: invalid JSON")}
	}

	if trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return result{err: fmt.Errorf("failed to parse response: %w", err)}
		}
		if raw, ok := probe["error"]; ok {
			return result{err: newRemoteError(raw)}
		}
	}

	return result{payload: trimmed}
}

// empty reports a successful response without a body
func (r result) empty() bool {
	return r.err == nil && len(r.payload) == 0
}

// into unmarshals the payload into v. It returns the error payload, if any,
// before touching v.
func (r result) into(v any) error {
	if r.err != nil {
		return r.err
	}
	if len(r.payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.payload, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
