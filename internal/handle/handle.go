// Package handle implements the opaque, replayable query handle: a
// base64-encoded canonical (key-sorted) JSON rendering of the request that
// produced a response.
package handle

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ollystack/otell/internal/model"
)

// Encode canonicalizes req (any JSON-serializable request envelope) and
// returns the base64 handle. encoding/json already sorts map keys
// alphabetically at every nesting level, so round-tripping a struct through
// map[string]interface{} and re-marshaling yields a stable, canonical form.
func Encode(req interface{}) (model.QueryHandle, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("handle: marshal request: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("handle: canonicalize: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("handle: re-marshal canonical: %w", err)
	}

	return model.QueryHandle(base64.StdEncoding.EncodeToString(canonical)), nil
}

// Decode reverses Encode, populating out (a pointer to the request type)
// with the canonical JSON payload.
func Decode(h model.QueryHandle, out interface{}) error {
	raw, err := base64.StdEncoding.DecodeString(string(h))
	if err != nil {
		return fmt.Errorf("handle: invalid base64: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("handle: invalid payload: %w", err)
	}
	return nil
}

// CanonicalJSON re-serializes raw JSON with sorted keys.
func CanonicalJSON(raw []byte) ([]byte, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
