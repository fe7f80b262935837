// Package backup implements portable export and import of application data
// plus the remote backup engine: a JSON envelope written to a dedicated
// folder, restorable in place, with optional scheduled runs.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EnvelopeVersion identifies the current envelope layout.
const EnvelopeVersion = "2.0.0"

// ErrMalformed is returned when imported bytes are not a recognizable
// envelope.
var ErrMalformed = errors.New("backup: malformed envelope")

// Envelope is the portable backup format. Data carries the application
// payload verbatim so an export/import round trip preserves it exactly.
type Envelope struct {
	Version    string          `json:"version"`
	ExportedAt string          `json:"exportedAt"`
	AppName    string          `json:"appName"`
	Data       json.RawMessage `json:"data"`
}

// Export wraps payload in a versioned envelope and returns it as indented
// JSON. The timestamp is recorded in UTC.
func Export(appName string, payload any, now time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("backup: encoding payload: %w", err)
	}

	env := Envelope{
		Version:    EnvelopeVersion,
		ExportedAt: now.UTC().Format(time.RFC3339),
		AppName:    appName,
		Data:       data,
	}

	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: encoding envelope: %w", err)
	}

	return out, nil
}

// Import parses raw bytes into an envelope. Unknown or missing versions and
// a missing data section are rejected with ErrMalformed; the payload itself
// is returned uninterpreted.
func Import(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if env.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrMalformed)
	}

	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data section", ErrMalformed)
	}

	return &env, nil
}

// Decode unmarshals the envelope payload into dst.
func (e *Envelope) Decode(dst any) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("%w: decoding payload: %v", ErrMalformed, err)
	}

	return nil
}
