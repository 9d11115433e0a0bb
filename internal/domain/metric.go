package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// IndicatorField is the payload key carrying the reported health indicator.
const IndicatorField = "status"

// Metric is one report received from a server.
// Only the newest by CollectedAt is consulted when evaluating health.
type Metric struct {
	ServerID    string
	CollectedAt time.Time
	Payload     Payload
}

// Payload wraps the raw report body. The schema is owned by the reporting
// agent; accessors never fail and return ok=false for unknown shapes.
type Payload struct {
	raw    json.RawMessage
	fields map[string]any
}

// ParsePayload keeps raw as-is and decodes it when it is a JSON object.
// Anything else yields a payload with no fields.
func ParsePayload(raw []byte) Payload {
	p := Payload{raw: append(json.RawMessage(nil), raw...)}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		p.fields = fields
	}
	return p
}

// Raw returns the bytes as received.
func (p Payload) Raw() json.RawMessage {
	return p.raw
}

// Fields returns the decoded top-level object, nil when the payload was not an object.
func (p Payload) Fields() map[string]any {
	return p.fields
}

// Valid reports whether the payload decoded to a JSON object.
func (p Payload) Valid() bool {
	return p.fields != nil
}

// String returns a top-level string field.
func (p Payload) String(key string) (string, bool) {
	v, ok := p.fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns a top-level numeric field.
func (p Payload) Float(key string) (float64, bool) {
	v, ok := p.fields[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Indicator returns the normalized health indicator, if any.
func (p Payload) Indicator() (string, bool) {
	s, ok := p.String(IndicatorField)
	if !ok {
		return "", false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	return s, true
}

// MarshalJSON emits the raw payload, null when empty, and a JSON string
// when the bytes are not valid JSON.
func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p.raw) == 0 {
		return []byte("null"), nil
	}
	if !json.Valid(p.raw) {
		return json.Marshal(string(p.raw))
	}
	return p.raw, nil
}

// UnmarshalJSON accepts any JSON value.
func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = ParsePayload(data)
	return nil
}
