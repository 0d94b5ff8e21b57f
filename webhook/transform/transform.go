package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// BodyMapping copies the result of a JSONPath query into a field of the new body
type BodyMapping struct {
	// Source is a JSONPath expression evaluated against the inbound body, e.g. "$.data.id"
	Source string `json:"source" yaml:"source"`

	// Target is the top level field name in the outgoing body
	Target string `json:"target" yaml:"target"`
}

// Rules is the declarative header and body remapping applied before dispatch.
// A Rules value is never mutated once built.
type Rules struct {
	// HeaderRewrites overwrite headers by name
	HeaderRewrites map[string]string `json:"headerRewrites,omitempty" yaml:"header_rewrites"`

	// AdditionalHeaders are merged last and win every conflict
	AdditionalHeaders map[string]string `json:"additionalHeaders,omitempty" yaml:"additional_headers"`

	// BodyMappings, when present, replace the body entirely
	BodyMappings []BodyMapping `json:"bodyMappings,omitempty" yaml:"body_mappings"`
}

// Validate reports mappings that can never produce a field.
// Apply tolerates them, this is only used when endpoints are defined.
func (r *Rules) Validate() error {
	if r == nil {
		return nil
	}
	for i, m := range r.BodyMappings {
		if strings.TrimSpace(m.Target) == "" {
			return fmt.Errorf("body mapping %d: target is required", i)
		}
		if _, err := jp.ParseString(m.Source); err != nil {
			return fmt.Errorf("body mapping %d: parsing source %q: %w", i, m.Source, err)
		}
	}
	return nil
}

// Apply runs the rules against a header snapshot and a JSON body.
// It is pure: the inputs are never modified and a failing mapping only drops its own field.
func Apply(rules *Rules, headers map[string]string, body json.RawMessage) (map[string]string, json.RawMessage) {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = v
	}
	if rules == nil {
		return out, body
	}

	for k, v := range rules.HeaderRewrites {
		setHeader(out, k, v)
	}
	for k, v := range rules.AdditionalHeaders {
		setHeader(out, k, v)
	}

	if len(rules.BodyMappings) == 0 {
		return out, body
	}
	return out, mapBody(rules.BodyMappings, body)
}

// setHeader overwrites any existing key that differs only by case
func setHeader(headers map[string]string, key, value string) {
	for existing := range headers {
		if existing != key && strings.EqualFold(existing, key) {
			delete(headers, existing)
		}
	}
	headers[key] = value
}

func mapBody(mappings []BodyMapping, body json.RawMessage) json.RawMessage {
	result := make(map[string]any, len(mappings))

	// A body that is not JSON yields no matches, every field is omitted
	var data any
	parsed := false
	if len(body) > 0 {
		if v, err := oj.Parse(body); err == nil {
			data = v
			parsed = true
		}
	}

	for _, m := range mappings {
		if !parsed || m.Target == "" || strings.TrimSpace(m.Source) == "" {
			continue
		}
		value, ok := evaluate(m.Source, data)
		if !ok {
			continue
		}
		result[m.Target] = value
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return encoded
}

// evaluate returns the single match, or the list of matches when there are zero or several
func evaluate(source string, data any) (value any, ok bool) {
	defer func() {
		if recover() != nil {
			value, ok = nil, false
		}
	}()

	expr, err := jp.ParseString(source)
	if err != nil {
		return nil, false
	}
	matches := expr.Get(data)
	if len(matches) == 1 {
		return matches[0], true
	}
	if matches == nil {
		matches = []any{}
	}
	return matches, true
}
