// Package llmjson recovers structured data from free-form model output.
//
// Parse strips fences and surrounding prose and tries a strict decode. Only when
// that fails does it repair smart quotes and trailing commas, decode strictly again
// and finally fall back to a tolerant decode.
// Questions then checks the result against the quiz schema, so "not JSON" and
// "JSON but not a quiz" surface as different errors.
package llmjson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hjson/hjson-go/v4"

	"quizgen-service/internal/domain"
)

// OutputError carries the raw model text of a failed parse or shape check.
// It matches domain.ErrMalformedModelOutput or domain.ErrUnexpectedResponseShape via errors.Is.
type OutputError struct {
	Kind  error
	Label string
	Raw   string
	Err   error
}

func (e *OutputError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Label, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Label, e.Kind, e.Err)
}

func (e *OutputError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

var quoteReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'",
)

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// Parse decodes raw model text into a generic value (object or array). label names
// the call site in errors and logs.
func Parse(raw, label string) (any, error) {
	var strict any
	if err := json.Unmarshal([]byte(isolateObject(stripFences(raw))), &strict); err == nil {
		return strict, nil
	}

	// Repairs can alter string contents, so they only run on text that is not JSON yet.
	text := Normalize(raw)
	strictErr := json.Unmarshal([]byte(text), &strict)
	if strictErr == nil {
		return strict, nil
	}

	tolerant, tolerantErr := parseTolerant(text)
	if tolerantErr == nil {
		return tolerant, nil
	}
	return nil, &OutputError{
		Kind:  domain.ErrMalformedModelOutput,
		Label: label,
		Raw:   raw,
		Err:   fmt.Errorf("strict: %v; tolerant: %v", strictErr, tolerantErr),
	}
}

// Normalize applies the textual repairs of the chain without decoding.
func Normalize(raw string) string {
	text := stripFences(raw)
	text = isolateObject(text)
	text = quoteReplacer.Replace(text)
	return trailingComma.ReplaceAllString(text, "$1")
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// isolateObject drops prose the model put around the JSON object.
func isolateObject(s string) string {
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// parseTolerant accepts Hjson relaxations (single quotes, unquoted keys, missing or
// trailing commas) and re-encodes the result so callers only ever see encoding/json types.
func parseTolerant(text string) (any, error) {
	var decoded any
	switch {
	case strings.HasPrefix(text, "{"):
		var obj map[string]any
		if err := hjson.Unmarshal([]byte(text), &obj); err != nil {
			return nil, err
		}
		decoded = obj
	case strings.HasPrefix(text, "["):
		var arr []any
		if err := hjson.Unmarshal([]byte(text), &arr); err != nil {
			return nil, err
		}
		decoded = arr
	default:
		return nil, fmt.Errorf("no JSON object or array in output")
	}

	b, err := json.Marshal(decoded)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
