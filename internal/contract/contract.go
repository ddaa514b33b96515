// Package contract turns raw model text into validated records.
//
// Every module describes its expected response with a Schema. The same
// parser strips an optional Markdown fence, decodes the JSON, checks field
// presence, kinds and enumerations, and clamps score fields into [0,1].
package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// PreviewLength is how much raw text error messages carry
const PreviewLength = 200

// Kind is the expected JSON type of a field
type Kind int

const (
	String Kind = iota
	Number
	Bool
	StringList
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case StringList:
		return "array of strings"
	default:
		return "unknown"
	}
}

// Field describes one response key
type Field struct {
	Name     string
	Kind     Kind
	Enum     []string // closed set for String fields
	Clamp    bool     // clamp Number fields into [0,1]
	Optional bool
}

// Schema is the expected shape of a response object
type Schema struct {
	Name   string
	Fields []Field
}

// Record holds validated, normalized field values
type Record map[string]any

func (r Record) String(name string) string {
	s, _ := r[name].(string)
	return s
}

func (r Record) Number(name string) float64 {
	n, _ := r[name].(float64)
	return n
}

func (r Record) Bool(name string) bool {
	b, _ := r[name].(bool)
	return b
}

func (r Record) Strings(name string) []string {
	list, _ := r[name].([]string)
	if list == nil {
		return []string{}
	}
	return list
}

// ParseError means the text was not JSON at all
type ParseError struct {
	Preview string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse AI response: %v (response began: %q)", e.Err, e.Preview)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError means the JSON did not match the schema
type ValidationError struct {
	Schema  string
	Index   int // element index for arrays, -1 for objects
	Field   string
	Reason  string
	Preview string
}

func (e *ValidationError) Error() string {
	where := e.Schema
	if e.Index >= 0 {
		where = fmt.Sprintf("%s[%d]", where, e.Index)
	}
	if e.Field != "" {
		where += "." + e.Field
	}
	return fmt.Sprintf("invalid AI response: %s %s (response began: %q)", where, e.Reason, e.Preview)
}

var fencePattern = regexp.MustCompile("(?s)^```[ \\t]*[\\w-]*\\s*(.*?)\\s*```$")

// StripFence removes an optional Markdown code fence around the payload
func StripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// Clamp01 forces v into [0,1]; NaN becomes 0
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Preview truncates s to n runes for diagnostics
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// ParseObject validates a JSON object response
func ParseObject(raw string, schema Schema) (Record, error) {
	value, err := decode(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, invalid(raw, schema, -1, "", "is not a JSON object")
	}
	return validate(raw, schema, -1, obj)
}

// ParseArray validates a JSON array response; one bad element fails the whole array
func ParseArray(raw string, schema Schema) ([]Record, error) {
	value, err := decode(raw)
	if err != nil {
		return nil, err
	}
	items, ok := value.([]any)
	if !ok {
		return nil, invalid(raw, schema, -1, "", "is not a JSON array")
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, invalid(raw, schema, i, "", "is not a JSON object")
		}
		rec, err := validate(raw, schema, i, obj)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func decode(raw string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(StripFence(raw)), &value); err != nil {
		return nil, &ParseError{Preview: Preview(raw, PreviewLength), Err: err}
	}
	return value, nil
}

func validate(raw string, schema Schema, index int, obj map[string]any) (Record, error) {
	rec := make(Record, len(schema.Fields))
	for _, f := range schema.Fields {
		v, present := obj[f.Name]
		if !present || v == nil {
			if f.Optional {
				continue
			}
			return nil, invalid(raw, schema, index, f.Name, "is missing")
		}

		switch f.Kind {
		case String:
			s, ok := v.(string)
			if !ok {
				return nil, invalid(raw, schema, index, f.Name, "must be a string")
			}
			if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
				return nil, invalid(raw, schema, index, f.Name,
					fmt.Sprintf("has unexpected value %q (allowed: %s)", s, strings.Join(f.Enum, ", ")))
			}
			rec[f.Name] = s
		case Number:
			n, ok := v.(float64)
			if !ok {
				return nil, invalid(raw, schema, index, f.Name, "must be a number")
			}
			if f.Clamp {
				n = Clamp01(n)
			}
			rec[f.Name] = n
		case Bool:
			b, ok := v.(bool)
			if !ok {
				return nil, invalid(raw, schema, index, f.Name, "must be a boolean")
			}
			rec[f.Name] = b
		case StringList:
			list, ok := v.([]any)
			if !ok {
				return nil, invalid(raw, schema, index, f.Name, "must be an array of strings")
			}
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, invalid(raw, schema, index, f.Name, "must be an array of strings")
				}
				out = append(out, s)
			}
			rec[f.Name] = out
		default:
			return nil, invalid(raw, schema, index, f.Name, "has an unsupported kind "+f.Kind.String())
		}
	}
	return rec, nil
}

func invalid(raw string, schema Schema, index int, field, reason string) *ValidationError {
	return &ValidationError{
		Schema:  schema.Name,
		Index:   index,
		Field:   field,
		Reason:  reason,
		Preview: Preview(raw, PreviewLength),
	}
}
