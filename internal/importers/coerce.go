package importers

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

type FieldKind string

const (
	KindString  FieldKind = "string"
	KindInteger FieldKind = "integer"
	KindDate    FieldKind = "date"
	KindEnum    FieldKind = "enum"
)

// FieldSpec declares one scalar column of a source file.
type FieldSpec struct {
	Name     string
	Aliases  []string
	Kind     FieldKind
	Required bool
	// Allowed is the value set of an enum field.
	Allowed []string
	// Default is used for an enum field whose column is absent or empty.
	Default string
	// Positive rejects integers below 1.
	Positive bool
}

func (f FieldSpec) names() []string {
	return append([]string{f.Name}, f.Aliases...)
}

// dateLayouts are tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Values holds the coerced fields of one row keyed by FieldSpec.Name.
// Absent optional fields have no entry.
type Values map[string]any

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Int(name string) int64 {
	n, _ := v[name].(int64)
	return n
}

func (v Values) Time(name string) time.Time {
	t, _ := v[name].(time.Time)
	return t
}

// ID returns the surrogate id column, or 0 when the row has none.
func (v Values) ID() uint {
	return uint(v.Int("id"))
}

// FieldError is one field that failed to coerce.
type FieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e FieldError) String() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s=%q: %s", e.Field, e.Value, e.Reason)
}

// CoercionError lists every field of a row that failed to coerce.
type CoercionError struct {
	Fields []FieldError
}

func (e *CoercionError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

// Coercer converts raw cells into typed values.
type Coercer struct {
	now func() time.Time
}

func NewCoercer(now func() time.Time) *Coercer {
	if now == nil {
		now = time.Now
	}
	return &Coercer{now: now}
}

// Coerce converts the cells of row named by fields. It does not stop at the
// first failure: the returned *CoercionError lists all of them.
func (c *Coercer) Coerce(row Row, fields []FieldSpec) (Values, error) {
	values := make(Values, len(fields))
	var failures []FieldError

	for _, spec := range fields {
		raw, present := row.Cell(spec.names()...)
		// A default covers a missing column only; an empty cell is invalid.
		if spec.Kind == KindEnum && spec.Default != "" && !present {
			values[spec.Name] = spec.Default
			continue
		}

		if !present || raw == "" {
			switch {
			case spec.Kind == KindEnum && spec.Default != "":
				failures = append(failures, FieldError{Field: spec.Name, Reason: "must be one of " + strings.Join(spec.Allowed, ", ")})
			case spec.Kind == KindDate:
				values[spec.Name] = c.now()
			case spec.Required:
				failures = append(failures, FieldError{Field: spec.Name, Reason: "required"})
			}
			continue
		}

		value, reason := coerceValue(spec, raw)
		if reason != "" {
			failures = append(failures, FieldError{Field: spec.Name, Value: raw, Reason: reason})
			continue
		}
		values[spec.Name] = value
	}

	if len(failures) > 0 {
		return nil, &CoercionError{Fields: failures}
	}
	return values, nil
}

func coerceValue(spec FieldSpec, raw string) (any, string) {
	switch spec.Kind {
	case KindInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, "not an integer"
		}
		if spec.Positive && n < 1 {
			return nil, "must be a positive integer"
		}
		return n, ""
	case KindDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, ""
			}
		}
		return nil, "not a date"
	case KindEnum:
		if !slices.Contains(spec.Allowed, raw) {
			return nil, fmt.Sprintf("must be one of %s", strings.Join(spec.Allowed, ", "))
		}
		return raw, ""
	default:
		return raw, ""
	}
}
