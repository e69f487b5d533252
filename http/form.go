package http

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
)

// FieldError is a rejected value for one form field.
type FieldError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// FormError collects every rejected field of a submission, in schema order.
type FormError struct {
	Fields []FieldError
}

func (e *FormError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// For returns the message for key, if any.
func (e *FormError) For(key string) string {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Message
		}
	}
	return ""
}

// Map is the key → message view used by the JSON API.
func (e *FormError) Map() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Key] = f.Message
	}
	return m
}

// ParseForm validates raw widget values against the schema. The browser
// enforces the same bounds; the server checks again because the JSON API and
// websocket have no widget in front of them.
func ParseForm(schema *ml.Schema, raw map[string]string) (ml.FormValues, error) {
	values := ml.NewFormValues()
	var fe FormError

	for _, field := range schema.Fields {
		input, ok := raw[field.Key]
		if !ok {
			fe.Fields = append(fe.Fields, FieldError{field.Key, field.Label + " is required"})
			continue
		}
		if field.Kind == ml.FieldEnum {
			input = strings.TrimSpace(input)
			if _, ok := field.Code(input); !ok {
				fe.Fields = append(fe.Fields, FieldError{field.Key, fmt.Sprintf("%s must be one of %s", field.Label, optionList(field))})
				continue
			}
			values.Choices[field.Key] = input
			continue
		}
		v, err := field.Parse(input)
		if err != nil {
			fe.Fields = append(fe.Fields, FieldError{field.Key, err.Error()})
			continue
		}
		values.Numbers[field.Key] = v
	}

	var unknown []string
	for key := range raw {
		if _, ok := schema.Field(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		fe.Fields = append(fe.Fields, FieldError{key, fmt.Sprintf("unknown field %q", key)})
	}

	if len(fe.Fields) > 0 {
		return ml.FormValues{}, &fe
	}
	return values, nil
}

func optionList(field ml.Field) string {
	labels := make([]string, len(field.Options))
	for i, opt := range field.Options {
		labels[i] = opt.Label
	}
	return strings.Join(labels, ", ")
}

// rawFromJSON accepts numbers or strings for each value.
func rawFromJSON(values map[string]any) (map[string]string, error) {
	raw := make(map[string]string, len(values))
	for key, v := range values {
		switch v := v.(type) {
		case string:
			raw[key] = v
		case float64:
			raw[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, &FormError{Fields: []FieldError{{key, fmt.Sprintf("%s must be a number or a string", key)}}}
		}
	}
	return raw, nil
}
