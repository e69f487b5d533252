package ml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrSchemaMismatch means a record does not have the arity or column order an artifact was fitted on.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
	// ErrUnknownOption means an enum label is outside the closed option set.
	ErrUnknownOption = errors.New("unknown option")
)

// FeatureRecord is one row of readings in fitted column order.
type FeatureRecord struct {
	Names  []string
	Values []float64
}

// ScaledRecord is a FeatureRecord after the scaler transform.
type ScaledRecord []float64

// FormValues holds validated input: numeric fields by key, enum fields by chosen label.
type FormValues struct {
	Numbers map[string]float64
	Choices map[string]string
}

// NewFormValues returns empty FormValues ready to fill.
func NewFormValues() FormValues {
	return FormValues{
		Numbers: make(map[string]float64),
		Choices: make(map[string]string),
	}
}

// Assemble builds a record in schema order, encoding enum labels to their codes.
func Assemble(schema *Schema, values FormValues) (FeatureRecord, error) {
	if schema == nil || len(schema.Fields) == 0 {
		return FeatureRecord{}, errors.New("schema is empty")
	}
	record := FeatureRecord{
		Names:  schema.Names(),
		Values: make([]float64, len(schema.Fields)),
	}
	for i, field := range schema.Fields {
		if field.Kind == FieldEnum {
			label, ok := values.Choices[field.Key]
			if !ok {
				return FeatureRecord{}, fmt.Errorf("%w: missing %s", ErrSchemaMismatch, field.Label)
			}
			code, ok := field.Code(label)
			if !ok {
				return FeatureRecord{}, fmt.Errorf("%w: %s %q", ErrUnknownOption, field.Label, label)
			}
			record.Values[i] = code
			continue
		}
		v, ok := values.Numbers[field.Key]
		if !ok {
			return FeatureRecord{}, fmt.Errorf("%w: missing %s", ErrSchemaMismatch, field.Label)
		}
		record.Values[i] = v
	}
	return record, nil
}

// Len is the record arity.
func (r FeatureRecord) Len() int {
	return len(r.Values)
}

// Key identifies the record by its exact values, for memoization.
func (r FeatureRecord) Key() string {
	var b strings.Builder
	for i, v := range r.Values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
	}
	return b.String()
}

// checkNames verifies the record's column order against fitted names.
// Records without names are checked by arity only.
func (r FeatureRecord) checkNames(fitted []string) error {
	if len(fitted) == 0 || len(r.Names) == 0 {
		return nil
	}
	if len(fitted) != len(r.Names) {
		return fmt.Errorf("%w: %d columns, fitted on %d", ErrSchemaMismatch, len(r.Names), len(fitted))
	}
	for i := range fitted {
		if fitted[i] != r.Names[i] {
			return fmt.Errorf("%w: column %d is %q, fitted on %q", ErrSchemaMismatch, i, r.Names[i], fitted[i])
		}
	}
	return nil
}
