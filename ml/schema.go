package ml

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldKind is the input widget type of a schema field.
type FieldKind int

const (
	FieldFloat FieldKind = iota
	FieldInt
	FieldEnum
)

func (k FieldKind) String() string {
	switch k {
	case FieldFloat:
		return "float"
	case FieldInt:
		return "int"
	case FieldEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Variant selects one of the two input form presets.
type Variant string

const (
	// VariantBasic is five numeric readings, open-ended bounds, raw labels.
	VariantBasic Variant = "basic"
	// VariantExtended adds the machine Type and tighter bounds with defaults.
	VariantExtended Variant = "extended"
)

// Option is one choice of an enum field and the code it is encoded as.
type Option struct {
	Label string  `json:"label"`
	Code  float64 `json:"code"`
}

// Field describes one input and the column it becomes in a FeatureRecord.
type Field struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"-"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Default *float64  `json:"default,omitempty"`
	Options []Option  `json:"options,omitempty"`
}

// Schema is the ordered list of fields the scaler and model were fitted on.
type Schema struct {
	Variant Variant
	Fields  []Field
}

const (
	KeyType               = "type"
	KeyAirTemperature     = "air_temperature"
	KeyProcessTemperature = "process_temperature"
	KeyRotationalSpeed    = "rotational_speed"
	KeyTorque             = "torque"
	KeyToolWear           = "tool_wear"
)

// TypeCodes is the encoding of the machine Type enum.
var TypeCodes = []Option{
	{Label: "Low (L)", Code: 1},
	{Label: "Medium (M)", Code: 2},
	{Label: "High (H)", Code: 3},
}

func f64(v float64) *float64 { return &v }

// BasicSchema returns the five-field numeric form.
func BasicSchema() *Schema {
	return &Schema{
		Variant: VariantBasic,
		Fields: []Field{
			{Key: KeyAirTemperature, Label: "Air Temperature [K]", Kind: FieldFloat, Min: f64(250), Max: f64(350)},
			{Key: KeyProcessTemperature, Label: "Process Temperature [K]", Kind: FieldFloat, Min: f64(250), Max: f64(350)},
			{Key: KeyRotationalSpeed, Label: "Rotational Speed [rpm]", Kind: FieldFloat, Min: f64(0)},
			{Key: KeyTorque, Label: "Torque [Nm]", Kind: FieldFloat, Min: f64(0)},
			{Key: KeyToolWear, Label: "Tool Wear [min]", Kind: FieldFloat, Min: f64(0)},
		},
	}
}

// ExtendedSchema returns the six-field form with Type as the first column.
func ExtendedSchema() *Schema {
	return &Schema{
		Variant: VariantExtended,
		Fields: []Field{
			{Key: KeyType, Label: "Type", Kind: FieldEnum, Options: TypeCodes},
			{Key: KeyAirTemperature, Label: "Air Temperature [K]", Kind: FieldFloat, Min: f64(250), Max: f64(350), Default: f64(298)},
			{Key: KeyProcessTemperature, Label: "Process Temperature [K]", Kind: FieldFloat, Min: f64(250), Max: f64(350), Default: f64(308)},
			{Key: KeyRotationalSpeed, Label: "Rotational Speed [rpm]", Kind: FieldInt, Min: f64(1000), Max: f64(3000), Default: f64(1500)},
			{Key: KeyTorque, Label: "Torque [Nm]", Kind: FieldFloat, Min: f64(0), Max: f64(100), Default: f64(40)},
			{Key: KeyToolWear, Label: "Tool Wear [min]", Kind: FieldInt, Min: f64(0), Max: f64(300), Default: f64(100)},
		},
	}
}

// SchemaFor returns the preset for a variant.
func SchemaFor(v Variant) (*Schema, error) {
	switch v {
	case VariantBasic:
		return BasicSchema(), nil
	case VariantExtended, "":
		return ExtendedSchema(), nil
	default:
		return nil, fmt.Errorf("unsupported form variant %q", v)
	}
}

// Names returns the column names in fitted order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Label
	}
	return names
}

// Len is the record arity.
func (s *Schema) Len() int {
	return len(s.Fields)
}

// Field looks a field up by form key.
func (s *Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Initial is the value shown before any input: the default, else the minimum,
// else the first option.
func (f Field) Initial() string {
	if f.Kind == FieldEnum {
		if len(f.Options) == 0 {
			return ""
		}
		return f.Options[0].Label
	}
	switch {
	case f.Default != nil:
		return f.Format(*f.Default)
	case f.Min != nil:
		return f.Format(*f.Min)
	default:
		return f.Format(0)
	}
}

// Format renders a value the way the widget displays it. Enum values are
// their integer codes.
func (f Field) Format(v float64) string {
	if f.Kind != FieldFloat {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Step is the widget increment.
func (f Field) Step() string {
	if f.Kind == FieldInt {
		return "1"
	}
	return "0.01"
}

// Parse converts raw widget input and enforces the field's bounds.
func (f Field) Parse(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", f.Label)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a number", f.Label)
	}
	if f.Kind == FieldInt && v != math.Trunc(v) {
		return 0, fmt.Errorf("%s must be a whole number", f.Label)
	}
	if err := f.Check(v); err != nil {
		return 0, err
	}
	return v, nil
}

// Check reports whether v lies within [Min, Max].
func (f Field) Check(v float64) error {
	if f.Min != nil && v < *f.Min {
		return fmt.Errorf("%s must be at least %s", f.Label, f.Format(*f.Min))
	}
	if f.Max != nil && v > *f.Max {
		return fmt.Errorf("%s must be at most %s", f.Label, f.Format(*f.Max))
	}
	return nil
}

// Code maps an enum label to its encoded value.
func (f Field) Code(label string) (float64, bool) {
	for _, opt := range f.Options {
		if opt.Label == label {
			return opt.Code, true
		}
	}
	return 0, false
}
