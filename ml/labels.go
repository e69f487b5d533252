package ml

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// UnknownLabel is shown for a decoded id outside the label table.
const UnknownLabel = "Unknown"

// DefaultFailureLabels is the failure-type encoding used by the extended form.
func DefaultFailureLabels() map[int]string {
	return map[int]string{
		0: "No Failure",
		1: "Tool Wear Failure",
		2: "Heat Dissipation Failure",
		3: "Power Failure",
		4: "Overstrain Failure",
		5: "Random Failure",
	}
}

// LabelTable turns a predicted class id into display text.
type LabelTable struct {
	decode bool
	names  map[int]string
}

// NewLabelTable returns a table that decodes through names when decode is set,
// and shows the raw id otherwise.
func NewLabelTable(decode bool, names map[int]string) *LabelTable {
	copied := make(map[int]string, len(names))
	for id, name := range names {
		copied[id] = name
	}
	return &LabelTable{decode: decode, names: copied}
}

func (t *LabelTable) Decoding() bool { return t.decode }

func (t *LabelTable) Resolve(id int) string {
	if !t.decode {
		return strconv.Itoa(id)
	}
	if name, ok := t.names[id]; ok {
		return name
	}
	return UnknownLabel
}

// Verify checks the table against the class ids an artifact was fitted on.
func (t *LabelTable) Verify(classes []int) error {
	if !t.decode || len(classes) == 0 {
		return nil
	}
	known := make(map[int]bool, len(classes))
	var missing []string
	for _, id := range classes {
		known[id] = true
		if _, ok := t.names[id]; !ok {
			missing = append(missing, strconv.Itoa(id))
		}
	}
	var extra []int
	for id := range t.names {
		if !known[id] {
			extra = append(extra, id)
		}
	}
	sort.Ints(extra)

	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "classes without a label: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		ids := make([]string, len(extra))
		for i, id := range extra {
			ids[i] = strconv.Itoa(id)
		}
		parts = append(parts, "labels for unknown classes: "+strings.Join(ids, ", "))
	}
	return fmt.Errorf("label table does not match model classes (%s)", strings.Join(parts, "; "))
}
