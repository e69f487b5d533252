package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const extendedStandardScaler = `{
  "kind": "standard",
  "mean": [2, 300, 310, 1538, 40, 108],
  "scale": [0.8, 2, 1.5, 179, 10, 63],
  "feature_names": ["Type", "Air Temperature [K]", "Process Temperature [K]", "Rotational Speed [rpm]", "Torque [Nm]", "Tool Wear [min]"]
}`

const basicMinMaxScaler = `{
  "kind": "minmax",
  "data_min": [295, 305, 1168, 3.8, 0],
  "data_max": [305, 314, 2886, 76.6, 253]
}`

// Root splits on scaled torque; leaves carry no class counts.
const plainTree = `{
  "kind": "decision_tree",
  "n_features": 6,
  "nodes": [
    {"feature_idx": 4, "threshold": 0, "left_child": 1, "right_child": 2, "is_leaf": false},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 0, "is_leaf": true},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 4, "is_leaf": true}
  ]
}`

const countedTree = `{
  "kind": "decision_tree",
  "n_features": 6,
  "classes": [0, 4],
  "nodes": [
    {"feature_idx": 4, "threshold": 0, "left_child": 1, "right_child": 2, "is_leaf": false},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 0, "is_leaf": true, "value": [9, 1]},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 4, "is_leaf": true, "value": [2, 8]}
  ]
}`

// Zero coefficients: probabilities are the softmax of the intercepts for any input.
const interceptOnlyLogistic = `{
  "kind": "logistic_regression",
  "classes": [0, 1, 2, 3, 4, 5],
  "intercept": [2, 0, 0, 0, 0, 0],
  "coef": [
    [0, 0, 0, 0, 0, 0],
    [0, 0, 0, 0, 0, 0],
    [0, 0, 0, 0, 0, 0],
    [0, 0, 0, 0, 0, 0],
    [0, 0, 0, 0, 0, 0],
    [0, 0, 0, 0, 0, 0]
  ]
}`

const basicLogistic = `{
  "kind": "logistic_regression",
  "classes": [0, 1],
  "intercept": [-1],
  "coef": [[0.5, -0.25, 0.1, 2.0, 1.5]]
}`

func writeArtifact(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func loadStore(t *testing.T, schema *Schema, scaler, model string) *ArtifactStore {
	t.Helper()
	dir := t.TempDir()
	store, err := LoadArtifacts(ArtifactConfig{
		ScalerPath: writeArtifact(t, dir, "scaler.json", scaler),
		ModelPath:  writeArtifact(t, dir, "model.json", model),
	}, schema)
	require.NoError(t, err)
	return store
}

func scenarioRecord(t *testing.T) FeatureRecord {
	t.Helper()
	values := NewFormValues()
	values.Choices[KeyType] = "Low (L)"
	values.Numbers[KeyAirTemperature] = 298.0
	values.Numbers[KeyProcessTemperature] = 308.0
	values.Numbers[KeyRotationalSpeed] = 1500
	values.Numbers[KeyTorque] = 40.0
	values.Numbers[KeyToolWear] = 100
	record, err := Assemble(ExtendedSchema(), values)
	require.NoError(t, err)
	return record
}
