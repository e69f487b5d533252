package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/db"
	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
)

const extendedScaler = `{
  "kind": "standard",
  "mean": [2, 300, 310, 1538, 40, 108],
  "scale": [0.8, 2, 1.5, 179, 10, 63]
}`

const basicScaler = `{
  "kind": "minmax",
  "data_min": [295, 305, 1168, 3.8, 0],
  "data_max": [305, 314, 2886, 76.6, 253]
}`

// Softmax of the intercepts: P(0) = e²/(e²+5) for every input.
const extendedLogistic = `{
  "kind": "logistic_regression",
  "classes": [0, 1, 2, 3, 4, 5],
  "intercept": [2, 0, 0, 0, 0, 0],
  "coef": [[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0],[0,0,0,0,0,0]]
}`

// Splits on scaled torque, no class counts.
const extendedTree = `{
  "kind": "decision_tree",
  "n_features": 6,
  "nodes": [
    {"feature_idx": 4, "threshold": 0, "left_child": 1, "right_child": 2, "is_leaf": false},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 0, "is_leaf": true},
    {"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 4, "is_leaf": true}
  ]
}`

const basicTree = `{
  "kind": "decision_tree",
  "n_features": 5,
  "nodes": [{"feature_idx": -1, "left_child": -1, "right_child": -1, "class_label": 3, "is_leaf": true}]
}`

// scenarioValues is the extended form at its initial values.
func scenarioValues() map[string]string {
	return map[string]string{
		ml.KeyType:               "Low (L)",
		ml.KeyAirTemperature:     "298",
		ml.KeyProcessTemperature: "308",
		ml.KeyRotationalSpeed:    "1500",
		ml.KeyTorque:             "40",
		ml.KeyToolWear:           "100",
	}
}

func basicValues() map[string]string {
	return map[string]string{
		ml.KeyAirTemperature:     "300.5",
		ml.KeyProcessTemperature: "310.2",
		ml.KeyRotationalSpeed:    "1420",
		ml.KeyTorque:             "51.3",
		ml.KeyToolWear:           "180",
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newPredictor(t *testing.T, schema *ml.Schema, scaler, model string, decode bool) (*ml.Predictor, *ml.ArtifactStore) {
	t.Helper()
	dir := t.TempDir()
	store, err := ml.NewArtifactLoader(ml.ArtifactConfig{
		ScalerPath: writeFile(t, dir, "scaler.json", scaler),
		ModelPath:  writeFile(t, dir, "model.json", model),
	}, schema).Load()
	require.NoError(t, err)

	predictor, err := ml.NewPredictor(store, ml.NewLabelTable(decode, ml.DefaultFailureLabels()))
	require.NoError(t, err)
	return predictor, store
}

type testEnv struct {
	schema   *ml.Schema
	handlers *Handlers
	handler  http.Handler
}

type envOption func(*Deps)

func withHistory(h PredictionHistory) envOption {
	return func(d *Deps) { d.History = h }
}

func withPredictor(p ml.ModelProvider) envOption {
	return func(d *Deps) { d.Predictor = p }
}

func newEnv(t *testing.T, schema *ml.Schema, scaler, model string, opts ...envOption) *testEnv {
	t.Helper()
	decode := schema.Variant == ml.VariantExtended
	predictor, store := newPredictor(t, schema, scaler, model, decode)

	deps := Deps{
		Schema:        schema,
		Predictor:     predictor,
		Probabilities: store.SupportsProbabilities(),
		Page: PageConfig{
			Title:    "Machine Predictive Maintenance App",
			Subtitle: "Predict machine failure type using a trained ML model.",
			Sidebar:  decode,
			Locale:   "en",
		},
		Logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	handlers, err := NewHandlers(deps)
	require.NoError(t, err)

	return &testEnv{
		schema:   schema,
		handlers: handlers,
		handler:  NewHandler(DefaultServerConfig(), handlers, zap.NewNop()),
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) submit(values map[string]string) *httptest.ResponseRecorder {
	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

type failingPredictor struct {
	err error
}

func (f failingPredictor) Predict(context.Context, ml.FeatureRecord) (*ml.Prediction, error) {
	return nil, f.err
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []db.HistoryEntry
}

func (m *memoryHistory) Append(_ context.Context, p *ml.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]db.HistoryEntry{{
		ID:         int64(len(m.entries) + 1),
		LabelID:    p.LabelID,
		Label:      p.Label,
		Confidence: p.Confidence,
	}}, m.entries...)
	return nil
}

func (m *memoryHistory) Recent(_ context.Context, limit int) ([]db.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return append([]db.HistoryEntry(nil), m.entries[:limit]...), nil
}
