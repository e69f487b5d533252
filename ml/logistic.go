package ml

import (
	"errors"
	"fmt"
	"math"
)

// LogisticRegression is a fitted linear classifier. A single coefficient row is the
// binary sigmoid form; otherwise there is one row per class and a softmax.
type LogisticRegression struct {
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
	ClassIDs  []int       `json:"classes"`
}

func (m *LogisticRegression) validate() error {
	if len(m.Coef) == 0 || len(m.Coef[0]) == 0 {
		return errors.New("logistic regression has no coefficients")
	}
	if len(m.Intercept) != len(m.Coef) {
		return fmt.Errorf("logistic regression has %d intercepts for %d coefficient rows", len(m.Intercept), len(m.Coef))
	}
	width := len(m.Coef[0])
	for i, row := range m.Coef {
		if len(row) != width {
			return fmt.Errorf("coefficient row %d has %d values, want %d", i, len(row), width)
		}
	}
	switch {
	case len(m.Coef) == 1 && len(m.ClassIDs) != 2:
		return fmt.Errorf("binary logistic regression needs 2 classes, got %d", len(m.ClassIDs))
	case len(m.Coef) > 1 && len(m.ClassIDs) != len(m.Coef):
		return fmt.Errorf("logistic regression has %d classes for %d coefficient rows", len(m.ClassIDs), len(m.Coef))
	}
	return nil
}

func (m *LogisticRegression) Arity() int {
	return len(m.Coef[0])
}

func (m *LogisticRegression) Classes() []int {
	return append([]int(nil), m.ClassIDs...)
}

func (m *LogisticRegression) Predict(features ScaledRecord) (int, error) {
	proba, err := m.PredictProbabilities(features)
	if err != nil {
		return 0, err
	}
	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	return m.ClassIDs[best], nil
}

func (m *LogisticRegression) PredictProbabilities(features ScaledRecord) ([]float64, error) {
	if len(features) != m.Arity() {
		return nil, fmt.Errorf("%w: model fitted on %d features, got %d", ErrSchemaMismatch, m.Arity(), len(features))
	}
	scores := make([]float64, len(m.Coef))
	for k, row := range m.Coef {
		z := m.Intercept[k]
		for j, w := range row {
			z += w * features[j]
		}
		scores[k] = z
	}
	if len(scores) == 1 {
		p := sigmoid(scores[0])
		return []float64{1 - p, p}, nil
	}
	return softmax(scores), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func softmax(scores []float64) []float64 {
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
