package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	KindStandardScaler     = "standard"
	KindMinMaxScaler       = "minmax"
	KindDecisionTree       = "decision_tree"
	KindLogisticRegression = "logistic_regression"
)

type envelope struct {
	Kind string `json:"kind"`
}

func readKind(path string) ([]byte, string, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, "", fmt.Errorf("decode artifact: %w", err)
	}
	if env.Kind == "" {
		return nil, "", errors.New("artifact has no kind")
	}
	return payload, env.Kind, nil
}

// LoadScaler reads a fitted scaler artifact.
func LoadScaler(path string) (Scaler, string, error) {
	payload, kind, err := readKind(path)
	if err != nil {
		return nil, "", err
	}
	switch kind {
	case KindStandardScaler:
		scaler := &StandardScaler{}
		if err := json.Unmarshal(payload, scaler); err != nil {
			return nil, kind, fmt.Errorf("decode %s scaler: %w", kind, err)
		}
		if err := scaler.validate(); err != nil {
			return nil, kind, err
		}
		return scaler, kind, nil
	case KindMinMaxScaler:
		scaler := &MinMaxScaler{}
		if err := json.Unmarshal(payload, scaler); err != nil {
			return nil, kind, fmt.Errorf("decode %s scaler: %w", kind, err)
		}
		if err := scaler.validate(); err != nil {
			return nil, kind, err
		}
		return scaler, kind, nil
	default:
		return nil, kind, fmt.Errorf("unsupported scaler kind %q", kind)
	}
}

// LoadModel reads a fitted model artifact. Models able to report class
// probabilities are returned as ProbabilisticModel.
func LoadModel(path string) (Model, string, error) {
	payload, kind, err := readKind(path)
	if err != nil {
		return nil, "", err
	}
	switch kind {
	case KindDecisionTree:
		tree := &DecisionTree{}
		if err := json.Unmarshal(payload, tree); err != nil {
			return nil, kind, fmt.Errorf("decode %s model: %w", kind, err)
		}
		if err := tree.validate(); err != nil {
			return nil, kind, err
		}
		if tree.hasClassCounts() {
			return probabilisticTree{tree}, kind, nil
		}
		return tree, kind, nil
	case KindLogisticRegression:
		model := &LogisticRegression{}
		if err := json.Unmarshal(payload, model); err != nil {
			return nil, kind, fmt.Errorf("decode %s model: %w", kind, err)
		}
		if err := model.validate(); err != nil {
			return nil, kind, err
		}
		return model, kind, nil
	default:
		return nil, kind, fmt.Errorf("unsupported model type %q", kind)
	}
}
