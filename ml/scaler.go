package ml

import (
	"errors"
	"fmt"
)

// StandardScaler centers each column on its fitted mean and divides by its fitted scale.
type StandardScaler struct {
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	FeatureNames []string  `json:"feature_names,omitempty"`
}

func (s *StandardScaler) validate() error {
	if len(s.Mean) == 0 {
		return errors.New("standard scaler has no mean")
	}
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("standard scaler mean/scale length mismatch: %d != %d", len(s.Mean), len(s.Scale))
	}
	if len(s.FeatureNames) > 0 && len(s.FeatureNames) != len(s.Mean) {
		return fmt.Errorf("standard scaler has %d feature names for %d columns", len(s.FeatureNames), len(s.Mean))
	}
	return nil
}

func (s *StandardScaler) Arity() int {
	return len(s.Mean)
}

func (s *StandardScaler) Transform(record FeatureRecord) (ScaledRecord, error) {
	if record.Len() != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler fitted on %d features, got %d", ErrSchemaMismatch, len(s.Mean), record.Len())
	}
	if err := record.checkNames(s.FeatureNames); err != nil {
		return nil, err
	}
	out := make(ScaledRecord, len(record.Values))
	for j, v := range record.Values {
		scale := s.Scale[j]
		if scale == 0 {
			scale = 1
		}
		out[j] = (v - s.Mean[j]) / scale
	}
	return out, nil
}

// MinMaxScaler maps each column's fitted [min, max] onto FeatureRange.
type MinMaxScaler struct {
	DataMin      []float64  `json:"data_min"`
	DataMax      []float64  `json:"data_max"`
	FeatureRange [2]float64 `json:"feature_range"`
	FeatureNames []string   `json:"feature_names,omitempty"`
}

func (s *MinMaxScaler) validate() error {
	if len(s.DataMin) == 0 {
		return errors.New("minmax scaler has no data_min")
	}
	if len(s.DataMin) != len(s.DataMax) {
		return fmt.Errorf("minmax scaler min/max length mismatch: %d != %d", len(s.DataMin), len(s.DataMax))
	}
	if len(s.FeatureNames) > 0 && len(s.FeatureNames) != len(s.DataMin) {
		return fmt.Errorf("minmax scaler has %d feature names for %d columns", len(s.FeatureNames), len(s.DataMin))
	}
	if s.FeatureRange == [2]float64{} {
		s.FeatureRange = [2]float64{0, 1}
	}
	if s.FeatureRange[0] >= s.FeatureRange[1] {
		return fmt.Errorf("minmax scaler feature_range %v is not increasing", s.FeatureRange)
	}
	return nil
}

func (s *MinMaxScaler) Arity() int {
	return len(s.DataMin)
}

func (s *MinMaxScaler) Transform(record FeatureRecord) (ScaledRecord, error) {
	if record.Len() != len(s.DataMin) {
		return nil, fmt.Errorf("%w: scaler fitted on %d features, got %d", ErrSchemaMismatch, len(s.DataMin), record.Len())
	}
	if err := record.checkNames(s.FeatureNames); err != nil {
		return nil, err
	}
	lo, hi := s.FeatureRange[0], s.FeatureRange[1]
	out := make(ScaledRecord, len(record.Values))
	for j, v := range record.Values {
		span := s.DataMax[j] - s.DataMin[j]
		if span == 0 {
			span = 1
		}
		out[j] = (v-s.DataMin[j])/span*(hi-lo) + lo
	}
	return out, nil
}

func (s *StandardScaler) names() []string { return s.FeatureNames }
func (s *MinMaxScaler) names() []string   { return s.FeatureNames }
