package ml

import "context"

// Scaler is a fitted, deterministic feature transform.
type Scaler interface {
	Transform(record FeatureRecord) (ScaledRecord, error)
	Arity() int
}

// Model is a fitted classifier over scaled features.
type Model interface {
	Predict(features ScaledRecord) (int, error)
	Arity() int
}

// ProbabilisticModel is implemented by models that report one probability per class,
// in the order returned by Classes.
type ProbabilisticModel interface {
	Model
	ClassLister
	PredictProbabilities(features ScaledRecord) ([]float64, error)
}

// ClassLister exposes the class ids an artifact was fitted on.
type ClassLister interface {
	Classes() []int
}

// ModelProvider is what the HTTP layer needs from the prediction pipeline.
type ModelProvider interface {
	Predict(ctx context.Context, record FeatureRecord) (*Prediction, error)
}
