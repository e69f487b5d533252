package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Prediction is the outcome of one predict pass.
type Prediction struct {
	LabelID int
	Label   string
	// Confidence is 100 × the highest class probability, nil when the model has no probabilities.
	Confidence    *float64
	Probabilities []float64
	Record        FeatureRecord
	Cached        bool
}

func (p *Prediction) HasConfidence() bool {
	return p != nil && p.Confidence != nil
}

// clone copies p so that cached results are never aliased by callers.
func (p Prediction) clone() Prediction {
	if p.Confidence != nil {
		c := *p.Confidence
		p.Confidence = &c
	}
	p.Probabilities = append([]float64(nil), p.Probabilities...)
	p.Record.Names = append([]string(nil), p.Record.Names...)
	p.Record.Values = append([]float64(nil), p.Record.Values...)
	return p
}

// PredictionObserver receives per-request outcomes, e.g. for metrics.
type PredictionObserver interface {
	ObservePrediction(label string, duration time.Duration, cached bool)
	ObserveError(stage string)
}

type nopObserver struct{}

func (nopObserver) ObservePrediction(string, time.Duration, bool) {}
func (nopObserver) ObserveError(string)                           {}

// Predictor runs scale → classify → confidence → decode over a loaded ArtifactStore.
type Predictor struct {
	store    *ArtifactStore
	labels   *LabelTable
	cache    *lru.Cache[string, Prediction]
	logger   *zap.Logger
	observer PredictionObserver
}

type PredictorOption func(*Predictor) error

// WithCache memoizes up to size results. Predictions are deterministic for a
// fixed store, so a hit is identical to a recomputation.
func WithCache(size int) PredictorOption {
	return func(p *Predictor) error {
		if size <= 0 {
			p.cache = nil
			return nil
		}
		cache, err := lru.New[string, Prediction](size)
		if err != nil {
			return fmt.Errorf("create prediction cache: %w", err)
		}
		p.cache = cache
		return nil
	}
}

func WithLogger(logger *zap.Logger) PredictorOption {
	return func(p *Predictor) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

func WithObserver(observer PredictionObserver) PredictorOption {
	return func(p *Predictor) error {
		if observer != nil {
			p.observer = observer
		}
		return nil
	}
}

func NewPredictor(store *ArtifactStore, labels *LabelTable, opts ...PredictorOption) (*Predictor, error) {
	if store == nil {
		return nil, errors.New("artifact store is required")
	}
	if labels == nil {
		labels = NewLabelTable(false, nil)
	}
	p := &Predictor{
		store:    store,
		labels:   labels,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Predictor) Predict(ctx context.Context, record FeatureRecord) (*Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	key := record.Key()
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			hit := cached.clone()
			hit.Record = record
			hit.Cached = true
			p.observer.ObservePrediction(hit.Label, time.Since(start), true)
			return &hit, nil
		}
	}

	scaled, err := p.store.Scaler().Transform(record)
	if err != nil {
		p.observer.ObserveError("transform")
		return nil, fmt.Errorf("transform: %w", err)
	}
	labelID, err := p.store.Model().Predict(scaled)
	if err != nil {
		p.observer.ObserveError("predict")
		return nil, fmt.Errorf("predict: %w", err)
	}

	result := Prediction{
		LabelID: labelID,
		Label:   p.labels.Resolve(labelID),
		Record:  record,
	}
	if proba := p.store.Probabilities(); proba != nil {
		probabilities, err := proba.PredictProbabilities(scaled)
		if err != nil {
			p.observer.ObserveError("probabilities")
			return nil, fmt.Errorf("predict probabilities: %w", err)
		}
		confidence, err := Confidence(probabilities)
		if err != nil {
			p.observer.ObserveError("probabilities")
			return nil, err
		}
		result.Probabilities = probabilities
		result.Confidence = &confidence
	}

	if p.cache != nil {
		p.cache.Add(key, result.clone())
	}
	duration := time.Since(start)
	p.observer.ObservePrediction(result.Label, duration, false)
	p.logger.Debug("prediction",
		zap.Int("label_id", result.LabelID),
		zap.String("label", result.Label),
		zap.Bool("has_confidence", result.HasConfidence()),
		zap.Duration("duration", duration),
	)
	return &result, nil
}

// Confidence is 100 × max(probabilities), bounded to [0, 100].
func Confidence(probabilities []float64) (float64, error) {
	if len(probabilities) == 0 {
		return 0, errors.New("model returned no probabilities")
	}
	best := probabilities[0]
	for _, v := range probabilities[1:] {
		if v > best {
			best = v
		}
	}
	if math.IsNaN(best) || best < 0 || best > 1 {
		return 0, fmt.Errorf("probability %v outside [0, 1]", best)
	}
	return 100 * best, nil
}
