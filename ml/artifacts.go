package ml

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrArtifactLoad is matched by every ArtifactLoadError.
var ErrArtifactLoad = errors.New("artifact load failed")

// ArtifactLoadError is returned when the scaler or the model cannot be loaded.
// The process cannot serve predictions after one.
type ArtifactLoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("load %s artifact %s: %v", e.Artifact, e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() []error {
	return []error{ErrArtifactLoad, e.Err}
}

// ArtifactConfig locates the two artifact files.
type ArtifactConfig struct {
	ModelPath  string
	ScalerPath string
}

// DefaultArtifactConfig resolves both artifacts relative to the working directory.
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		ModelPath:  "model.json",
		ScalerPath: "scaler.json",
	}
}

// ArtifactStore holds the loaded scaler and model. It is immutable after load
// and safe to share between goroutines.
type ArtifactStore struct {
	config     ArtifactConfig
	scaler     Scaler
	scalerKind string
	model      Model
	modelKind  string
	proba      ProbabilisticModel
	classes    []int
	loadedAt   time.Time
}

// LoadArtifacts reads both artifacts and checks them against the schema.
func LoadArtifacts(config ArtifactConfig, schema *Schema) (*ArtifactStore, error) {
	scaler, scalerKind, err := LoadScaler(config.ScalerPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "scaler", Path: config.ScalerPath, Err: err}
	}
	model, modelKind, err := LoadModel(config.ModelPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: "model", Path: config.ModelPath, Err: err}
	}

	if model.Arity() != scaler.Arity() {
		return nil, &ArtifactLoadError{
			Artifact: "model",
			Path:     config.ModelPath,
			Err:      fmt.Errorf("%w: model expects %d features, scaler produces %d", ErrSchemaMismatch, model.Arity(), scaler.Arity()),
		}
	}
	if schema != nil {
		if scaler.Arity() != schema.Len() {
			return nil, &ArtifactLoadError{
				Artifact: "scaler",
				Path:     config.ScalerPath,
				Err:      fmt.Errorf("%w: scaler fitted on %d features, form has %d", ErrSchemaMismatch, scaler.Arity(), schema.Len()),
			}
		}
		if named, ok := scaler.(interface{ names() []string }); ok {
			probe := FeatureRecord{Names: schema.Names()}
			if err := probe.checkNames(named.names()); err != nil {
				return nil, &ArtifactLoadError{Artifact: "scaler", Path: config.ScalerPath, Err: err}
			}
		}
	}

	store := &ArtifactStore{
		config:     config,
		scaler:     scaler,
		scalerKind: scalerKind,
		model:      model,
		modelKind:  modelKind,
		loadedAt:   time.Now(),
	}
	if p, ok := model.(ProbabilisticModel); ok {
		store.proba = p
	}
	if lister, ok := model.(ClassLister); ok {
		store.classes = lister.Classes()
	}
	return store, nil
}

func (s *ArtifactStore) Scaler() Scaler { return s.scaler }

func (s *ArtifactStore) Model() Model { return s.model }

// Probabilities returns the model's probability capability, or nil.
func (s *ArtifactStore) Probabilities() ProbabilisticModel { return s.proba }

func (s *ArtifactStore) SupportsProbabilities() bool { return s.proba != nil }

// Classes is the artifact's own class list, empty when the model does not expose one.
func (s *ArtifactStore) Classes() []int { return append([]int(nil), s.classes...) }

func (s *ArtifactStore) ScalerKind() string { return s.scalerKind }

func (s *ArtifactStore) ModelKind() string { return s.modelKind }

func (s *ArtifactStore) Config() ArtifactConfig { return s.config }

func (s *ArtifactStore) LoadedAt() time.Time { return s.loadedAt }

// ArtifactLoader loads artifacts at most once; later calls return the cached
// store, or the cached error.
type ArtifactLoader struct {
	config ArtifactConfig
	schema *Schema
	once   sync.Once
	store  *ArtifactStore
	err    error
}

func NewArtifactLoader(config ArtifactConfig, schema *Schema) *ArtifactLoader {
	return &ArtifactLoader{config: config, schema: schema}
}

func (l *ArtifactLoader) Load() (*ArtifactStore, error) {
	l.once.Do(func() {
		l.store, l.err = LoadArtifacts(l.config, l.schema)
	})
	return l.store, l.err
}
