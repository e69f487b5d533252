package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/config"
	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/db"
	mhttp "github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/http"
	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/logging"
	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/ml"
	"github.com/2024dc04238ChinmayaGokhale/Machine-Failure-Prediction/monitoring"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		var loadErr *ml.ArtifactLoadError
		if errors.As(err, &loadErr) {
			logger.Fatal("cannot serve predictions without artifacts",
				zap.String("artifact", loadErr.Artifact),
				zap.String("path", loadErr.Path),
				zap.Error(loadErr.Err),
			)
		}
		logger.Fatal("service failed", zap.Error(err))
	}
	logger.Info("exiting")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	schema := cfg.Schema()

	// 2. Load artifacts once; nothing is served if this fails.
	store, err := ml.NewArtifactLoader(cfg.ArtifactConfig(), schema).Load()
	if err != nil {
		return err
	}
	logger.Info("artifacts loaded",
		zap.String("variant", string(schema.Variant)),
		zap.String("model", store.Config().ModelPath),
		zap.String("model_kind", store.ModelKind()),
		zap.String("scaler", store.Config().ScalerPath),
		zap.String("scaler_kind", store.ScalerKind()),
		zap.Bool("probabilities", store.SupportsProbabilities()),
		zap.Ints("classes", store.Classes()),
	)

	labels := cfg.LabelTable()
	if err := labels.Verify(store.Classes()); err != nil {
		logger.Warn("label table does not match the model's classes", zap.Error(err))
	}

	metrics := monitoring.NewMetrics()
	metrics.SetArtifactsLoaded(store.LoadedAt())

	predictor, err := ml.NewPredictor(store, labels,
		ml.WithCache(cfg.Cache.Size),
		ml.WithLogger(logger.Named("predictor")),
		ml.WithObserver(metrics),
	)
	if err != nil {
		return fmt.Errorf("build predictor: %w", err)
	}

	if *cfg.Artifacts.Watch {
		watcher, err := ml.NewArtifactWatcher(store, logger.Named("watcher"))
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		} else {
			go watcher.Run(ctx)
		}
	}

	deps := mhttp.Deps{
		Schema:        schema,
		Predictor:     predictor,
		Probabilities: store.SupportsProbabilities(),
		Observer:      metrics,
		Metrics:       metrics.Handler(),
		Page: mhttp.PageConfig{
			Title:    cfg.UI.Title,
			Subtitle: cfg.UI.Subtitle,
			Sidebar:  cfg.Form.Layout == "sidebar",
			Locale:   cfg.UI.Locale,
		},
		AllowedOrigins: cfg.Http.AllowedOrigins,
		Logger:         logger.Named("http"),
	}

	// 3. Optional prediction history
	if cfg.History.Path != "" {
		history, err := db.OpenHistory(cfg.History.Path, logger.Named("history"))
		if err != nil {
			return err
		}
		defer history.Close()
		deps.History = history
	}

	handlers, err := mhttp.NewHandlers(deps)
	if err != nil {
		return err
	}

	// 4. Start HTTP server
	server := mhttp.NewServer(mhttp.ServerConfig{
		Port:            cfg.Http.Port,
		Timeout:         cfg.Http.Timeout,
		ShutdownTimeout: cfg.Http.ShutdownTimeout,
		AllowedOrigins:  cfg.Http.AllowedOrigins,
	}, handlers, logger.Named("http"))

	errc := make(chan error, 1)
	go func() { errc <- server.Start() }()

	// 5. Handle graceful shutdown
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	return server.Stop()
}
