package ml

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize artifact watcher")

// ArtifactChange is a modification of a loaded artifact file on disk.
type ArtifactChange struct {
	Artifact string
	Path     string
	Op       fsnotify.Op
}

// ArtifactWatcher reports changes to loaded artifact files. The loaded store is
// never refreshed; a change only means the process must be restarted to pick it up.
type ArtifactWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]string
	changes chan ArtifactChange
	logger  *zap.Logger
}

// NewArtifactWatcher watches the directories holding the store's artifacts.
// Directories are watched rather than files so replace-by-rename is seen.
func NewArtifactWatcher(store *ArtifactStore, logger *zap.Logger) (*ArtifactWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	w := &ArtifactWatcher{
		watcher: watcher,
		files:   make(map[string]string),
		changes: make(chan ArtifactChange, 10),
		logger:  logger,
	}
	cfg := store.Config()
	for artifact, path := range map[string]string{"model": cfg.ModelPath, "scaler": cfg.ScalerPath} {
		abs, err := filepath.Abs(path)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("resolve %s path: %w", artifact, err)
		}
		w.files[abs] = artifact
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s directory: %w", artifact, err)
		}
	}
	return w, nil
}

// Changes delivers artifact changes; sends are dropped when nobody reads.
func (w *ArtifactWatcher) Changes() <-chan ArtifactChange {
	return w.changes
}

// Run processes filesystem events until ctx is done.
func (w *ArtifactWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

func (w *ArtifactWatcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	artifact, ok := w.files[abs]
	if !ok {
		return
	}
	w.logger.Warn("artifact changed on disk; restart to load it",
		zap.String("artifact", artifact),
		zap.String("path", abs),
		zap.String("op", event.Op.String()),
	)
	select {
	case w.changes <- ArtifactChange{Artifact: artifact, Path: abs, Op: event.Op}:
	default:
	}
}
