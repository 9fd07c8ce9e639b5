package source

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"webmon/internal/metrics"
)

// FileSourceName labels updates, logs and metrics of the patterns file.
const FileSourceName = "file"

// Watcher reloads a patterns file whenever it is written or replaced.
type Watcher struct {
	path          string
	source        FileSource
	watcher       *fsnotify.Watcher
	updates       chan<- Update
	debounceDelay time.Duration
	mu            sync.Mutex
	running       bool
	stopCh        chan struct{}
	stoppedCh     chan struct{}
}

func NewWatcher(path string, updates chan<- Update, debounce time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &Watcher{
		path:          absPath,
		source:        FileSource{Path: absPath},
		watcher:       fsWatcher,
		updates:       updates,
		debounceDelay: debounce,
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
	}, nil
}

// Start watches the directory of the patterns file, so editors that replace
// the file by rename are seen too.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.running = true

	log.Info().Str("path", w.path).Msg("Watching patterns file")

	go w.watch(ctx)
	return nil
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.stoppedCh

	return w.watcher.Close()
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.stoppedCh)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Patterns file changed")

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounceDelay)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypePatternWatch, FileSourceName).Inc()
			log.Err(err).Msg("Patterns file watcher error")
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	patterns, err := w.source.FetchPatterns(ctx)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypePatternFetch, FileSourceName).Inc()
		log.Err(err).Str("path", w.path).Msg("Failed to reload patterns file")
		return
	}

	select {
	case w.updates <- Update{Source: FileSourceName, Patterns: patterns}:
	case <-ctx.Done():
	case <-w.stopCh:
	}
}
