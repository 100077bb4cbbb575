// Package watch monitors an input directory and triggers conversion batches
// for newly written image files.
package watch

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/Slynchy/webp-conv/internal/scan"
)

// Handler is called with the batched file names after the debounce window
// closes, and with no names at all on a scheduled rescan.
type Handler func(files []string)

// Watcher monitors one input directory for new or rewritten image files.
// Rapid bursts of events (editors, partial writes) are debounced into a
// single handler call.
type Watcher struct {
	inputDir string
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	debug    bool

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	rescan *cron.Cron
	cancel context.CancelFunc
}

// New creates a watcher for inputDir. The handler fires at most once per
// debounce window.
func New(inputDir string, debounce time.Duration, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(inputDir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		inputDir: inputDir,
		watcher:  fsw,
		handler:  handler,
		debounce: debounce,
		pending:  make(map[string]struct{}),
	}, nil
}

// SetDebug enables event logging.
func (w *Watcher) SetDebug(debug bool) { w.debug = debug }

// SetRescan schedules a periodic full rescan on a cron expression, catching
// files that arrived without producing a filesystem event (network mounts,
// moves from the same device).
func (w *Watcher) SetRescan(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if w.debug {
			log.Printf("[watch] scheduled rescan of %s", w.inputDir)
		}
		w.handler(nil)
	})
	if err != nil {
		return err
	}
	w.rescan = c
	return nil
}

// Start begins watching. It returns immediately; events are handled on a
// background goroutine until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	if w.rescan != nil {
		w.rescan.Start()
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				if w.debug {
					log.Printf("[watch] error: %v", err)
				}
			}
		}
	}()
}

// Stop stops watching and cancels any pending debounce flush.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.rescan != nil {
		w.rescan.Stop()
	}
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	name := filepath.Base(event.Name)
	if !scan.Recognized(name) {
		return
	}
	if w.debug {
		log.Printf("[watch] %s %s", event.Op, name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[name] = struct{}{}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(pending) == 0 || w.handler == nil {
		return
	}

	files := make([]string, 0, len(pending))
	for f := range pending {
		files = append(files, f)
	}
	w.handler(files)
}
