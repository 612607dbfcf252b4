// Package importer watches a drop directory for legacy browser local-storage
// dumps (notes.json, abtests.json, accounts.json) and migrates them into the
// slot store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ibeckermayer/xdash/internal/store"
)

// DoneSuffix is appended to a dump once it has been imported.
const DoneSuffix = ".imported"

// LegacyImporter stores a raw legacy collection into a slot.
type LegacyImporter interface {
	ImportLegacy(slot store.Slot, raw []byte) error
}

// Reloader refreshes in-memory state after an import.
type Reloader interface {
	Reload() error
}

// SlotForFile maps "notes.json" to the notes slot.
func SlotForFile(path string) (store.Slot, bool) {
	base := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(base), ".json") {
		return "", false
	}
	slot := store.Slot(strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base))))
	return slot, slot.Valid()
}

// ImportFile imports one dump and renames it with DoneSuffix.
func ImportFile(dst LegacyImporter, path string) (store.Slot, error) {
	slot, ok := SlotForFile(path)
	if !ok {
		return "", fmt.Errorf("%w: %s", store.ErrUnknownSlot, filepath.Base(path))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if err := dst.ImportLegacy(slot, raw); err != nil {
		return "", fmt.Errorf("failed to import %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(path, path+DoneSuffix); err != nil {
		return slot, fmt.Errorf("imported %s but could not mark it done: %w", filepath.Base(path), err)
	}
	return slot, nil
}

// Watcher imports dumps as they appear in a directory.
type Watcher struct {
	dir      string
	dst      LegacyImporter
	state    Reloader
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a watcher for dir. Start must be called to begin.
func NewWatcher(dir string, dst LegacyImporter, state Reloader) *Watcher {
	return &Watcher{
		dir:      dir,
		dst:      dst,
		state:    state,
		debounce: 300 * time.Millisecond,
		pending:  make(map[string]time.Time),
	}
}

// Dir is the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start creates the directory, imports anything already there and watches
// for new dumps until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0700); err != nil {
		return fmt.Errorf("failed to create import dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.watcher = fw
	w.done = make(chan struct{})
	w.mu.Unlock()

	w.scan()
	log.Printf("[importer] watching %s", w.dir)
	go w.run(ctx, fw, w.done)
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fw, done := w.watcher, w.done
	w.watcher = nil
	w.mu.Unlock()
	if fw == nil {
		return
	}
	fw.Close()
	<-done
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	tick := time.NewTicker(w.debounce / 3)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			fw.Close()
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, ok := SlotForFile(ev.Name); !ok {
				continue
			}
			w.mu.Lock()
			w.pending[ev.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Printf("[importer] watch error: %v", err)
		case <-tick.C:
			w.flush(time.Now())
		}
	}
}

// flush imports files whose last write is older than the debounce window.
func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		w.importOne(path)
	}
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.Printf("[importer] scan %s: %v", w.dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := SlotForFile(e.Name()); ok {
			w.importOne(filepath.Join(w.dir, e.Name()))
		}
	}
}

func (w *Watcher) importOne(path string) {
	slot, err := ImportFile(w.dst, path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		log.Printf("[importer] %v", err)
		return
	}
	log.Printf("[importer] imported %s into slot %s", filepath.Base(path), slot)
	if w.state != nil {
		if err := w.state.Reload(); err != nil {
			log.Printf("[importer] reload after import failed: %v", err)
		}
	}
}
