// Package watch keeps the store in step with a directory tree.
//
// Files are identified by absolute path. A created or modified file
// replaces its stored version; a removed or renamed file is deleted.
// Hidden files and directories are ignored.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// ChangeType is the kind of file change.
type ChangeType int

const (
	// ChangeUpserted means the file was created or modified.
	ChangeUpserted ChangeType = iota + 1

	// ChangeDeleted means the file was removed or renamed away.
	ChangeDeleted
)

// String returns the string representation.
func (t ChangeType) String() string {
	switch t {
	case ChangeUpserted:
		return "upserted"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is a file event reduced to what the store needs.
type Change struct {
	Type ChangeType
	Path string
}

// SyncResult counts the work done by Sync.
type SyncResult struct {
	Ingested int
	Skipped  int
	Failed   int
}

// Watcher mirrors a directory tree into the store.
type Watcher struct {
	root     string
	ingest   driving.IngestService
	store    driving.RetrievalStore
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a watcher for root. Call Close when done.
func New(root string, ingest driving.IngestService, store driving.RetrievalStore) *Watcher {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Watcher{root: root, ingest: ingest, store: store, debounce: DefaultDebounce}
}

// SetDebounce changes the quiet period before changes are applied.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Root returns the absolute path being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Sync ingests every file under root that is not already in the store.
// Unsupported files are counted as skipped.
func (w *Watcher) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	if err := checkRoot(w.root); err != nil {
		return res, err
	}

	present := make(map[string]bool)
	for _, d := range w.store.Documents(ctx) {
		present[d.ID] = true
	}

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			return nil
		}
		if path != w.root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || present[path] {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := w.ingest.IngestFile(ctx, path, driving.IngestOptions{}); err != nil {
			if errors.Is(err, domain.ErrUnsupportedFormat) {
				res.Skipped++
				return nil
			}
			if isFatal(err) {
				return err
			}
			logger.Warn("Failed to ingest %s: %v", path, err)
			res.Failed++
			return nil
		}
		res.Ingested++
		return nil
	})
	return res, err
}

// Watch emits changes under root until ctx is cancelled.
// The channel is closed when watching stops.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, errors.New("watcher is closed")
	}
	if err := checkRoot(w.root); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.addTree(fsw, w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.watcher = fsw

	changes := make(chan Change, 64)
	go w.loop(ctx, fsw, changes)
	return changes, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- Change) {
	defer close(changes)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(event.Name) {
					if err := w.addTree(fsw, event.Name); err != nil {
						logger.Warn("Cannot watch %s: %v", event.Name, err)
					}
				}
			}
			change := w.handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watch error: %v", err)
		}
	}
}

// handleFsEvent reduces an fsnotify event to a change, or nil when it
// should be ignored.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if isHidden(event.Name) {
		return nil
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		return &Change{Type: ChangeUpserted, Path: event.Name}
	default:
		return nil
	}
}

// Run watches root and applies changes after each quiet period. report, if
// not nil, is called once per applied change.
func (w *Watcher) Run(ctx context.Context, report func(Change, error)) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	pending := make(map[string]Change)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	flush := func() error {
		for path, c := range pending {
			delete(pending, path)
			err := w.Apply(ctx, c)
			if report != nil {
				report(c, err)
			}
			if isFatal(err) {
				return err
			}
		}
		return nil
	}

	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			pending[c.Path] = c
			timer.Reset(w.debounce)
		case <-timer.C:
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

// Apply updates the store for one change. An upsert replaces the stored
// version in one commit, so a failed re-ingest keeps the previous version.
// A deleted file that was never ingested and an unsupported file are not
// errors.
func (w *Watcher) Apply(ctx context.Context, c Change) error {
	path, err := filepath.Abs(c.Path)
	if err != nil {
		return err
	}

	if c.Type == ChangeDeleted {
		return w.remove(ctx, path)
	}

	_, err = w.ingest.IngestFile(ctx, path, driving.IngestOptions{Replace: true})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("%s vanished before ingest", path)
		return w.remove(ctx, path)
	case errors.Is(err, domain.ErrUnsupportedFormat):
		logger.Debug("Ignoring %s: %v", path, err)
		return nil
	default:
		return err
	}
}

// remove deletes the document for path and any documents below it.
func (w *Watcher) remove(ctx context.Context, path string) error {
	if _, err := w.store.DeleteDocument(ctx, path); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return w.deleteUnder(ctx, path)
}

// deleteUnder removes documents below dir, for a removed directory.
func (w *Watcher) deleteUnder(ctx context.Context, dir string) error {
	prefix := dir + string(filepath.Separator)
	for _, d := range w.store.Documents(ctx) {
		if !strings.HasPrefix(d.ID, prefix) {
			continue
		}
		if _, err := w.store.DeleteDocument(ctx, d.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("remove %s: %w", d.ID, err)
		}
	}
	return nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && isHidden(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", root)
	}
	return nil
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// isFatal reports errors that will fail for every file, so watching stops.
func isFatal(err error) bool {
	return errors.Is(err, domain.ErrIntegrity) ||
		errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, domain.ErrDimensionMismatch) ||
		errors.Is(err, context.Canceled)
}
