// Package watcher reports batches of file changes below a site root. Rapid
// changes are debounced into one batch so a save storm triggers one build.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/logging"
)

// FileWatcher watches directory trees and hands debounced change batches to
// its handlers.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	logger    logging.Logger
	filters   []FileFilter
	handlers  []ChangeHandler
	mutex     sync.RWMutex
}

// ChangeEvent is one file change after debouncing.
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType classifies a change.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the lower-case event name.
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a changed path is of interest.
type FileFilter func(path string) bool

// ChangeHandler handles one debounced batch.
type ChangeHandler func(ctx context.Context, events []ChangeEvent) error

// NewFileWatcher returns a watcher that batches changes arriving within
// delay of each other.
func NewFileWatcher(delay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, siteerrors.NewIOError("", "cannot start file watcher", err)
	}

	if logger == nil {
		logger = logging.Nop()
	}

	return &FileWatcher{
		watcher:   w,
		debouncer: NewDebouncer(delay),
		logger:    logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a filter; a change is kept only if every filter accepts it.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler registers handler for every released batch.
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddRecursive watches root and every directory below it that the filters
// accept. A missing root is ignored.
func (fw *FileWatcher) AddRecursive(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && !fw.accept(path) {
			return filepath.SkipDir
		}

		return fw.watcher.Add(path)
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return siteerrors.NewIOError(root, "cannot watch directory", err)
	}

	return nil
}

// Start runs the watcher until ctx is cancelled.
func (fw *FileWatcher) Start(ctx context.Context) {
	go fw.debouncer.Run(ctx)
	go fw.processEvents(ctx)
	go fw.watchLoop(ctx)
}

// Stop releases the underlying watcher.
func (fw *FileWatcher) Stop() error {
	fw.debouncer.Stop()

	return fw.watcher.Close()
}

func (fw *FileWatcher) accept(path string) bool {
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()

	for _, filter := range fw.filters {
		if !filter(path) {
			return false
		}
	}

	return true
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || !fw.accept(event.Name) {
		return
	}

	change := ChangeEvent{Path: event.Name, Type: eventType(event.Op)}

	if info, err := os.Stat(event.Name); err == nil {
		change.ModTime = info.ModTime()
		change.Size = info.Size()

		// New directories are watched too so their files are seen.
		if info.IsDir() && change.Type == EventTypeCreated {
			if err := fw.AddRecursive(event.Name); err != nil {
				fw.logger.Warn(ctx, err, "Cannot watch new directory", "path", event.Name)
			}
		}
	}

	fw.debouncer.Add(change)
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.Output():
			fw.mutex.RLock()
			handlers := slices.Clone(fw.handlers)
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(ctx, events); err != nil {
					fw.logger.Error(ctx, err, "Change handler failed", "changes", len(events))
				}
			}
		}
	}
}

// Debouncer groups rapid changes into batches. A batch is released once no
// new change has arrived for the delay.
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// NewDebouncer returns a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:  delay,
		events: make(chan ChangeEvent, 100),
		output: make(chan []ChangeEvent, 10),
	}
}

// Add queues a change. It never blocks; changes beyond the queue size are
// dropped.
func (d *Debouncer) Add(event ChangeEvent) {
	select {
	case d.events <- event:
	default:
	}
}

// Output delivers the batches.
func (d *Debouncer) Output() <-chan []ChangeEvent { return d.output }

// Run moves queued changes into the pending batch until ctx is cancelled.
func (d *Debouncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.Stop()

			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

// Stop cancels a pending flush.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

// flush releases the pending batch with one event per path, the latest
// one winning, sorted by path.
func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	latest := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		latest[event.Path] = event
	}

	events := make([]ChangeEvent, 0, len(latest))
	for _, event := range latest {
		events = append(events, event)
	}
	slices.SortFunc(events, func(a, b ChangeEvent) int { return strings.Compare(a.Path, b.Path) })

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}

// ExcludeFilter rejects paths below root for which excluded reports true.
// excluded receives the slash-separated path relative to root.
func ExcludeFilter(root string, excluded func(rel string) bool) FileFilter {
	return func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return true
		}

		return !excluded(filepath.ToSlash(rel))
	}
}

// DirFilter rejects dir and everything below it, typically the build
// output.
func DirFilter(dir string) FileFilter {
	clean := filepath.Clean(dir)

	return func(path string) bool {
		p := filepath.Clean(path)

		return p != clean && !strings.HasPrefix(p, clean+string(filepath.Separator))
	}
}
