// Package watch turns fsnotify's recursive directory events into the
// debounced, normalized batches the orchestrator applies to tree state.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ashgrove/heatwatch/internal/heat"
	"github.com/ashgrove/heatwatch/internal/ignore"
)

// Event is one normalized filesystem change, using heat.EventKind
// directly since every watch event maps onto exactly one tree-state
// event kind with no translation in between.
type Event struct {
	Kind  heat.EventKind
	Path  string
	IsDir bool
	Time  time.Time
}

// InventoryEntry is one path discovered by the initial walk.
type InventoryEntry struct {
	Path  string
	IsDir bool
}

// BatchHandler receives one debounced, deduplicated batch of events.
type BatchHandler func(batch []Event)

// Watcher recursively watches root, debouncing raw fsnotify events into
// batches before handing them to a BatchHandler.
type Watcher struct {
	root     string
	ignore   *ignore.Matcher
	fsw      *fsnotify.Watcher
	debounce time.Duration
	handler  BatchHandler

	events   chan Event
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// New creates a Watcher rooted at root. It does not start watching or
// walking until Start is called.
func New(root string, matcher *ignore.Matcher, debounce time.Duration, handler BatchHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     root,
		ignore:   matcher,
		fsw:      fsw,
		debounce: debounce,
		handler:  handler,
		events:   make(chan Event, 1000),
		done:     make(chan struct{}),
	}, nil
}

// Inventory walks root once, returning every non-ignored path. This
// drives the startup "ready" callback (spec §6) that seeds the tree
// before the watcher begins delivering live events.
func (w *Watcher) Inventory() ([]InventoryEntry, error) {
	var out []InventoryEntry
	err := w.walk(func(path string, isDir bool) {
		out = append(out, InventoryEntry{Path: path, IsDir: isDir})
	})
	return out, err
}

// walk traverses root, skipping ignored subtrees entirely, and invokes
// visit for every surviving path except root itself.
func (w *Watcher) walk(visit func(path string, isDir bool)) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == w.root {
			return nil
		}
		isDir := d.IsDir()
		if w.ignore != nil && w.ignore.Match(path, isDir) {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		visit(path, isDir)
		return nil
	})
}

// Start begins watching: it registers the root and every non-ignored
// subdirectory with fsnotify, then spawns the event-processing and
// debounce-flush goroutines. Both exit when ctx is canceled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.fsw.Add(w.root); err != nil {
		return err
	}
	if err := w.walk(func(path string, isDir bool) {
		if isDir {
			_ = w.fsw.Add(path)
		}
	}); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.ignore != nil && w.ignore.Match(ev.Name, false) {
				continue
			}
			isDir := statIsDir(ev.Name)
			kind := convertOp(ev.Op, isDir)
			if kind == heat.KindNone {
				continue
			}
			// Non-blocking send, deliberately: this goroutine's job is to
			// drain fsw.Events as fast as possible, since fsnotify's own
			// OS-level queue (inotify) silently overflows if nothing reads
			// it quickly enough — losing real events with no way to
			// recover. A full w.events buffer (debounceLoop blocked in a
			// handler call) is a much smaller, bounded loss than an inotify
			// overflow, so this drops here rather than ever blocking.
			change := Event{Kind: kind, Path: ev.Name, IsDir: isDir, Time: time.Now()}
			select {
			case w.events <- change:
			default:
			}
			if ev.Has(fsnotify.Create) && isDir {
				_ = w.fsw.Add(ev.Name)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// convertOp maps an fsnotify op (plus a freshly-stat'd directory flag) to
// the event kind vocabulary the tree state understands: add, addDir,
// change, unlink, unlinkDir — no rename. fsnotify's Rename fires on the
// path's *old* name (a plain `mv a b` yields Rename on "a" and a
// separate Create on "b"), so it is the same "this path just vanished"
// event as Remove and is folded into unlink/unlinkDir rather than
// surfaced as its own kind. The caller's isDir comes from a stat made
// after the event, so for a path that is already gone it is false and a
// removed directory is reported as unlink rather than unlinkDir; callers
// should treat unlink/unlinkDir as best-effort on directory-ness.
func convertOp(op fsnotify.Op, isDir bool) heat.EventKind {
	switch {
	case op.Has(fsnotify.Create):
		if isDir {
			return heat.KindAddDir
		}
		return heat.KindAdd
	case op.Has(fsnotify.Write):
		return heat.KindChange
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		if isDir {
			return heat.KindUnlinkDir
		}
		return heat.KindUnlink
	default:
		return heat.KindNone
	}
}

func statIsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []Event
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			deduped := deduplicate(batch)
			if len(deduped) > 0 && w.handler != nil {
				w.handler(deduped)
			}
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case change := <-w.events:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			flush()
		}
	}
}

// deduplicate keeps only the latest event per path, preserving arrival
// order of the surviving entries (spec §5: "the last event for a given
// path wins").
func deduplicate(changes []Event) []Event {
	seen := make(map[string]int, len(changes))
	result := make([]Event, 0, len(changes))
	for _, c := range changes {
		if idx, ok := seen[c.Path]; ok {
			result[idx] = c
			continue
		}
		seen[c.Path] = len(result)
		result = append(result, c)
	}
	return result
}
