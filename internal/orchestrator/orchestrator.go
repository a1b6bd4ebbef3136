// Package orchestrator builds the watch/vcs/tree-state trio described by
// spec.md §4.5 and fans their output into channels. The single select
// loop that actually serializes all mutation against those channels is
// the bubbletea program's own Update method (internal/ui) — bubbletea
// already is "a single task that owns state, consuming one message at a
// time" (spec.md §5), so this package stops short of running a second,
// redundant loop and instead does the construction and channel plumbing
// every component needs before that loop starts.
package orchestrator

import (
	"context"
	"path/filepath"

	"github.com/ashgrove/heatwatch/internal/config"
	"github.com/ashgrove/heatwatch/internal/heat"
	"github.com/ashgrove/heatwatch/internal/ignore"
	"github.com/ashgrove/heatwatch/internal/treestate"
	"github.com/ashgrove/heatwatch/internal/vcs"
	"github.com/ashgrove/heatwatch/internal/watch"
)

// Orchestrator owns the long-lived pieces the UI model reads from:
// the tree, the VCS client, the watcher, and the channels that carry
// their asynchronous output.
type Orchestrator struct {
	Root    string
	Tree    *treestate.TreeState
	Vcs     *vcs.Client
	Watcher *watch.Watcher

	Batches   chan []watch.Event
	Inventory chan []watch.InventoryEntry
	WatchErrs chan error
}

// New resolves cfg.Root to an absolute path and constructs every
// collaborator, but does not start watching yet — call Start for that.
func New(cfg config.Config) (*Orchestrator, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	root = filepath.Clean(root)

	matcher := ignore.New(root, cfg.IgnorePatterns)
	tree := treestate.New(root, cfg.HistoryLimit, cfg.GhostSteps, heat.DefaultWeights())

	o := &Orchestrator{
		Root:      root,
		Tree:      tree,
		Batches:   make(chan []watch.Event, 16),
		Inventory: make(chan []watch.InventoryEntry, 1),
		WatchErrs: make(chan error, 16),
	}

	if cfg.NoGit {
		o.Vcs = vcs.New(root)
		o.Vcs.Disable()
	} else {
		o.Vcs = vcs.New(root)
	}

	// A blocking send here provides backpressure instead of silently
	// dropping a batch of filesystem events: if the UI's Update loop is
	// momentarily busy (e.g. mid VCS refresh), debounceLoop simply waits
	// for it to drain Batches rather than discarding events the tree
	// would otherwise never learn about.
	watcher, err := watch.New(root, matcher, cfg.Interval(), func(batch []watch.Event) {
		o.Batches <- batch
	})
	if err != nil {
		return nil, err
	}
	o.Watcher = watcher
	return o, nil
}

// Start walks the initial inventory (delivered once on Inventory) and
// begins live watching. Startup-fatal errors (the watcher failing to
// attach to root) are returned directly so the caller can exit 1
// (spec.md §7).
func (o *Orchestrator) Start(ctx context.Context) error {
	entries, err := o.Watcher.Inventory()
	if err != nil {
		return err
	}
	go func() {
		o.Inventory <- entries
	}()

	if err := o.Watcher.Start(ctx); err != nil {
		return err
	}
	return nil
}

// Stop releases the watcher. Safe to call more than once.
func (o *Orchestrator) Stop() {
	o.Watcher.Stop()
}
