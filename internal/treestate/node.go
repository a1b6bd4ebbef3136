// Package treestate owns the mutable, ghost-aware tree of filesystem nodes
// that heatwatch renders. All mutation happens through SetNode/RemoveNode/
// AdvanceGhosts, driven by normalized watch.Event values; nothing here reads
// the wall clock directly (every operation takes "now" as a parameter), so
// tests and the orchestrator fully control time.
package treestate

import (
	"path/filepath"
	"time"

	"github.com/ashgrove/heatwatch/internal/heat"
)

// Node is one tracked filesystem entry. Children hold no pointer back to
// their parent: parent lookups walk path.Dir against TreeState.Index
// instead, so ownership stays a strict tree (spec.md §9).
type Node struct {
	Path      string
	Name      string
	IsDir     bool
	Children  map[string]*Node // name -> child, directories only
	EventKind heat.EventKind
	EventTime time.Time // zero value means "none"
	Heat      float64
	Ghost     bool
	GhostStep int

	// changeCount is the count of hot descendants, recomputed alongside
	// Heat in calcNode's post-order pass so the renderer's "(N changes)"
	// annotation never re-walks the subtree on its own.
	changeCount int
}

func newNode(path string, isDir bool) *Node {
	n := &Node{
		Path:  path,
		Name:  filepath.Base(path),
		IsDir: isDir,
	}
	if isDir {
		n.Children = make(map[string]*Node)
	}
	return n
}
