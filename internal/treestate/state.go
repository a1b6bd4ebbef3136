package treestate

import (
	"path/filepath"
	"time"

	"github.com/ashgrove/heatwatch/internal/heat"
)

// ghostEntry mirrors spec.md §3's `ghosts[path] = {node, death_time,
// fade_step}`. FadeStep is kept in lockstep with Node.GhostStep.
type ghostEntry struct {
	node      *Node
	deathTime time.Time
	fadeStep  int
}

// TreeState owns the node graph for one watched root.
type TreeState struct {
	Root         *Node
	Index        map[string]*Node
	History      []*Node // most recent first, capacity HistoryLimit, no duplicates
	HistoryLimit int
	Ghosts       map[string]*ghostEntry
	GhostSteps   int
	Weights      heat.Weights
}

// New creates a TreeState rooted at rootPath. rootPath must already be an
// absolute, cleaned path; the caller (cmd/heatwatch) is responsible for
// resolving it.
func New(rootPath string, historyLimit, ghostSteps int, weights heat.Weights) *TreeState {
	root := newNode(rootPath, true)
	return &TreeState{
		Root:         root,
		Index:        map[string]*Node{rootPath: root},
		HistoryLimit: historyLimit,
		Ghosts:       make(map[string]*ghostEntry),
		GhostSteps:   ghostSteps,
		Weights:      weights,
	}
}

// Lookup returns the node at path, if any.
func (ts *TreeState) Lookup(path string) (*Node, bool) {
	n, ok := ts.Index[path]
	return n, ok
}

// ensureNode returns the node at path, creating missing ancestor
// directories along the way (spec.md §4.2 SetNode: "ensures all missing
// ancestors exist as directories with no event").
func (ts *TreeState) ensureNode(path string, isDir bool) *Node {
	if path == ts.Root.Path {
		return ts.Root
	}
	if n, ok := ts.Index[path]; ok {
		return n
	}
	parentPath := filepath.Dir(path)
	parent := ts.ensureNode(parentPath, true)
	if parent.Children == nil {
		parent.Children = make(map[string]*Node)
	}
	n := newNode(path, isDir)
	parent.Children[n.Name] = n
	ts.Index[path] = n
	return n
}

// SetNode applies an add/addDir/change (or synthesized none) event to path,
// creating it and any missing ancestors.
func (ts *TreeState) SetNode(path string, isDir bool, kind heat.EventKind, now time.Time) *Node {
	n := ts.ensureNode(path, isDir)
	n.IsDir = isDir
	if isDir && n.Children == nil {
		n.Children = make(map[string]*Node)
	}
	n.EventKind = kind
	n.EventTime = now
	n.Ghost = false
	n.GhostStep = 0
	delete(ts.Ghosts, path)

	ts.pushHistory(n)
	ts.propagateToParents(path, kind, now)
	return n
}

// RemoveNode marks path (and its descendants) as ghosts: still present in
// Index/Children, flagged for fade-out, not yet detached.
func (ts *TreeState) RemoveNode(path string, kind heat.EventKind, now time.Time) *Node {
	n, ok := ts.Index[path]
	if !ok {
		return nil
	}
	markGhost(n)
	n.EventKind = kind
	n.EventTime = now
	ts.Ghosts[path] = &ghostEntry{node: n, deathTime: now, fadeStep: 0}

	ts.pushHistory(n)
	ts.propagateToParents(path, kind, now)
	return n
}

func markGhost(n *Node) {
	n.Ghost = true
	n.GhostStep = 0
	for _, c := range n.Children {
		markGhost(c)
	}
}

// AdvanceGhosts steps every fading ghost forward one tick, finalizing
// (detaching and fully removing) any that have reached GhostSteps. Returns
// true iff at least one ghost was finalized this call.
func (ts *TreeState) AdvanceGhosts() bool {
	finalized := false
	for path, g := range ts.Ghosts {
		g.fadeStep++
		g.node.GhostStep = g.fadeStep
		if g.fadeStep >= ts.GhostSteps {
			ts.detachAndRemove(g.node)
			delete(ts.Ghosts, path)
			finalized = true
		}
	}
	return finalized
}

// detachAndRemove unlinks n from its parent's Children and purges n and its
// still-ghost descendants from Index/History. A descendant that was revived
// (SetNode cleared its Ghost flag) while n was fading is re-parented onto
// n's surviving parent instead of being dropped, to preserve the "every
// indexed path's parent is indexed" invariant.
func (ts *TreeState) detachAndRemove(n *Node) {
	parentPath := filepath.Dir(n.Path)
	parent := ts.Index[parentPath]
	if parent != nil && parent.Children != nil {
		delete(parent.Children, n.Name)
	}
	ts.collapseGhostSubtree(n, parent)
}

func (ts *TreeState) collapseGhostSubtree(n *Node, survivorParent *Node) {
	delete(ts.Index, n.Path)
	ts.removeFromHistory(n.Path)
	for name, c := range n.Children {
		if c.Ghost {
			ts.collapseGhostSubtree(c, survivorParent)
			continue
		}
		if survivorParent != nil {
			if survivorParent.Children == nil {
				survivorParent.Children = make(map[string]*Node)
			}
			survivorParent.Children[name] = c
		}
	}
}

// HasHotItems reports whether any indexed node is currently hot (as of the
// last CalculateAllHeat call) or any ghost is still fading.
func (ts *TreeState) HasHotItems() bool {
	if len(ts.Ghosts) > 0 {
		return true
	}
	for _, n := range ts.Index {
		if heat.IsHot(ts.Weights, n.Heat) {
			return true
		}
	}
	return false
}

// CalculateAllHeat recomputes Heat for every node via a post-order
// traversal from Root, applying the ghost-fade boost on the way back up.
func (ts *TreeState) CalculateAllHeat(now time.Time) {
	ts.calcNode(ts.Root, now)
}

func (ts *TreeState) calcNode(n *Node, now time.Time) float64 {
	own := heat.Heat(ts.Weights, n.EventKind, n.EventTime, now)

	h := own
	n.changeCount = 0
	if n.IsDir && len(n.Children) > 0 {
		childHeats := make([]float64, 0, len(n.Children))
		for _, c := range n.Children {
			childHeats = append(childHeats, ts.calcNode(c, now))
			if heat.IsHot(ts.Weights, c.Heat) {
				n.changeCount++
			}
			n.changeCount += c.changeCount
		}
		h = heat.DirHeat(ts.Weights, childHeats, own)
	}

	if n.Ghost && n.GhostStep < ts.GhostSteps {
		boost := 90 - 25*float64(n.GhostStep)
		if boost > h {
			h = boost
		}
	}
	if h > ts.Weights.MaxHeat {
		h = ts.Weights.MaxHeat
	}
	n.Heat = h
	return h
}

// propagateToParents lights up cold ancestors of an event without
// clobbering a parent's own direct event (spec.md §4.2).
func (ts *TreeState) propagateToParents(path string, kind heat.EventKind, now time.Time) {
	cur := filepath.Dir(path)
	for {
		p, ok := ts.Index[cur]
		if !ok {
			return
		}
		if p.EventTime.IsZero() || p.EventTime.Before(now.Add(-100*time.Millisecond)) {
			p.EventTime = now
		}
		if p.EventKind == heat.KindNone || p.EventKind == heat.KindChildChange {
			p.EventKind = heat.KindChildChange
		}
		if cur == ts.Root.Path {
			return
		}
		cur = filepath.Dir(cur)
	}
}

// IsInHistory reports whether path is currently in the rolling history.
func (ts *TreeState) IsInHistory(path string) bool {
	for _, n := range ts.History {
		if n.Path == path {
			return true
		}
	}
	return false
}

// ChangeCount returns the count of n's descendants whose last-computed heat
// is hot, for the renderer's "(N changes)" directory annotation. The count
// is maintained by calcNode's post-order pass, so this is an O(1) read
// rather than a subtree walk.
func (ts *TreeState) ChangeCount(n *Node) int {
	return n.changeCount
}

func (ts *TreeState) pushHistory(n *Node) {
	out := make([]*Node, 0, len(ts.History)+1)
	out = append(out, n)
	for _, h := range ts.History {
		if h.Path != n.Path {
			out = append(out, h)
		}
	}
	if ts.HistoryLimit > 0 && len(out) > ts.HistoryLimit {
		out = out[:ts.HistoryLimit]
	}
	ts.History = out
}

func (ts *TreeState) removeFromHistory(path string) {
	out := make([]*Node, 0, len(ts.History))
	for _, h := range ts.History {
		if h.Path != path {
			out = append(out, h)
		}
	}
	ts.History = out
}

// ClearEvents zeroes EventKind/EventTime on every node without touching
// heat/ghost/history state. Used once after the initial inventory is seeded
// so the starting tree doesn't render as if everything just changed
// (spec.md §4.5).
func (ts *TreeState) ClearEvents() {
	for _, n := range ts.Index {
		n.EventKind = heat.KindNone
		n.EventTime = time.Time{}
	}
}
