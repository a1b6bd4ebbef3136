package treestate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ashgrove/heatwatch/internal/heat"
)

func newTestState() *TreeState {
	return New("/root", 4, 3, heat.DefaultWeights())
}

func TestSetNodeCreatesMissingAncestors(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	ts.SetNode(filepath.Join("/root", "a", "b", "c.txt"), false, heat.KindAdd, now)

	for _, p := range []string{"/root", "/root/a", "/root/a/b", "/root/a/b/c.txt"} {
		if _, ok := ts.Lookup(p); !ok {
			t.Errorf("expected %s to be indexed", p)
		}
	}
	a, _ := ts.Lookup("/root/a")
	if !a.IsDir {
		t.Error("ancestor /root/a should be a directory")
	}
	// The ancestor is created without an event of its own; the only kind it
	// carries afterwards is the childChange that SetNode propagates upward.
	if a.EventKind != heat.KindChildChange {
		t.Errorf("freshly-created ancestor should carry only the propagated childChange, got %v", a.EventKind)
	}
}

func TestInvariantParentIndexed(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	ts.SetNode("/root/x/y.txt", false, heat.KindAdd, now)
	for p := range ts.Index {
		if p == ts.Root.Path {
			continue
		}
		parent := filepath.Dir(p)
		if _, ok := ts.Index[parent]; !ok {
			t.Errorf("path %s has unindexed parent %s", p, parent)
		}
	}
}

func TestHistoryBoundAndDedup(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	paths := []string{"/root/a", "/root/b", "/root/c", "/root/d", "/root/e"}
	for _, p := range paths {
		ts.SetNode(p, false, heat.KindAdd, now)
	}
	if len(ts.History) > ts.HistoryLimit {
		t.Fatalf("history exceeded limit: %d > %d", len(ts.History), ts.HistoryLimit)
	}
	// Touch /root/c again; it must not appear twice and must move to front.
	ts.SetNode("/root/c", false, heat.KindChange, now)
	seen := map[string]int{}
	for _, n := range ts.History {
		seen[n.Path]++
	}
	for p, c := range seen {
		if c > 1 {
			t.Errorf("path %s appears %d times in history", p, c)
		}
	}
	if ts.History[0].Path != "/root/c" {
		t.Errorf("expected /root/c at front of history, got %s", ts.History[0].Path)
	}
}

func TestGhostLifecycle(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	ts.SetNode("/root/a.txt", false, heat.KindChange, now)
	ts.RemoveNode("/root/a.txt", heat.KindUnlink, now)

	if _, ok := ts.Lookup("/root/a.txt"); !ok {
		t.Fatal("node should still be indexed right after removal (ghost)")
	}
	if _, ok := ts.Ghosts["/root/a.txt"]; !ok {
		t.Fatal("node should be registered as a ghost")
	}

	for i := 0; i < ts.GhostSteps; i++ {
		ts.AdvanceGhosts()
	}

	if _, ok := ts.Lookup("/root/a.txt"); ok {
		t.Error("node should be fully removed from index after GhostSteps ticks")
	}
	if _, ok := ts.Ghosts["/root/a.txt"]; ok {
		t.Error("node should be removed from ghosts")
	}
	if ts.IsInHistory("/root/a.txt") {
		t.Error("node should be removed from history")
	}
	root, _ := ts.Lookup("/root")
	if _, ok := root.Children["a.txt"]; ok {
		t.Error("root should no longer have the ghost as a child")
	}
}

func TestGhostHeatBoostKeepsDeletedItemVisible(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	ts.SetNode("/root/a.txt", false, heat.KindChange, now)
	ts.RemoveNode("/root/a.txt", heat.KindUnlink, now)
	ts.CalculateAllHeat(now)

	n, _ := ts.Lookup("/root/a.txt")
	if n.Heat < 90 {
		t.Errorf("expected fresh ghost heat >= 90, got %v", n.Heat)
	}
}

func TestCalculateAllHeatClamped(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	ts.SetNode("/root/a.txt", false, heat.KindUnlink, now)
	ts.CalculateAllHeat(now)
	for _, n := range ts.Index {
		if n.Heat < 0 || n.Heat > ts.Weights.MaxHeat {
			t.Errorf("heat out of range for %s: %v", n.Path, n.Heat)
		}
	}
}

func TestPropagateDoesNotClobberDirectParentEvent(t *testing.T) {
	ts := newTestState()
	t0 := time.Now()
	ts.SetNode("/root/dir", true, heat.KindAddDir, t0)
	t1 := t0.Add(1 * time.Second)
	ts.SetNode("/root/dir/child.txt", false, heat.KindAdd, t1)

	dir, _ := ts.Lookup("/root/dir")
	if dir.EventKind != heat.KindAddDir {
		t.Errorf("direct event on parent should survive propagation, got %v", dir.EventKind)
	}
}

func TestPropagateLightsUpColdAncestors(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	ts.SetNode("/root/a/b/c.txt", false, heat.KindChange, now)

	a, _ := ts.Lookup("/root/a")
	if a.EventKind != heat.KindChildChange {
		t.Errorf("expected childChange on ancestor, got %v", a.EventKind)
	}
	if a.EventTime.IsZero() {
		t.Error("expected ancestor event_time to be set")
	}
}

func TestScenarioS1SingleModification(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	ts.SetNode("/root/a.txt", false, heat.KindNone, time.Time{}) // initial inventory seed
	ts.ClearEvents()
	ts.SetNode("/root/a.txt", false, heat.KindChange, now)
	ts.CalculateAllHeat(now)

	a, _ := ts.Lookup("/root/a.txt")
	if a.Heat != 60 {
		t.Fatalf("expected a.txt heat 60, got %v", a.Heat)
	}
	root, _ := ts.Lookup("/root")
	if root.Heat != 66 {
		t.Fatalf("expected root heat 66, got %v", root.Heat)
	}
}

func TestScenarioS2DeletionAndFade(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	ts.SetNode("/root/a.txt", false, heat.KindChange, now)
	ts.RemoveNode("/root/a.txt", heat.KindUnlink, now)

	a, _ := ts.Lookup("/root/a.txt")
	if a.EventKind != heat.KindUnlink {
		t.Fatalf("expected unlink event kind, got %v", a.EventKind)
	}
	ts.CalculateAllHeat(now)
	if a.Heat < 90 {
		t.Fatalf("expected heat >= 90 right after unlink, got %v", a.Heat)
	}

	for i := 0; i < 3; i++ {
		ts.AdvanceGhosts()
	}
	if _, ok := ts.Lookup("/root/a.txt"); ok {
		t.Fatal("expected a.txt removed after 3 ghost ticks")
	}
	if len(ts.Ghosts) != 0 {
		t.Fatal("expected no ghosts remaining")
	}
	if _, ok := ts.Lookup("/root"); !ok {
		t.Fatal("root must remain")
	}
}

func TestChangeCountCountsHotDescendants(t *testing.T) {
	ts := newTestState()
	now := time.Now()
	ts.SetNode("/root/sub", true, heat.KindNone, time.Time{})
	ts.SetNode("/root/sub/hot.txt", false, heat.KindChange, now)
	ts.SetNode("/root/sub/cold.txt", false, heat.KindNone, time.Time{})
	ts.CalculateAllHeat(now)

	sub, ok := ts.Lookup("/root/sub")
	if !ok {
		t.Fatal("expected /root/sub to exist")
	}
	if got := ts.ChangeCount(sub); got != 1 {
		t.Errorf("expected 1 hot descendant under sub, got %d", got)
	}

	// Under root, both hot.txt and sub itself (heat 66 from its hot child)
	// are hot descendants.
	root, _ := ts.Lookup("/root")
	if got := ts.ChangeCount(root); got != 2 {
		t.Errorf("expected 2 hot descendants under root, got %d", got)
	}
}
