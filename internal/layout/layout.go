// Package layout flattens a treestate.TreeState into an ordered,
// weight-ranked list of display lines and trims it to fit the terminal's
// available rows without breaking display order.
package layout

import (
	"path/filepath"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ashgrove/heatwatch/internal/filter"
	"github.com/ashgrove/heatwatch/internal/heat"
	"github.com/ashgrove/heatwatch/internal/treestate"
	"github.com/ashgrove/heatwatch/internal/vcs"
)

// Weights for the additive scheme of §4.4. Like heat.Weights, this is
// plain exported data so callers can retune without touching code paths.
type Weights struct {
	RootWeight       float64
	TypeFile         float64
	TypeDir          float64
	VcsConflict      float64
	VcsUnstaged      float64
	VcsBoth          float64
	VcsStaged        float64
	VcsUntracked     float64
	HeatBucketHot    float64
	EventUnlink      float64
	EventAdd         float64
	EventChange      float64
	EventRename      float64
	ContextHotDesc   float64
	ContextHistory   float64
	ContextGhost     float64
	FilterMatch      float64
	HeatDeadBand     float64
	HeaderRows       int
	FooterRows       int
	MinRows          int
}

// DefaultWeights returns the contract defaults from spec.md §4.4.
func DefaultWeights() Weights {
	return Weights{
		RootWeight:     10_000,
		TypeFile:       50,
		TypeDir:        100,
		VcsConflict:    800,
		VcsUnstaged:    700,
		VcsBoth:        650,
		VcsStaged:      600,
		VcsUntracked:   500,
		HeatBucketHot:  350,
		EventUnlink:    150,
		EventAdd:       75,
		EventChange:    50,
		EventRename:    25,
		ContextHotDesc: 200,
		ContextHistory: 100,
		ContextGhost:   50,
		FilterMatch:    9_000,
		HeatDeadBand:   5,
		HeaderRows:     2,
		FooterRows:     1,
		MinRows:        5,
	}
}

// Line is one candidate (or, after Select, surviving) entry.
type Line struct {
	Node            *treestate.Node
	Depth           int
	DisplayOrder    int
	Weight          float64
	IsLastSibling   bool
	ParentContinues []bool // per ancestor level, whether that ancestor has a later sibling
	FilterMatch     filter.Match
	VcsClass        vcs.StatusClass
}

// Result is the trimmed line list plus the bookkeeping the renderer and
// tests need.
type Result struct {
	Lines         []Line
	TotalRows     int
	AvailableRows int
	Collapsed     bool
	RootPath      string
}

var collator = collate.New(language.Und, collate.IgnoreCase)

// Build runs the per-render pipeline: flatten, weigh, select. Heats must
// already be current (the caller runs ts.CalculateAllHeat first).
func Build(ts *treestate.TreeState, snap *vcs.Snapshot, pattern string, terminalRows int, w Weights) Result {
	if snap == nil {
		snap = vcs.Empty()
	}
	candidates := flatten(ts, snap, pattern, w)
	weigh(candidates, w, ts.Weights)
	markHistory(candidates, ts, w)

	available := terminalRows - w.HeaderRows - w.FooterRows
	if available < w.MinRows {
		available = w.MinRows
	}

	selected := sel(candidates, available)
	return Result{
		Lines:         selected,
		TotalRows:     len(candidates),
		AvailableRows: available,
		Collapsed:     len(selected) < len(candidates),
		RootPath:      ts.Root.Path,
	}
}

// flatten performs the ordered preorder DFS described in §4.4 step 2.
func flatten(ts *treestate.TreeState, snap *vcs.Snapshot, pattern string, w Weights) []Line {
	var out []Line
	var walk func(n *treestate.Node, depth int, isLast bool, parentContinues []bool)
	walk = func(n *treestate.Node, depth int, isLast bool, parentContinues []bool) {
		rel := relPath(ts.Root.Path, n.Path)
		vclass := lookupVcsClass(snap, n.IsDir, rel)
		m := filter.Test(pattern, n.Name, rel)

		out = append(out, Line{
			Node:            n,
			Depth:           depth,
			DisplayOrder:    len(out),
			IsLastSibling:   isLast,
			ParentContinues: parentContinues,
			FilterMatch:     m,
			VcsClass:        vclass,
		})

		if !n.IsDir || len(n.Children) == 0 {
			return
		}
		children := orderChildren(n, snap, ts.Root.Path, w)
		childContinues := append(append([]bool(nil), parentContinues...), !isLast)
		for i, c := range children {
			walk(c, depth+1, i == len(children)-1, childContinues)
		}
	}
	walk(ts.Root, 0, true, nil)
	return out
}

// orderChildren sorts one directory's children per the rules of §4.4 step
// 2: directories before files, VCS-present before absent, then heat
// descending outside a 5-point dead-band, falling back to locale-aware
// case-insensitive name order.
func orderChildren(n *treestate.Node, snap *vcs.Snapshot, rootPath string, w Weights) []*treestate.Node {
	children := make([]*treestate.Node, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, c)
	}
	hasVcs := snap.Available
	sort.SliceStable(children, func(i, j int) bool {
		a, b := children[i], children[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		if hasVcs {
			ai := lookupVcsClass(snap, a.IsDir, relPath(rootPath, a.Path)) != vcs.ClassNone
			bi := lookupVcsClass(snap, b.IsDir, relPath(rootPath, b.Path)) != vcs.ClassNone
			if ai != bi {
				return ai
			}
		}
		if diff := a.Heat - b.Heat; diff > w.HeatDeadBand || diff < -w.HeatDeadBand {
			return a.Heat > b.Heat
		}
		return collator.CompareString(a.Name, b.Name) < 0
	})
	return children
}

func lookupVcsClass(snap *vcs.Snapshot, isDir bool, rel string) vcs.StatusClass {
	if snap == nil || !snap.Available || rel == "" {
		return vcs.ClassNone
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		return snap.Dirs[rel].Class
	}
	return snap.Files[rel].Class
}

func relPath(root, path string) string {
	if path == root {
		return ""
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

// weigh assigns each candidate's additive weight per §4.4 step 3. hw is
// the TreeState's own heat.Weights, so the "hot" bucket threshold tracks
// whatever HotThresh the tree was actually configured with, not a
// hardcoded default.
func weigh(lines []Line, w Weights, hw heat.Weights) {
	for i := range lines {
		l := &lines[i]
		if l.Depth == 0 {
			l.Weight = w.RootWeight
			continue
		}
		var sum float64
		if l.Node.IsDir {
			sum += w.TypeDir
		} else {
			sum += w.TypeFile
		}
		sum += vcsWeight(l.VcsClass, w)
		if heat.IsHot(hw, l.Node.Heat) {
			sum += w.HeatBucketHot
		}
		sum += eventWeight(l.Node, w)
		sum += contextWeight(l.Node, w, hw)
		if l.FilterMatch.Matched {
			sum += w.FilterMatch
		}
		sum += l.Node.Heat
		l.Weight = sum
	}
}

func vcsWeight(c vcs.StatusClass, w Weights) float64 {
	switch c {
	case vcs.ClassConflict:
		return w.VcsConflict
	case vcs.ClassUnstaged:
		return w.VcsUnstaged
	case vcs.ClassBoth:
		return w.VcsBoth
	case vcs.ClassStaged:
		return w.VcsStaged
	case vcs.ClassUntracked:
		return w.VcsUntracked
	default:
		return 0
	}
}

func eventWeight(n *treestate.Node, w Weights) float64 {
	switch n.EventKind {
	case heat.KindUnlink, heat.KindUnlinkDir:
		return w.EventUnlink
	case heat.KindAdd, heat.KindAddDir:
		return w.EventAdd
	case heat.KindChange:
		return w.EventChange
	case heat.KindRename:
		return w.EventRename
	default:
		return 0
	}
}

func hasHotDescendant(n *treestate.Node, hw heat.Weights) bool {
	for _, c := range n.Children {
		if heat.IsHot(hw, c.Heat) || hasHotDescendant(c, hw) {
			return true
		}
	}
	return false
}

func contextWeight(n *treestate.Node, w Weights, hw heat.Weights) float64 {
	var sum float64
	if n.IsDir && hasHotDescendant(n, hw) {
		sum += w.ContextHotDesc
	}
	if n.Ghost {
		sum += w.ContextGhost
	}
	return sum
}

// markHistory adds the in-history bonus to lines whose node is currently
// in ts.History. Split out from weigh because membership requires the
// tree's history slice, not just the node itself.
func markHistory(lines []Line, ts *treestate.TreeState, w Weights) {
	for i := range lines {
		if ts.IsInHistory(lines[i].Node.Path) {
			lines[i].Weight += w.ContextHistory
		}
	}
}

// sel implements §4.4 step 4: if everything fits, keep it all; otherwise
// rank by weight, keep the top `available`, then restore display order.
func sel(candidates []Line, available int) []Line {
	if len(candidates) <= available {
		out := make([]Line, len(candidates))
		copy(out, candidates)
		return out
	}
	ranked := make([]Line, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight > ranked[j].Weight
	})
	kept := ranked[:available]
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].DisplayOrder < kept[j].DisplayOrder
	})
	return kept
}

// MatchCount reports how many candidate lines currently match pattern,
// used by the UI layer to drive filter-mode's single-match auto-jump.
func MatchCount(lines []Line) int {
	n := 0
	for _, l := range lines {
		if l.FilterMatch.Matched {
			n++
		}
	}
	return n
}

// FirstMatchIndex returns the index of the first matching line, or -1.
func FirstMatchIndex(lines []Line) int {
	for i, l := range lines {
		if l.FilterMatch.Matched {
			return i
		}
	}
	return -1
}

// DisplayName returns a line's node name, with a trailing "/" for
// directories; the UI layer styles and prints it.
func DisplayName(l Line) string {
	if l.Node.IsDir {
		return l.Node.Name + "/"
	}
	return l.Node.Name
}
