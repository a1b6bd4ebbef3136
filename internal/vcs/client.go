package vcs

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

// ttl is the minimum interval between refreshes, matching the 1s TTL
// cache the orchestrator contract requires.
const ttl = 1 * time.Second

// maxAheadBehindWalk bounds the commit walk used to compute ahead/behind
// counters, so a huge history can never stall the event loop.
const maxAheadBehindWalk = 10_000

// Client holds a lock-free cached Snapshot for one watched root. Refresh
// may be called concurrently with Current; the exchange is a single
// atomic pointer swap, so readers never observe a half-built map.
type Client struct {
	root     string
	enabled  bool
	repo     *git.Repository
	snapshot atomic.Pointer[Snapshot]
	lastPoll atomic.Int64 // unix nanos of last successful/attempted refresh
}

// New opens root as a git repository, if possible. If root is not inside
// a git repository, the client stays permanently disabled and Current
// always returns an empty, unavailable Snapshot — VCS errors are always
// swallowed (spec §7).
func New(root string) *Client {
	c := &Client{root: root}
	c.snapshot.Store(Empty())

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return c
	}
	c.repo = repo
	c.enabled = true
	return c
}

// Disable permanently turns off VCS integration, for --no-git.
func (c *Client) Disable() {
	c.enabled = false
}

// Disabled reports whether this client is inactive, either because it
// was disabled or the root is not a git repository.
func (c *Client) Disabled() bool {
	return !c.enabled
}

// Current returns the most recently refreshed Snapshot without blocking.
func (c *Client) Current() *Snapshot {
	return c.snapshot.Load()
}

// Refresh rebuilds the snapshot if the TTL has elapsed, swallowing all
// errors and leaving the previous snapshot intact on failure.
func (c *Client) Refresh(ctx context.Context, now time.Time) {
	if !c.enabled {
		return
	}
	last := c.lastPoll.Load()
	if last != 0 && now.UnixNano()-last < int64(ttl) {
		return
	}
	c.lastPoll.Store(now.UnixNano())

	snap, err := c.buildSnapshot()
	if err != nil {
		return
	}
	c.snapshot.Store(snap)
}

func (c *Client) buildSnapshot() (*Snapshot, error) {
	wt, err := c.repo.Worktree()
	if err != nil {
		return nil, err
	}
	st, err := wt.Status()
	if err != nil {
		return nil, err
	}

	files := make(map[string]FileStatus, len(st))
	for p, fs := range st {
		class := classify(fs.Staging, fs.Worktree)
		if class == ClassNone {
			continue
		}
		files[filepath.ToSlash(p)] = FileStatus{Class: class}
	}

	// Worktree.Status() diffs HEAD against the index and the index
	// against the worktree; it never reads the index's own per-entry
	// stage, so an unresolved merge conflict never reaches classify()
	// above. Conflicts live in the index directly as multiple stage
	// entries (1=ancestor, 2=ours, 3=theirs) for the same path, so read
	// them straight from the index and let conflict win regardless of
	// whatever classify() decided for that path.
	for _, p := range c.conflictedPaths() {
		files[p] = FileStatus{Class: ClassConflict}
	}

	ahead, behind := c.aheadBehind()

	return &Snapshot{
		Files:     files,
		Dirs:      aggregateDirs(files),
		Ahead:     ahead,
		Behind:    behind,
		Available: true,
	}, nil
}

// conflictedPaths reads the repository's index directly and returns
// every path carrying a nonzero stage. Stage 0 is a normal, fully
// merged entry; stages 1-3 (ancestor/ours/theirs) only coexist for a
// path while a merge conflict is unresolved, so any entry with a
// nonzero stage marks its path as conflicted. A conflicted path
// appears up to three times, once per stage, so the result is deduped.
func (c *Client) conflictedPaths() []string {
	idx, err := c.repo.Storer.Index()
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var paths []string
	for _, e := range idx.Entries {
		if e.Stage == index.Stage(0) {
			continue
		}
		name := filepath.ToSlash(e.Name)
		if !seen[name] {
			seen[name] = true
			paths = append(paths, name)
		}
	}
	return paths
}

// classify implements the two-column classification rules from §6:
// untracked when the worktree column is Untracked; both when staging
// and worktree are each non-unmodified and non-untracked; unstaged
// when only the worktree column carries a change; staged when only the
// staging column does. Conflicts are not decided here — see
// conflictedPaths, which overrides whatever this returns for a
// conflicted path. Renamed is treated the same as a staging-column
// change, so only the entry's current (new) path is classified —
// matching S6's expectation that old.txt never appears separately.
func classify(staging, worktree git.StatusCode) StatusClass {
	if worktree == git.Untracked {
		return ClassUntracked
	}
	stagingChanged := staging != git.Unmodified
	worktreeChanged := worktree != git.Unmodified
	switch {
	case stagingChanged && worktreeChanged:
		return ClassBoth
	case worktreeChanged:
		return ClassUnstaged
	case stagingChanged:
		return ClassStaged
	default:
		return ClassNone
	}
}

// aheadBehind walks from HEAD and from its upstream tracking branch to
// count commits unique to each side, bounded by maxAheadBehindWalk. Any
// failure (detached HEAD, no upstream, shallow clone) yields 0, 0.
func (c *Client) aheadBehind() (ahead, behind int) {
	headRef, err := c.repo.Head()
	if err != nil || !headRef.Name().IsBranch() {
		return 0, 0
	}
	branchCfg, err := c.repo.Reference(headRef.Name(), true)
	if err != nil {
		return 0, 0
	}
	cfg, err := c.repo.Config()
	if err != nil {
		return 0, 0
	}
	branchName := headRef.Name().Short()
	branchInfo, ok := cfg.Branches[branchName]
	if !ok || branchInfo.Merge == "" {
		return 0, 0
	}
	remoteName := branchInfo.Remote
	if remoteName == "" {
		remoteName = "origin"
	}
	upstreamRefName := plumbing.ReferenceName("refs/remotes/" + remoteName + "/" + branchInfo.Merge.Short())
	upstreamRef, err := c.repo.Reference(upstreamRefName, true)
	if err != nil {
		return 0, 0
	}

	headSet := c.reachable(branchCfg.Hash())
	upstreamSet := c.reachable(upstreamRef.Hash())

	for h := range headSet {
		if _, inUpstream := upstreamSet[h]; !inUpstream {
			ahead++
		}
	}
	for h := range upstreamSet {
		if _, inHead := headSet[h]; !inHead {
			behind++
		}
	}
	return ahead, behind
}

// reachable returns the set of commit hashes reachable from start,
// bounded by maxAheadBehindWalk commits.
func (c *Client) reachable(start plumbing.Hash) map[plumbing.Hash]struct{} {
	seen := make(map[plumbing.Hash]struct{})
	queue := []plumbing.Hash{start}
	for len(queue) > 0 && len(seen) < maxAheadBehindWalk {
		h := queue[0]
		queue = queue[1:]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		commit, err := c.repo.CommitObject(h)
		if err != nil {
			continue
		}
		for _, p := range commit.ParentHashes {
			queue = append(queue, p)
		}
	}
	return seen
}
