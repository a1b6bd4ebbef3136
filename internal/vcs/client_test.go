package vcs

import (
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/index"
)

func TestConflictedPathsReadsIndexStage(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}

	idx := &index.Index{Version: 2}
	idx.Entries = append(idx.Entries,
		&index.Entry{Name: "conflict.txt", Stage: index.AncestorMode},
		&index.Entry{Name: "conflict.txt", Stage: index.OurMode},
		&index.Entry{Name: "conflict.txt", Stage: index.TheirMode},
		&index.Entry{Name: "clean.txt"},
	)
	if err := repo.Storer.SetIndex(idx); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}

	c := &Client{root: dir, enabled: true, repo: repo}
	paths := c.conflictedPaths()
	if len(paths) != 1 || paths[0] != "conflict.txt" {
		t.Errorf("expected exactly [conflict.txt], got %v", paths)
	}
}

func TestClassifyNeverReturnsConflict(t *testing.T) {
	// Conflicts are decided by conflictedPaths from the raw index, not by
	// classify — Worktree.Status() never assigns UpdatedButUnmerged, so
	// classify has no conflict branch to test here.
	if got := classify(git.Added, git.Modified); got != ClassBoth {
		t.Errorf("expected both, got %v", got)
	}
}

func TestClassifyUntracked(t *testing.T) {
	if got := classify(git.Unmodified, git.Untracked); got != ClassUntracked {
		t.Errorf("expected untracked, got %v", got)
	}
}

func TestClassifyStagedOnly(t *testing.T) {
	if got := classify(git.Added, git.Unmodified); got != ClassStaged {
		t.Errorf("expected staged, got %v", got)
	}
}

func TestClassifyUnstagedOnly(t *testing.T) {
	if got := classify(git.Unmodified, git.Modified); got != ClassUnstaged {
		t.Errorf("expected unstaged, got %v", got)
	}
}

func TestClassifyBoth(t *testing.T) {
	if got := classify(git.Added, git.Modified); got != ClassBoth {
		t.Errorf("expected both, got %v", got)
	}
}

func TestClassifyRenameOnlyClassifiesNewPath(t *testing.T) {
	// S6: "R  old.txt -> new.txt" classifies only new.txt as staged; old.txt
	// never appears as a separate map entry because go-git's Status map is
	// already keyed by the file's current path.
	if got := classify(git.Renamed, git.Unmodified); got != ClassStaged {
		t.Errorf("expected rename to classify as staged, got %v", got)
	}
}

func TestAggregateDirsMaxPriority(t *testing.T) {
	files := map[string]FileStatus{
		"src/a.go": {Class: ClassUntracked},
		"src/b.go": {Class: ClassConflict},
	}
	dirs := aggregateDirs(files)
	if dirs["src"].Class != ClassConflict {
		t.Errorf("expected src aggregated to conflict, got %v", dirs["src"].Class)
	}
}

func TestScenarioS5VcsPrecedenceOverHeat(t *testing.T) {
	// a is untracked (status present), b has no status but higher heat.
	// Layout sort treats "status present" before "no status" regardless
	// of heat; this test only asserts the classification half of that.
	files := map[string]FileStatus{"a": {Class: ClassUntracked}}
	if _, ok := files["b"]; ok {
		t.Fatal("b must have no status entry")
	}
	if files["a"].Class.priority() <= ClassNone.priority() {
		t.Error("a must outrank an absent status")
	}
}
