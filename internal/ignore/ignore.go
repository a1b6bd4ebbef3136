// Package ignore decides whether a path under the watched root should be
// excluded from watching, the initial inventory walk, and layout.
package ignore

import (
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
)

// DefaultPatterns are the CLI contract's --ignore defaults.
var DefaultPatterns = []string{"node_modules", ".git", "dist"}

// Matcher tests a path against a set of base-name/glob patterns plus an
// optional .gitignore found at the watched root.
type Matcher struct {
	patterns []string
	gitign   gitignore.IgnoreMatcher
	root     string
}

// New builds a Matcher rooted at root. patterns are glob-or-literal
// base-name rules (as supplied via repeated --ignore flags); if root
// contains a .gitignore, its rules are also honored.
func New(root string, patterns []string) *Matcher {
	m := &Matcher{patterns: patterns, root: root}
	if gi, err := gitignore.NewGitIgnore(filepath.Join(root, ".gitignore")); err == nil {
		m.gitign = gi
	}
	return m
}

// Match reports whether path (absolute, somewhere under root) should be
// ignored. The --ignore patterns match files and directories alike; isDir
// is passed on to the .gitignore matcher for its directory-only rules.
// Callers that walk the tree skip the whole subtree of an ignored
// directory.
func (m *Matcher) Match(path string, isDir bool) bool {
	name := filepath.Base(path)
	for _, p := range m.patterns {
		if matchOne(p, name, path) {
			return true
		}
	}
	if m.gitign != nil && m.gitign.Match(path, isDir) {
		return true
	}
	return false
}

func matchOne(pattern, name, fullPath string) bool {
	if ok, err := filepath.Match(pattern, name); err == nil && ok {
		return true
	}
	if strings.ContainsAny(pattern, "*?") {
		if ok, err := filepath.Match(pattern, fullPath); err == nil && ok {
			return true
		}
		return false
	}
	return name == pattern
}
