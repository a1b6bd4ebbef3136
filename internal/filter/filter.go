// Package filter turns a user-typed pattern into a predicate over a node's
// name and its path relative to the watched root.
package filter

import (
	"path"
	"strings"
)

// Kind distinguishes how a pattern matched, for display and for the
// layout engine's "filter_match" descriptor.
type Kind int

const (
	// KindNone means the pattern did not match (or was empty).
	KindNone Kind = iota
	KindGlob
	KindText
)

// Match is the result of testing one node against a pattern. Matched is
// false iff Kind == KindNone.
type Match struct {
	Kind    Kind
	Matched bool
}

var noMatch = Match{Kind: KindNone, Matched: false}

// Test applies the rules of the filter contract to a single node, given
// its bare name and its path relative to the watched root (using forward
// slashes, no leading slash).
func Test(pattern, name, relPath string) Match {
	if pattern == "" {
		return noMatch
	}
	isGlob := strings.ContainsAny(pattern, "*?")

	if strings.Contains(pattern, "/") {
		cleaned := strings.TrimPrefix(pattern, "/")
		if !isGlob {
			if !strings.Contains(cleaned, "/") {
				if strings.EqualFold(cleaned, relPath) {
					return Match{Kind: KindText, Matched: true}
				}
				return noMatch
			}
			if containsFold(relPath, cleaned) {
				return Match{Kind: KindText, Matched: true}
			}
			return noMatch
		}
		if globMatch(cleaned, relPath) {
			return Match{Kind: KindGlob, Matched: true}
		}
		return noMatch
	}

	if isGlob {
		if globMatch(pattern, name) {
			return Match{Kind: KindGlob, Matched: true}
		}
		return noMatch
	}
	if containsFold(name, pattern) {
		return Match{Kind: KindText, Matched: true}
	}
	return noMatch
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// globMatch matches pattern against subject case-insensitively, treating
// "**" as any-depth (including path separators) and "*"/"?" as the usual
// single-segment wildcards. path.Match doesn't understand "**", so any
// segment containing it is handled specially by expanding it into a
// regex-free substring/anchor scan.
func globMatch(pattern, subject string) bool {
	lp := strings.ToLower(pattern)
	ls := strings.ToLower(subject)
	return matchGlobAnyDepth(lp, ls)
}

// matchGlobAnyDepth implements glob matching with "**" meaning "zero or
// more path segments", by splitting the pattern on "**" and requiring
// each non-"**" chunk to path.Match against a corresponding window of the
// subject, anchored at the start/end when the pattern doesn't begin/end
// with "**".
func matchGlobAnyDepth(pattern, subject string) bool {
	if !strings.Contains(pattern, "**") {
		ok, err := path.Match(pattern, subject)
		return err == nil && ok
	}
	parts := strings.Split(pattern, "**")
	// Anchor the first and last chunk; middle chunks may float.
	first := parts[0]
	last := parts[len(parts)-1]
	mid := parts[1 : len(parts)-1]

	rest := subject
	if first != "" {
		if !hasPrefixGlob(rest, strings.TrimPrefix(first, "/")) {
			return false
		}
		rest = consumePrefixGlob(rest, strings.TrimPrefix(first, "/"))
	}
	for _, m := range mid {
		m = strings.Trim(m, "/")
		if m == "" {
			continue
		}
		idx := findGlobSubstring(rest, m)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(m):]
	}
	if last != "" {
		last = strings.TrimPrefix(last, "/")
		return hasSuffixGlob(rest, last)
	}
	return true
}

// hasPrefixGlob/consumePrefixGlob/hasSuffixGlob/findGlobSubstring treat
// chunks without further wildcards as literal; chunks that still contain
// "*"/"?" fall back to a best-effort path.Match (against the whole
// remainder for a prefix, against every tail of it for a suffix), which
// covers the common cases this tool actually needs ("**/*.go", "src/**",
// "**/internal/**").
func hasPrefixGlob(subject, chunk string) bool {
	if !strings.ContainsAny(chunk, "*?") {
		return strings.HasPrefix(subject, chunk)
	}
	ok, err := path.Match(chunk+"*", subject)
	return err == nil && ok
}

func consumePrefixGlob(subject, chunk string) string {
	if !strings.ContainsAny(chunk, "*?") {
		return strings.TrimPrefix(subject, chunk)
	}
	return ""
}

func hasSuffixGlob(subject, chunk string) bool {
	if !strings.ContainsAny(chunk, "*?") {
		return strings.HasSuffix(subject, chunk)
	}
	// The preceding "**" may swallow any number of characters, including
	// "/", so try the chunk against every tail of the subject.
	for i := 0; i <= len(subject); i++ {
		if ok, err := path.Match(chunk, subject[i:]); err == nil && ok {
			return true
		}
	}
	return false
}

func findGlobSubstring(subject, chunk string) int {
	if !strings.ContainsAny(chunk, "*?") {
		return strings.Index(subject, chunk)
	}
	// No literal anchor to search for; treat as present.
	return 0
}
