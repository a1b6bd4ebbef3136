package ignore

import "testing"

func TestDefaultPatternsIgnoreByBaseName(t *testing.T) {
	m := New("/root", DefaultPatterns)
	if !m.Match("/root/node_modules", true) {
		t.Error("expected node_modules to be ignored")
	}
	if !m.Match("/root/a/b/.git", true) {
		t.Error("expected .git to be ignored at any depth")
	}
	if m.Match("/root/src/main.go", false) {
		t.Error("unexpected ignore of main.go")
	}
}

func TestGlobPattern(t *testing.T) {
	m := New("/root", []string{"*.log"})
	if !m.Match("/root/app.log", false) {
		t.Error("expected *.log to match app.log")
	}
	if m.Match("/root/app.txt", false) {
		t.Error("unexpected match of app.txt")
	}
}

func TestMissingGitignoreIsFine(t *testing.T) {
	m := New("/nonexistent/path/for/test", nil)
	if m.Match("/nonexistent/path/for/test/file.txt", false) {
		t.Error("no patterns should mean no match")
	}
}
