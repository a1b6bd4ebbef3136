// Package config parses heatwatch's command-line contract into a plain
// settings struct.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// Config holds every flag-configurable knob from the CLI contract.
type Config struct {
	Root           string
	HistoryLimit   int
	IgnorePatterns []string
	IntervalMs     int
	GhostSteps     int
	NoGit          bool
	BreatheMs      int
}

// stringList accumulates repeated -i/--ignore flags into a slice,
// falling back to the contract defaults if never supplied.
type stringList struct {
	values []string
	set    bool
}

func (s *stringList) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(s.values, ",")
}

func (s *stringList) Set(v string) error {
	s.values = append(s.values, v)
	s.set = true
	return nil
}

// Parse parses args (typically os.Args[1:]) into a Config. It never
// calls os.Exit itself — flag.ErrHelp is returned unwrapped so the
// caller can print usage and choose its own exit code.
func Parse(fs *flag.FlagSet, args []string, defaultIgnore []string) (Config, error) {
	history := fs.Int("history", 4, "rolling history size")
	fs.IntVar(history, "n", 4, "rolling history size (shorthand)")

	var ignore stringList
	fs.Var(&ignore, "ignore", "glob to ignore (repeatable)")
	fs.Var(&ignore, "i", "glob to ignore (repeatable, shorthand)")

	interval := fs.Int("interval", 100, "debounce interval in ms")
	ghostSteps := fs.Int("ghost-steps", 3, "ghost fade-out tick count")
	noGit := fs.Bool("no-git", false, "disable VCS integration")
	breathe := fs.Int("breathe", 2000, "breath tick interval in ms")
	fs.IntVar(breathe, "b", 2000, "breath tick interval in ms (shorthand)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	root := "."
	if rest := fs.Args(); len(rest) > 0 {
		root = rest[0]
	}

	patterns := defaultIgnore
	if ignore.set {
		patterns = ignore.values
	}

	cfg := Config{
		Root:           root,
		HistoryLimit:   *history,
		IgnorePatterns: patterns,
		IntervalMs:     *interval,
		GhostSteps:     *ghostSteps,
		NoGit:          *noGit,
		BreatheMs:      *breathe,
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history must be >= 0, got %d", c.HistoryLimit)
	}
	if c.IntervalMs <= 0 {
		return fmt.Errorf("interval must be > 0, got %d", c.IntervalMs)
	}
	if c.GhostSteps <= 0 {
		return fmt.Errorf("ghost-steps must be > 0, got %d", c.GhostSteps)
	}
	if c.BreatheMs <= 0 {
		return fmt.Errorf("breathe must be > 0, got %d", c.BreatheMs)
	}
	return nil
}

// Interval returns IntervalMs as a time.Duration.
func (c Config) Interval() time.Duration { return time.Duration(c.IntervalMs) * time.Millisecond }

// Breathe returns BreatheMs as a time.Duration.
func (c Config) Breathe() time.Duration { return time.Duration(c.BreatheMs) * time.Millisecond }
