// Package ui implements heatwatch's bubbletea Model: the tree view,
// filter input, and keyboard contract that sit on top of the tree-state,
// heat, layout, and vcs packages.
package ui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashgrove/heatwatch/internal/applog"
	"github.com/ashgrove/heatwatch/internal/heat"
	"github.com/ashgrove/heatwatch/internal/layout"
	"github.com/ashgrove/heatwatch/internal/treestate"
	"github.com/ashgrove/heatwatch/internal/vcs"
	"github.com/ashgrove/heatwatch/internal/watch"
)

const ghostTickInterval = 1 * time.Second

// Model is the top-level bubbletea program state.
type Model struct {
	tree       *treestate.TreeState
	heatW      heat.Weights
	layoutW    layout.Weights
	vcsClient  *vcs.Client
	watcher    *watch.Watcher
	log        *applog.Logger
	breathe    time.Duration
	ghostSteps int

	batches     <-chan []watch.Event
	inventory   <-chan []watch.InventoryEntry
	watchErrs   <-chan error

	filterMode    bool
	filterInput   textinput.Model
	filterPattern string

	cursor       int
	result       layout.Result
	termWidth    int
	termHeight   int
	statusMsg    string
	seeded       bool
	quitting     bool
	selectedPath string
}

// NewModel wires a fresh Model around an already-constructed TreeState,
// VCS client, and Watcher. The caller (cmd/heatwatch) owns starting the
// watcher and feeding its channels in.
func NewModel(
	tree *treestate.TreeState,
	vcsClient *vcs.Client,
	watcher *watch.Watcher,
	log *applog.Logger,
	breathe time.Duration,
	ghostSteps int,
	batches <-chan []watch.Event,
	inventory <-chan []watch.InventoryEntry,
	watchErrs <-chan error,
) Model {
	ti := textinput.New()
	ti.Placeholder = "filter"
	ti.CharLimit = 256
	ti.Width = 30
	ti.Blur()

	return Model{
		tree:        tree,
		heatW:       heat.DefaultWeights(),
		layoutW:     layout.DefaultWeights(),
		vcsClient:   vcsClient,
		watcher:     watcher,
		log:         log,
		breathe:     breathe,
		ghostSteps:  ghostSteps,
		batches:     batches,
		inventory:   inventory,
		watchErrs:   watchErrs,
		filterInput: ti,
		termWidth:   80,
		termHeight:  24,
	}
}

type batchMsg []watch.Event
type inventoryMsg []watch.InventoryEntry
type watchErrMsg error
type ghostTickMsg time.Time
type breatheTickMsg time.Time
type vcsRefreshedMsg struct{}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForInventory(m.inventory),
		waitForBatch(m.batches),
		waitForWatchErr(m.watchErrs),
		tickGhost(),
		tickBreathe(m.breathe),
	)
}

func waitForInventory(ch <-chan []watch.InventoryEntry) tea.Cmd {
	return func() tea.Msg {
		entries, ok := <-ch
		if !ok {
			return nil
		}
		return inventoryMsg(entries)
	}
}

func waitForBatch(ch <-chan []watch.Event) tea.Cmd {
	return func() tea.Msg {
		batch, ok := <-ch
		if !ok {
			return nil
		}
		return batchMsg(batch)
	}
}

func waitForWatchErr(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return nil
		}
		return watchErrMsg(err)
	}
}

func tickGhost() tea.Cmd {
	return tea.Tick(ghostTickInterval, func(t time.Time) tea.Msg { return ghostTickMsg(t) })
}

func tickBreathe(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return breatheTickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case inventoryMsg:
		for _, e := range msg {
			m.tree.SetNode(e.Path, e.IsDir, heat.KindNone, time.Time{})
		}
		m.tree.ClearEvents()
		m.seeded = true
		m.recompute()
		return m, nil

	case batchMsg:
		now := time.Now()
		for _, ev := range msg {
			switch ev.Kind {
			case heat.KindUnlink, heat.KindUnlinkDir:
				m.tree.RemoveNode(ev.Path, ev.Kind, now)
			default:
				m.tree.SetNode(ev.Path, ev.IsDir, ev.Kind, now)
			}
		}
		if m.vcsClient != nil {
			m.vcsClient.Refresh(context.Background(), now)
		}
		m.recompute()
		return m, waitForBatch(m.batches)

	case watchErrMsg:
		if msg != nil {
			m.statusMsg = fmt.Sprintf("watch error: %v", error(msg))
			if m.log != nil {
				m.log.Error("watch error", "err", error(msg))
			}
		}
		return m, waitForWatchErr(m.watchErrs)

	case ghostTickMsg:
		if len(m.tree.Ghosts) > 0 {
			m.tree.AdvanceGhosts()
			m.recompute()
		}
		return m, tickGhost()

	case breatheTickMsg:
		if m.tree.HasHotItems() {
			m.recompute()
		}
		return m, tickBreathe(m.breathe)

	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.termHeight = msg.Height
		m.recompute()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filterMode {
		switch msg.String() {
		case "esc":
			m.filterMode = false
			m.filterPattern = ""
			m.filterInput.SetValue("")
			m.filterInput.Blur()
			m.recompute()
			return m, nil
		case "enter":
			m.filterMode = false
			m.filterInput.Blur()
			m.openSelected()
			return m, nil
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			m.filterPattern = m.filterInput.Value()
			m.cursor = 0
			m.recompute()
			if layout.MatchCount(m.result.Lines) == 1 {
				if idx := layout.FirstMatchIndex(m.result.Lines); idx >= 0 {
					m.cursor = idx
				}
			}
			return m, cmd
		}
	}

	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		if m.watcher != nil {
			m.watcher.Stop()
		}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.result.Lines)-1 {
			m.cursor++
		}
	case "enter":
		m.openSelected()
	case "/":
		m.filterMode = true
		m.filterInput.Focus()
	}
	return m, nil
}

func (m *Model) recompute() {
	now := time.Now()
	m.tree.CalculateAllHeat(now)
	var snap *vcs.Snapshot
	if m.vcsClient != nil {
		snap = m.vcsClient.Current()
	}
	rows := m.termHeight
	if rows <= 0 {
		rows = 24
	}
	m.result = layout.Build(m.tree, snap, m.filterPattern, rows, m.layoutW)
	if m.cursor >= len(m.result.Lines) {
		m.cursor = len(m.result.Lines) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) openSelected() {
	if m.cursor < 0 || m.cursor >= len(m.result.Lines) {
		return
	}
	path := m.result.Lines[m.cursor].Node.Path
	m.selectedPath = path
	go openPath(path)
}

// openPath fires an OS "open" handler for path and ignores any error
// (spec §7: open-selected failures are silently ignored).
func openPath(path string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	_ = cmd.Start()
}

// Quitting reports whether the user asked to exit. cmd/heatwatch exits 0
// after a normal program return either way.
func (m Model) Quitting() bool { return m.quitting }

func (m Model) View() string {
	if !m.seeded {
		return "heatwatch: scanning...\n"
	}

	header := headerStyle.Render(m.tree.Root.Path)
	if m.filterMode {
		header = lipgloss.JoinHorizontal(lipgloss.Left, header, "  ", filterStyle.Render("/"+m.filterInput.View()))
	} else if m.filterPattern != "" {
		header = lipgloss.JoinHorizontal(lipgloss.Left, header, "  ", filterStyle.Render("filter: "+m.filterPattern))
	}

	var b strings.Builder
	for i, l := range m.result.Lines {
		b.WriteString(renderLine(l, i == m.cursor, m.heatW, m.tree))
		b.WriteString("\n")
	}

	footer := footerStyle.Render(m.footerText())
	return lipgloss.JoinVertical(lipgloss.Left, header, b.String(), footer)
}

func (m Model) footerText() string {
	if m.statusMsg != "" {
		return m.statusMsg
	}
	status := fmt.Sprintf("%d/%d lines", len(m.result.Lines), m.result.TotalRows)
	if m.result.Collapsed {
		status += " (collapsed)"
	}
	if m.vcsClient != nil && !m.vcsClient.Disabled() {
		snap := m.vcsClient.Current()
		if snap.Available {
			status += fmt.Sprintf("  ahead %d / behind %d", snap.Ahead, snap.Behind)
		}
	}
	status += "  /: filter  enter: open  ctrl+c: quit"
	return status
}
