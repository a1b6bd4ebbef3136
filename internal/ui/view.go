package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashgrove/heatwatch/internal/heat"
	"github.com/ashgrove/heatwatch/internal/layout"
	"github.com/ashgrove/heatwatch/internal/treestate"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	filterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	ghostStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	matchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

var heatColors = map[heat.ColorBucket]string{
	heat.ColorBlue:      "39",
	heat.ColorCyan:      "86",
	heat.ColorMagenta:   "205",
	heat.ColorRed:       "203",
	heat.ColorBrightRed: "196",
}

// renderLine draws one tree prefix, heat bar, vcs glyph, name, and — for
// a directory with any hot descendant — a trailing "(N changes)"
// annotation (spec.md §4.2's change_count).
func renderLine(l layout.Line, selected bool, hw heat.Weights, ts *treestate.TreeState) string {
	var prefix strings.Builder
	for _, cont := range l.ParentContinues {
		if cont {
			prefix.WriteString("│ ")
		} else {
			prefix.WriteString("  ")
		}
	}
	if l.Depth > 0 {
		if l.IsLastSibling {
			prefix.WriteString("└─")
		} else {
			prefix.WriteString("├─")
		}
	}

	bar := heat.Bar(hw, l.Node.Heat)
	colorName := heatColors[heat.Color(l.Node.Heat)]
	barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorName))

	name := layout.DisplayName(l)
	nameStyle := lipgloss.NewStyle()
	if selected {
		nameStyle = cursorStyle
	} else if l.Node.Ghost {
		nameStyle = ghostStyle
	} else if l.FilterMatch.Matched {
		nameStyle = matchStyle
	}

	cursor := "  "
	if selected {
		cursor = "> "
	}

	vcsGlyph := " "
	if l.VcsClass != 0 {
		vcsGlyph = l.VcsClass.Symbol()
	}

	rendered := cursor + prefix.String() + "[" + barStyle.Render(bar) + "] " + vcsGlyph + " " + nameStyle.Render(name)
	if l.Node.IsDir && ts != nil {
		if n := ts.ChangeCount(l.Node); n > 0 {
			rendered += footerStyle.Render(fmt.Sprintf(" (%d changes)", n))
		}
	}
	return rendered
}
