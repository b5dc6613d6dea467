// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/confighub/cub-explorer/internal/clierr"
	"github.com/confighub/cub-explorer/internal/kubecontext"
	"github.com/confighub/cub-explorer/pkg/explorer"
	"github.com/confighub/cub-explorer/pkg/logs"
	"github.com/confighub/cub-explorer/pkg/manifest"
	"github.com/confighub/cub-explorer/pkg/resource"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	contextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	namespaceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	hoverStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141"))

	statusOK = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	statusWarn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	statusErr = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	paneActiveStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1)

	detailsHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	infoKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("69")).
			Bold(true)

	// Help bar styles
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	helpActionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	helpDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

// layout holds the pane geometry for the current window size.
type layout struct {
	leftWidth    int
	rightWidth   int
	bodyHeight   int
	infoHeight   int
	treeTop      int
	treeRows     int
	viewerWidth  int
	viewerHeight int
}

// frame is the border plus horizontal padding of a pane.
const frame = 2

func (m Model) layout() layout {
	var l layout
	l.leftWidth = m.width * 2 / 5
	l.rightWidth = m.width - l.leftWidth
	// header, status line and help bar
	l.bodyHeight = max(m.height-3, 6)
	l.infoHeight = max(l.bodyHeight/3, 5)
	l.treeTop = 2
	l.treeRows = max(l.bodyHeight-frame, 1)
	l.viewerWidth = max(l.rightWidth-2*frame, 10)
	// viewer title line
	l.viewerHeight = max(l.bodyHeight-l.infoHeight-frame-1, 1)
	return l
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	l := m.layout()
	left := m.pane(focusExplorer).
		Width(l.leftWidth - frame).
		Height(l.bodyHeight - frame).
		Render(m.renderTree(l.treeRows))
	info := m.pane(focusInfo).
		Width(l.rightWidth - frame).
		Height(l.infoHeight - frame).
		Render(m.renderInfo())
	viewer := m.pane(focusViewer).
		Width(l.rightWidth - frame).
		Height(l.bodyHeight - l.infoHeight - frame).
		Render(m.viewerTitle() + "\n" + m.viewer.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.JoinVertical(lipgloss.Left, info, viewer))
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderStatus(), m.renderHelpBar())
}

func (m Model) pane(p focusPane) lipgloss.Style {
	if m.focus == p {
		return paneActiveStyle
	}
	return paneStyle
}

func (m Model) renderHeader() string {
	header := titleStyle.Render("cub-explorer")
	if m.selected != nil {
		header += "  " + dimStyle.Render(strings.Join([]string{
			kubecontext.DisplayName(m.selected.Context), m.selected.Namespace, m.selected.Kind, m.selected.Name,
		}, " / "))
	}
	return header
}

func (m Model) renderTree(rows int) string {
	visible := m.tree.Visible()
	if len(visible) == 0 {
		return dimStyle.Render("No contexts in kubeconfig")
	}

	start, end := m.treeWindow(rows)
	hasFocus := m.focus == focusExplorer
	var b strings.Builder
	for i := start; i < end; i++ {
		n := visible[i]
		if i > start {
			b.WriteString("\n")
		}
		b.WriteString(strings.Repeat("  ", n.Depth()))
		b.WriteString(m.labels.Label(explorer.KeyFor(n, i == m.cursor, i == m.hover, hasFocus)))
	}
	return b.String()
}

// renderLabel is the label renderer behind the tree's LabelCache.
func renderLabel(k explorer.LabelKey) string {
	var pointer string
	switch {
	case k.IsCursor && k.HasFocus:
		pointer = activeStyle.Render("›") + " "
	case k.IsCursor:
		pointer = dimStyle.Render("›") + " "
	case k.IsHovered:
		pointer = hoverStyle.Render("·") + " "
	default:
		pointer = "  "
	}

	marker := "  "
	switch {
	case k.Loading:
		marker = "… "
	case k.HasChildren && k.Expanded:
		marker = "▼ "
	case k.HasChildren:
		marker = "▶ "
	}

	var name string
	switch k.Kind {
	case explorer.KindContext:
		name = contextStyle.Render(kubecontext.DisplayName(k.Name))
	case explorer.KindNamespace:
		name = namespaceStyle.Render(k.Name)
	default:
		name = dimStyle.Render(k.ResourceKind+"/") + k.Name
	}

	label := pointer + marker + name
	if k.Health != "" {
		label += " " + renderHealth(k.Health)
	}
	if k.Failed {
		label += " " + statusErr.Render("✗")
	}
	return label
}

func renderHealth(health string) string {
	switch health {
	case resource.StatusReady:
		return statusOK.Render(health)
	case resource.StatusNotReady, resource.StatusPending:
		return statusWarn.Render(health)
	case resource.StatusFailed:
		return statusErr.Render(health)
	}
	return dimStyle.Render(health)
}

func (m Model) cursorNode() *explorer.Node {
	visible := m.tree.Visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return nil
	}
	return visible[m.cursor]
}

func (m Model) renderInfo() string {
	var b strings.Builder
	row := func(k, v string) {
		fmt.Fprintf(&b, "%s %s\n", infoKeyStyle.Render(fmt.Sprintf("%-10s", k)), v)
	}

	if m.selected == nil {
		node := m.cursorNode()
		if node == nil {
			return dimStyle.Render("Nothing selected")
		}
		b.WriteString(detailsHeaderStyle.Render(titleCase(node.Kind.String())) + "\n")
		row("name", node.Name)
		row("state", node.State.String())
		if node.Err != nil {
			b.WriteString(statusErr.Render(clierr.Pretty(node.Err)))
		} else if node.Kind == explorer.KindNamespace && node.State == explorer.Loaded && len(node.Children) == 0 {
			b.WriteString(dimStyle.Render(clierr.NothingFound(node.Name)))
		}
		return strings.TrimRight(b.String(), "\n")
	}

	s := manifest.Summarize(*m.selected)
	b.WriteString(detailsHeaderStyle.Render("Summary") + "\n")
	row("kind", s.Kind)
	row("name", s.Name)
	row("namespace", s.Namespace)
	row("status", renderHealth(s.Health))
	row("manager", s.Manager)
	if len(s.Labels) > 0 {
		b.WriteString(detailsHeaderStyle.Render("Labels") + "\n")
		for _, p := range s.Labels {
			b.WriteString(infoKeyStyle.Render(p.Key) + "=" + p.Value + "\n")
		}
	}
	if len(s.Annotations) > 0 {
		b.WriteString(detailsHeaderStyle.Render("Annotations") + "\n")
		for _, p := range s.Annotations {
			b.WriteString(infoKeyStyle.Render(p.Key) + "\n  " + p.Value + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewerTitle() string {
	title := detailsHeaderStyle.Render(strings.ToUpper(m.format.String()))
	if m.format == manifest.FormatLogs && !m.logs.Live() {
		title += "  " + statusWarn.Render("⏸ paused")
	}
	return title
}

// renderEvents formats the published log feed for the viewer.
func renderEvents(events []logs.Event) string {
	if len(events) == 0 {
		return dimStyle.Render("No Logs to show")
	}
	var b strings.Builder
	for i, ev := range events {
		if i > 0 {
			b.WriteString("\n")
		}
		if ev.Synthetic && ev.Container == "" {
			b.WriteString(dimStyle.Render(ev.Message))
			continue
		}
		tag := lipgloss.NewStyle().Foreground(lipgloss.Color(ev.Color)).Render("[" + ev.Container + "]")
		b.WriteString(dimStyle.Render(ev.Timestamp.Local().Format("15:04:05")) + " " + tag + " " + ev.Message)
	}
	return b.String()
}

func (m Model) renderStatus() string {
	if m.pending > 0 {
		return m.spinner.View() + " " + dimStyle.Render("Loading...")
	}
	node := m.cursorNode()
	if node == nil {
		return ""
	}
	if node.Err != nil {
		return statusErr.Render("✗ " + clierr.ClassifyError(node.Err) + ": " + node.Err.Error())
	}
	return dimStyle.Render(strings.Join(node.Path(), " / "))
}

func (m Model) renderHelpBar() string {
	dot := helpDotStyle.Render(" · ")
	item := func(key, action string) string {
		return helpKeyStyle.Render(key) + " " + helpActionStyle.Render(action)
	}

	if m.focus == focusViewer {
		return item("j/k", "scroll") + dot + item("d/u", "page") + dot + item("y", "format") + dot +
			item("p", "pause") + dot + item("⇥", "pane") + dot + item("q", "quit")
	}
	return item("↑↓", "move") + dot + item("←→", "fold") + dot + item("⏎", "toggle") + dot +
		item("⇥", "pane") + dot + item("y", "format") + dot + item("p", "pause") + dot +
		item("r", "refresh") + dot + item("?", "help") + dot + item("q", "quit")
}

func (m Model) renderHelpOverlay() string {
	return titleStyle.Render("cub-explorer keys") + "\n\n" + m.help.FullHelpView(m.keymap.FullHelp()) +
		"\n\n" + dimStyle.Render("press any key to close")
}
