// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/confighub/cub-explorer/internal/kubecontext"
	"github.com/confighub/cub-explorer/pkg/explorer"
	"github.com/confighub/cub-explorer/pkg/logs"
	"github.com/confighub/cub-explorer/pkg/manifest"
	"github.com/confighub/cub-explorer/pkg/resource"
)

type focusPane int

const (
	focusExplorer focusPane = iota
	focusInfo
	focusViewer
	paneCount
)

// loadedMsg carries a finished tree load back to Update.
type loadedMsg struct {
	result explorer.Result
}

// flushMsg is the log refresh tick.
type flushMsg time.Time

// Model is the dashboard: explorer tree on the left, info and viewer panes on
// the right.
type Model struct {
	ctx      context.Context
	tree     *explorer.Tree
	labels   *explorer.LabelCache
	logs     *logs.Aggregator
	logger   *zap.Logger
	interval time.Duration

	keymap  keyMap
	help    help.Model
	spinner spinner.Model
	viewer  viewport.Model

	cursor   int
	hover    int
	focus    focusPane
	format   manifest.Format
	selected *resource.Resource
	pending  int
	initial  explorer.Load
	showHelp bool

	width  int
	height int
}

func newModel(ctx context.Context, contexts []string, current string, namespaces explorer.NamespaceLister,
	fetcher explorer.ResourceFetcher, agg *logs.Aggregator, interval time.Duration, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = activeStyle

	m := Model{
		ctx:      ctx,
		tree:     explorer.New(kubecontext.Order(contexts, current), namespaces, fetcher, logger),
		labels:   explorer.NewLabelCache(renderLabel),
		logs:     agg,
		logger:   logger,
		interval: interval,
		keymap:   defaultKeyMap(),
		help:     help.New(),
		spinner:  s,
		viewer:   viewport.New(40, 20), // resized on WindowSizeMsg
		hover:    -1,
	}

	// The current context opens expanded.
	if len(m.tree.Roots) > 0 {
		if load := m.tree.Select(m.tree.Roots[0]); load != nil {
			m.initial = load
			m.pending++
		}
	}
	m.refreshViewer()
	return m
}

func loadCmd(ctx context.Context, load explorer.Load) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{result: load(ctx)}
	}
}

func flushTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return flushMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, flushTick(m.interval)}
	if m.initial != nil {
		cmds = append(cmds, loadCmd(m.ctx, m.initial))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.tree.Apply(msg.result)
		if m.pending > 0 {
			m.pending--
		}
		m.clampCursor()
		return m, nil

	case flushMsg:
		if m.logs.Flush() && m.format == manifest.FormatLogs {
			m.refreshViewer()
		}
		return m, flushTick(m.interval)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionMotion {
			m.hover = m.rowAt(msg.Y)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		if key.Matches(msg, m.keymap.Quit) {
			return m, tea.Quit
		}
		m.showHelp = false
		return m, nil
	}

	visible := m.tree.Visible()
	var node *explorer.Node
	if m.cursor >= 0 && m.cursor < len(visible) {
		node = visible[m.cursor]
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true

	case key.Matches(msg, m.keymap.Tab):
		m.focus = (m.focus + 1) % paneCount

	case m.focus == focusViewer && key.Matches(msg, m.keymap.Up, m.keymap.Down, m.keymap.PageUp, m.keymap.PageDown):
		var cmd tea.Cmd
		m.viewer, cmd = m.viewer.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keymap.Left):
		m.collapse(node, visible)

	case key.Matches(msg, m.keymap.Right):
		return m, m.activate(node, m.tree.Open)

	case key.Matches(msg, m.keymap.Enter):
		return m, m.activate(node, m.tree.Select)

	case key.Matches(msg, m.keymap.Refresh):
		return m, m.refresh(node)

	case key.Matches(msg, m.keymap.Pause):
		m.logs.SetLive(!m.logs.Live())
		if m.format == manifest.FormatLogs {
			m.refreshViewer()
		}

	case key.Matches(msg, m.keymap.Format):
		m.format = m.format.Next()
		m.viewer.GotoTop()
		m.refreshViewer()
	}
	return m, nil
}

// activate shows a resource node in the viewer and applies action (Select
// or Open) to node, queueing the load it returns.
func (m *Model) activate(node *explorer.Node, action func(*explorer.Node) explorer.Load) tea.Cmd {
	if node == nil {
		return nil
	}
	if node.Kind == explorer.KindResource && node.Resource != nil {
		m.selectResource(*node.Resource)
	}
	load := action(node)
	if load == nil {
		return nil
	}
	m.pending++
	return loadCmd(m.ctx, load)
}

func (m *Model) selectResource(r resource.Resource) {
	m.selected = &r
	m.logs.Attach(m.ctx, r)
	m.viewer.GotoTop()
	m.refreshViewer()
	m.logger.Debug("selected resource",
		zap.String("context", r.Context),
		zap.String("namespace", r.Namespace),
		zap.String("kind", r.Kind),
		zap.String("name", r.Name))
}

// collapse folds an expanded node, or moves the cursor to its parent.
func (m *Model) collapse(node *explorer.Node, visible []*explorer.Node) {
	if node == nil {
		return
	}
	if node.Expanded && node.State == explorer.Loaded && len(node.Children) > 0 {
		m.tree.Select(node)
		return
	}
	if node.Parent == nil {
		return
	}
	for i, n := range visible {
		if n == node.Parent {
			m.cursor = i
			return
		}
	}
}

// refresh reloads node, or the namespace of a resource node.
func (m *Model) refresh(node *explorer.Node) tea.Cmd {
	if node == nil {
		return nil
	}
	target := node
	if node.Kind == explorer.KindResource {
		target = node.NamespaceNode()
	}
	load := m.tree.Refresh(node)
	m.labels.Invalidate()
	for i, n := range m.tree.Visible() {
		if n == target {
			m.cursor = i
			break
		}
	}
	m.clampCursor()
	if load == nil {
		return nil
	}
	m.pending++
	return loadCmd(m.ctx, load)
}

func (m *Model) clampCursor() {
	n := len(m.tree.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) resize() {
	l := m.layout()
	m.viewer.Width = l.viewerWidth
	m.viewer.Height = l.viewerHeight
	m.help.Width = m.width
	m.refreshViewer()
}

func (m *Model) refreshViewer() {
	m.viewer.SetContent(m.viewerContent())
	if m.format == manifest.FormatLogs && m.logs.Live() {
		m.viewer.GotoBottom()
	}
}

func (m *Model) viewerContent() string {
	if m.selected == nil {
		return dimStyle.Render("No resource selected")
	}
	if m.format == manifest.FormatLogs {
		return renderEvents(m.logs.Snapshot())
	}
	out, err := manifest.Render(*m.selected, m.format)
	if err != nil {
		m.logger.Warn("render failed", zap.String("name", m.selected.Name), zap.Error(err))
		return statusErr.Render(manifest.Diagnostic(err))
	}
	return out
}

// rowAt maps a terminal row to a visible tree index, or -1.
func (m Model) rowAt(y int) int {
	l := m.layout()
	start, end := m.treeWindow(l.treeRows)
	row := start + y - l.treeTop
	if y < l.treeTop || row >= end {
		return -1
	}
	return row
}

// treeWindow is the range of visible rows shown, keeping the cursor on
// screen.
func (m Model) treeWindow(rows int) (int, int) {
	total := len(m.tree.Visible())
	if rows <= 0 {
		return 0, 0
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := start + rows
	if end > total {
		end = total
	}
	return start, end
}
