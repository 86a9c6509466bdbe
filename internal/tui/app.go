package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ac7x/lin-llc-sub001/internal/model"
	"github.com/ac7x/lin-llc-sub001/internal/project"
	"github.com/ac7x/lin-llc-sub001/internal/store"
	"github.com/ac7x/lin-llc-sub001/internal/tree"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type view int

const (
	viewProjects view = iota
	viewTree
)

type projectItem struct {
	p model.Project
}

func (i projectItem) Title() string { return i.p.Name }

func (i projectItem) Description() string {
	parts := []string{i.p.ID}
	if a := strings.TrimSpace(i.p.Address); a != "" {
		parts = append(parts, a)
	}
	parts = append(parts, fmt.Sprintf("%d workpackages", len(i.p.Workpackages)))
	return strings.Join(parts, " · ")
}

func (i projectItem) FilterValue() string { return i.p.Name + " " + i.p.Address }

// grabState is an in-progress keyboard drag: the row picked up with m.
type grabState struct {
	id   string
	kind model.Kind
}

type (
	projectsLoadedMsg struct {
		projects []model.Project
		err      error
	}
	projectOpenedMsg struct {
		sess *project.Session
		err  error
	}
	commitDoneMsg struct {
		change project.Change
		err    error
	}
)

type appModel struct {
	ctx  context.Context
	cfg  Config
	keys keyMap

	width  int
	height int

	view         view
	projectsList list.Model
	selectedID   string

	sess        *project.Session
	cursor      int
	vp          tree.Viewport
	filterInput textinput.Model
	filtering   bool
	grab        *grabState
	showDetail  bool
	pending     int

	status    string
	statusErr bool
}

func newAppModel(ctx context.Context, cfg Config) *appModel {
	cfg.normalize()

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Projects"
	l.SetShowHelp(true)

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "keywords"
	ti.CharLimit = 200

	m := &appModel{
		ctx:          ctx,
		cfg:          cfg,
		keys:         defaultKeyMap(),
		projectsList: l,
		filterInput:  ti,
		vp:           tree.Viewport{Overscan: cfg.Overscan},
	}
	if cfg.ViewState != nil {
		if vs, err := cfg.ViewState.LoadViewState(); err == nil {
			m.selectedID = vs.SelectedProjectID
			m.filterInput.SetValue(vs.Filter)
		}
	}
	if id := strings.TrimSpace(cfg.ProjectID); id != "" {
		m.selectedID = id
	}
	return m
}

func (m *appModel) Init() tea.Cmd {
	if strings.TrimSpace(m.cfg.ProjectID) != "" {
		return m.openProjectCmd(m.cfg.ProjectID)
	}
	return m.loadProjectsCmd()
}

func (m *appModel) loadProjectsCmd() tea.Cmd {
	svc, ctx := m.cfg.Service, m.ctx
	return func() tea.Msg {
		ps, err := svc.List(ctx)
		return projectsLoadedMsg{projects: ps, err: err}
	}
}

func (m *appModel) openProjectCmd(id string) tea.Cmd {
	svc, ctx := m.cfg.Service, m.ctx
	return func() tea.Msg {
		sess, err := svc.Open(ctx, id)
		return projectOpenedMsg{sess: sess, err: err}
	}
}

// commitCmd writes a reorder in the background. Commit only reads the
// captured change, so the session stays owned by the update loop.
func (m *appModel) commitCmd(ch project.Change) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		return commitDoneMsg{change: ch, err: sess.Commit(ctx, ch)}
	}
}

func (m *appModel) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *appModel) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
	m.cfg.Log.WithError(err).Warn("tui")
}

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.projectsList.SetSize(msg.Width, msg.Height)
		m.filterInput.Width = msg.Width - 4
		return m, nil

	case projectsLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.projects))
		sel := 0
		for i, p := range msg.projects {
			items = append(items, projectItem{p: p})
			if p.ID == m.selectedID {
				sel = i
			}
		}
		cmd := m.projectsList.SetItems(items)
		m.projectsList.Select(sel)
		return m, cmd

	case projectOpenedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			m.view = viewProjects
			return m, m.loadProjectsCmd()
		}
		m.openSession(msg.sess)
		return m, nil

	case commitDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.err != nil {
			// The reordered rows stay on screen; the user can retry or reload.
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("saved: moved %s", msg.change.ActiveID))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		switch m.view {
		case viewTree:
			return m.updateTree(msg)
		default:
			return m.updateProjects(msg)
		}
	}

	var cmd tea.Cmd
	switch {
	case m.view == viewProjects:
		m.projectsList, cmd = m.projectsList.Update(msg)
	case m.filtering:
		m.filterInput, cmd = m.filterInput.Update(msg)
	}
	return m, cmd
}

func (m *appModel) quit() tea.Cmd {
	m.saveViewState()
	return tea.Quit
}

func (m *appModel) saveViewState() {
	if m.cfg.ViewState == nil {
		return
	}
	vs, err := m.cfg.ViewState.LoadViewState()
	if err != nil {
		vs = &store.ViewState{}
	}
	if m.sess != nil {
		vs.SelectedProjectID = m.sess.ProjectID()
		vs.NoteRecentProject(m.sess.ProjectID(), 10)
	} else if m.selectedID != "" {
		vs.SelectedProjectID = m.selectedID
	}
	vs.Filter = m.filterInput.Value()
	if err := m.cfg.ViewState.SaveViewState(vs); err != nil {
		m.cfg.Log.WithError(err).Debug("save view state")
	}
}

func (m *appModel) updateProjects(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.projectsList.SettingFilter() {
		var cmd tea.Cmd
		m.projectsList, cmd = m.projectsList.Update(msg)
		return m, cmd
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()
	case msg.String() == "enter":
		it, ok := m.projectsList.SelectedItem().(projectItem)
		if !ok {
			return m, nil
		}
		m.selectedID = it.p.ID
		return m, m.openProjectCmd(it.p.ID)
	}
	var cmd tea.Cmd
	m.projectsList, cmd = m.projectsList.Update(msg)
	return m, cmd
}

func (m *appModel) openSession(sess *project.Session) {
	m.sess = sess
	m.view = viewTree
	m.cursor = 0
	m.vp.Offset = 0
	m.grab = nil
	m.filtering = false
	m.filterInput.Blur()
	sess.SetFilter(m.filterInput.Value())
	m.setStatus("")
}

func (m *appModel) rows() []tree.FlatItem {
	if m.sess == nil {
		return nil
	}
	return m.sess.Rows()
}

func (m *appModel) selectedRow() (tree.FlatItem, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return tree.FlatItem{}, false
	}
	return rows[m.cursor], true
}

// clampCursor keeps the cursor on a row after the row list changed.
func (m *appModel) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *appModel) moveCursorTo(id string) {
	for i, r := range m.rows() {
		if r.ID == id {
			m.cursor = i
			return
		}
	}
	m.clampCursor()
}

func (m *appModel) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		return m.updateFilter(msg)
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, m.quit()
	case key.Matches(msg, k.Cancel):
		if m.grab != nil {
			m.grab = nil
			m.setStatus("move cancelled")
		}
	case key.Matches(msg, k.Up):
		m.cursor--
		m.clampCursor()
	case key.Matches(msg, k.Down):
		m.cursor++
		m.clampCursor()
	case key.Matches(msg, k.PageUp):
		m.cursor -= m.bodyHeight()
		m.clampCursor()
	case key.Matches(msg, k.PageDown):
		m.cursor += m.bodyHeight()
		m.clampCursor()
	case key.Matches(msg, k.Top):
		m.cursor = 0
	case key.Matches(msg, k.Bottom):
		m.cursor = len(m.rows()) - 1
		m.clampCursor()
	case key.Matches(msg, k.Toggle):
		if row, ok := m.selectedRow(); ok && row.HasChildren && row.Level > 0 {
			m.sess.Toggle(row.ID)
			m.moveCursorTo(row.ID)
		}
	case key.Matches(msg, k.Filter):
		m.filtering = true
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()
	case key.Matches(msg, k.SmartExpand):
		if row, ok := m.selectedRow(); ok {
			before := len(m.rows())
			m.sess.SmartExpand(m.cfg.SmartExpandThreshold)
			m.moveCursorTo(row.ID)
			m.setStatus(fmt.Sprintf("expanded %d → %d rows", before, len(m.rows())))
		}
	case key.Matches(msg, k.CollapseAll):
		m.sess.CollapseAll()
		m.cursor = 0
		m.vp.Offset = 0
	case key.Matches(msg, k.Grab):
		return m, m.grabOrDrop()
	case key.Matches(msg, k.Detail):
		m.showDetail = !m.showDetail
	case key.Matches(msg, k.Refresh):
		var id string
		if row, ok := m.selectedRow(); ok {
			id = row.ID
		}
		if err := m.sess.Refresh(m.ctx); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				m.setStatus("project no longer exists")
				return m, nil
			}
			m.setError(err)
			return m, nil
		}
		m.moveCursorTo(id)
		m.setStatus("reloaded")
	case key.Matches(msg, k.Back):
		m.saveViewState()
		m.view = viewProjects
		m.sess = nil
		m.grab = nil
		return m, m.loadProjectsCmd()
	}
	return m, nil
}

func (m *appModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	case "esc":
		m.filtering = false
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.sess.SetFilter("")
		m.clampCursor()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.sess.SetFilter(m.filterInput.Value())
	m.clampCursor()
	m.vp.Offset = 0
	return m, cmd
}

// grabOrDrop picks up the selected workpackage or subworkpackage, or drops
// the held row onto the selected row of the same kind.
func (m *appModel) grabOrDrop() tea.Cmd {
	row, ok := m.selectedRow()
	if !ok {
		return nil
	}
	if m.grab == nil {
		if row.Kind != model.KindPackage && row.Kind != model.KindSubpackage {
			m.setStatus("only workpackages and subworkpackages can be moved")
			return nil
		}
		m.grab = &grabState{id: row.ID, kind: row.Kind}
		m.setStatus(fmt.Sprintf("moving %s: select a target and press m", row.Name))
		return nil
	}

	g := *m.grab
	if row.Kind != g.kind {
		m.setStatus(fmt.Sprintf("drop onto a %s row", g.kind))
		return nil
	}
	m.grab = nil
	ch, changed, err := m.sess.Reorder(g.kind, g.id, row.ID)
	if err != nil {
		m.setError(err)
		return nil
	}
	if !changed {
		m.setStatus("")
		return nil
	}
	m.moveCursorTo(g.id)
	m.pending++
	m.setStatus("saving…")
	return m.commitCmd(ch)
}
