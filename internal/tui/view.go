package tui

import (
	"fmt"
	"strings"

	"github.com/ac7x/lin-llc-sub001/internal/tree"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const (
	headerLines = 2
	footerLines = 2
	detailLines = 10
)

func (m *appModel) View() string {
	if m.view == viewProjects {
		out := m.projectsList.View()
		if m.status != "" {
			out += "\n" + m.renderStatus()
		}
		return out
	}
	return m.viewTree()
}

func (m *appModel) bodyHeight() int {
	h := m.height - headerLines - footerLines
	if m.showDetail {
		h -= detailLines
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *appModel) viewTree() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	var b strings.Builder

	p := m.sess.Project()
	if p == nil {
		b.WriteString(styleHeader().Render("Project deleted"))
		b.WriteString("\n\n")
		b.WriteString(styleMuted().Render("This project no longer exists. Press b to pick another."))
		return b.String()
	}

	rows := m.sess.Rows()
	st := m.sess.Stats()
	b.WriteString(truncate(styleHeader().Render(p.Name), width))
	b.WriteString("\n")
	b.WriteString(truncate(styleMuted().Render(fmt.Sprintf(
		"%d rows · %d workpackages · %d subworkpackages · %d tasks",
		st.Total, st.ByType.Package, st.ByType.Subpackage, st.ByType.Task)), width))
	b.WriteString("\n")

	b.WriteString(m.renderRows(rows, width))

	if m.showDetail {
		b.WriteString("\n")
		b.WriteString(m.renderDetail(width))
	}

	b.WriteString("\n")
	if m.filtering || m.filterInput.Value() != "" {
		b.WriteString(truncate(m.filterInput.View(), width))
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

// renderRows draws only the viewport. Overscan rows are formatted too so a
// one-line scroll reuses them, but only Height lines are emitted.
func (m *appModel) renderRows(rows []tree.FlatItem, width int) string {
	m.vp.Height = m.bodyHeight()
	m.vp = m.vp.Follow(m.cursor, len(rows))
	start, end := m.vp.Window(len(rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(rows[i], i == m.cursor, width))
	}
	from := m.vp.Offset - start
	to := from + m.vp.Height
	if to > len(lines) {
		to = len(lines)
	}
	visible := lines[from:to]
	for len(visible) < m.vp.Height {
		visible = append(visible, "")
	}
	return strings.Join(visible, "\n")
}

func (m *appModel) renderRow(r tree.FlatItem, selected bool, width int) string {
	marker := "  "
	if r.HasChildren && r.Level > 0 {
		if r.Expanded {
			marker = "▾ "
		} else {
			marker = "▸ "
		}
	}
	name := r.Name
	if m.grab != nil && m.grab.id == r.ID {
		name = styleGrabbed().Render("⇅ " + name)
	}
	line := strings.Repeat("  ", r.Level) + marker + name
	if r.Summary != "" {
		line += "  " + styleMuted().Render(r.Summary)
	}
	if r.DescendantMatch && !r.Expanded {
		line += " " + styleMatch().Render("●")
	}
	line = truncate(line, width)
	if selected {
		if pad := width - xansi.StringWidth(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		return styleSelected().Render(xansi.Strip(line))
	}
	return line
}

func (m *appModel) renderDetail(width int) string {
	row, ok := m.selectedRow()
	if !ok {
		return ""
	}
	title := styleHeader().Render(fmt.Sprintf("%s (%s)", row.Name, row.Kind))
	body := renderMarkdown(row.Node.Details(), width-2)
	if body == "" {
		body = styleMuted().Render("No description.")
	}
	lines := strings.Split(title+"\n"+body, "\n")
	if len(lines) > detailLines {
		lines = lines[:detailLines]
	}
	for len(lines) < detailLines {
		lines = append(lines, "")
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(lines, "\n"))
}

func (m *appModel) renderStatus() string {
	if m.status != "" {
		if m.statusErr {
			return styleError().Render(m.status)
		}
		return m.status
	}
	if m.view != viewTree {
		return ""
	}
	var parts []string
	for _, b := range m.keys.treeHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return styleMuted().Render(strings.Join(parts, " · "))
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return xansi.Truncate(s, width, "…")
}
