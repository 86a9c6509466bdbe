package model

import (
	"strconv"
	"strings"
)

// Node is a sealed union over *Project, *Workpackage, *Subworkpackage and
// *Task. Use the As* accessors to get at variant-specific fields.
type Node interface {
	Kind() Kind
	NodeID() string
	Label() string
	// Summary is the formatted numeric state of the node ("" when it has none).
	Summary() string
	Details() string
	Children() []Node

	sealed()
}

func (p *Project) Kind() Kind      { return KindProject }
func (p *Project) NodeID() string  { return p.ID }
func (p *Project) Label() string   { return p.Name }
func (p *Project) Summary() string { return "" }
func (p *Project) Details() string { return p.Description }
func (p *Project) sealed()         {}

func (w *Workpackage) Kind() Kind      { return KindPackage }
func (w *Workpackage) NodeID() string  { return w.ID }
func (w *Workpackage) Label() string   { return w.Name }
func (w *Workpackage) Summary() string { return formatPercent(w.Progress) }
func (w *Workpackage) Details() string { return w.Description }
func (w *Workpackage) sealed()         {}

func (s *Subworkpackage) Kind() Kind      { return KindSubpackage }
func (s *Subworkpackage) NodeID() string  { return s.ID }
func (s *Subworkpackage) Label() string   { return s.Name }
func (s *Subworkpackage) Summary() string { return formatPercent(s.Progress) }
func (s *Subworkpackage) Details() string { return s.Description }
func (s *Subworkpackage) sealed()         {}

func (t *Task) Kind() Kind       { return KindTask }
func (t *Task) NodeID() string   { return t.ID }
func (t *Task) Label() string    { return t.Name }
func (t *Task) Details() string  { return t.Description }
func (t *Task) Children() []Node { return nil }
func (t *Task) sealed()          {}

func (p *Project) Children() []Node {
	out := make([]Node, 0, len(p.Workpackages))
	for i := range p.Workpackages {
		out = append(out, &p.Workpackages[i])
	}
	return out
}

func (w *Workpackage) Children() []Node {
	out := make([]Node, 0, len(w.Subpackages))
	for i := range w.Subpackages {
		out = append(out, &w.Subpackages[i])
	}
	return out
}

func (s *Subworkpackage) Children() []Node {
	out := make([]Node, 0, len(s.Tasks))
	for i := range s.Tasks {
		out = append(out, &s.Tasks[i])
	}
	return out
}

// Summary renders progress and quantity, e.g. "40% 12/30 m3".
func (t *Task) Summary() string {
	var parts []string
	if p := formatPercent(t.Progress); p != "" {
		parts = append(parts, p)
	}
	if t.Completed != nil || t.Total != nil {
		q := formatNumber(t.Completed) + "/" + formatNumber(t.Total)
		if u := strings.TrimSpace(t.Unit); u != "" {
			q += " " + u
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}

func formatPercent(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + "%"
}

func formatNumber(v *float64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func AsProject(n Node) (*Project, bool) {
	p, ok := n.(*Project)
	return p, ok
}

func AsWorkpackage(n Node) (*Workpackage, bool) {
	w, ok := n.(*Workpackage)
	return w, ok
}

func AsSubworkpackage(n Node) (*Subworkpackage, bool) {
	s, ok := n.(*Subworkpackage)
	return s, ok
}

func AsTask(n Node) (*Task, bool) {
	t, ok := n.(*Task)
	return t, ok
}

// HasChildren reports whether n has at least one child without allocating.
func HasChildren(n Node) bool {
	switch v := n.(type) {
	case *Project:
		return len(v.Workpackages) > 0
	case *Workpackage:
		return len(v.Subpackages) > 0
	case *Subworkpackage:
		return len(v.Tasks) > 0
	default:
		return false
	}
}
