package tree

import "github.com/ac7x/lin-llc-sub001/internal/model"

// FlatItem is one rendered row of the project tree. It is rebuilt on every
// flatten and never mutated afterwards.
type FlatItem struct {
	ID      string         `json:"id" yaml:"id"`
	Kind    model.Kind     `json:"type" yaml:"type"`
	Level   int            `json:"level" yaml:"level"`
	Name    string         `json:"name" yaml:"name"`
	Summary string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Path    model.NodePath `json:"path" yaml:"path"`
	Node    model.Node     `json:"-" yaml:"-"`

	Visible     bool `json:"isVisible" yaml:"isVisible"`
	Expanded    bool `json:"isExpanded" yaml:"isExpanded"`
	HasChildren bool `json:"hasChildren" yaml:"hasChildren"`

	// DescendantMatch is set when a filter is active and some descendant
	// matches it. It does not affect visibility; a collapsed row with this
	// flag hides matches the user can reveal by expanding it.
	DescendantMatch bool `json:"descendantMatch,omitempty" yaml:"descendantMatch,omitempty"`
}

// Flatten returns the visible rows of the project in depth-first pre-order.
//
// The project row is always first and always visible. A node's children are
// emitted only when the node id is in exp. With a non-empty filter every row
// other than the root is kept only if the node itself matches; matching never
// expands anything.
func Flatten(p *model.Project, exp Expansion, filter string) []FlatItem {
	all := Walk(p, exp, filter)
	out := all[:0]
	for _, it := range all {
		if it.Visible {
			out = append(out, it)
		}
	}
	return out
}

// Walk is Flatten without dropping invisible rows.
func Walk(p *model.Project, exp Expansion, filter string) []FlatItem {
	if p == nil {
		return nil
	}
	keywords := ParseKeywords(filter)

	var out []FlatItem
	var walk func(n model.Node, path model.NodePath, level int)
	walk = func(n model.Node, path model.NodePath, level int) {
		id := n.NodeID()
		// The root's children are always listed; only descendants collapse.
		expanded := level == 0 || exp.Has(id)
		it := FlatItem{
			ID:          id,
			Kind:        n.Kind(),
			Level:       level,
			Name:        n.Label(),
			Summary:     n.Summary(),
			Path:        path,
			Node:        n,
			Visible:     level == 0 || Matches(n, keywords),
			Expanded:    expanded,
			HasChildren: model.HasChildren(n),
		}
		if len(keywords) > 0 && it.HasChildren {
			it.DescendantMatch = subtreeMatches(n, keywords)
		}
		out = append(out, it)
		if !expanded {
			return
		}
		for i, ch := range n.Children() {
			walk(ch, path.Child(i), level+1)
		}
	}
	walk(p, model.RootPath(), 0)
	return out
}

// Stats tallies rows by kind.
type Stats struct {
	Total  int         `json:"total" yaml:"total"`
	ByType KindCounter `json:"byType" yaml:"byType"`
}

type KindCounter struct {
	Project    int `json:"project" yaml:"project"`
	Package    int `json:"package" yaml:"package"`
	Subpackage int `json:"subpackage" yaml:"subpackage"`
	Task       int `json:"task" yaml:"task"`
}

// CalculateStats counts the rows it is given. Pass the output of Flatten to
// count what is currently visible, not the whole tree.
func CalculateStats(rows []FlatItem) Stats {
	var s Stats
	for _, r := range rows {
		s.Total++
		switch r.Kind {
		case model.KindProject:
			s.ByType.Project++
		case model.KindPackage:
			s.ByType.Package++
		case model.KindSubpackage:
			s.ByType.Subpackage++
		case model.KindTask:
			s.ByType.Task++
		}
	}
	return s
}
