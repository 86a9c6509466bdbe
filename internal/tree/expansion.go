package tree

import (
	"sort"

	"github.com/ac7x/lin-llc-sub001/internal/model"
)

// Expansion is the set of node ids whose children are shown. It is
// immutable: Toggle, Expand and CollapseAll return new values and never
// touch the receiver, so a caller can keep an old value around to undo.
type Expansion struct {
	ids map[string]struct{}
}

func NewExpansion(ids ...string) Expansion {
	if len(ids) == 0 {
		return Expansion{}
	}
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			m[id] = struct{}{}
		}
	}
	return Expansion{ids: m}
}

func (e Expansion) Has(id string) bool {
	_, ok := e.ids[id]
	return ok
}

func (e Expansion) Len() int { return len(e.ids) }

// Toggle adds id when absent and removes it when present.
func (e Expansion) Toggle(id string) Expansion {
	next := e.copy(1)
	if _, ok := next[id]; ok {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}
	return Expansion{ids: next}
}

func (e Expansion) Expand(ids ...string) Expansion {
	next := e.copy(len(ids))
	for _, id := range ids {
		if id != "" {
			next[id] = struct{}{}
		}
	}
	return Expansion{ids: next}
}

func (e Expansion) Collapse(ids ...string) Expansion {
	next := e.copy(0)
	for _, id := range ids {
		delete(next, id)
	}
	return Expansion{ids: next}
}

// IDs returns the expanded ids in sorted order.
func (e Expansion) IDs() []string {
	out := make([]string, 0, len(e.ids))
	for id := range e.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (e Expansion) Equal(o Expansion) bool {
	if len(e.ids) != len(o.ids) {
		return false
	}
	for id := range e.ids {
		if _, ok := o.ids[id]; !ok {
			return false
		}
	}
	return true
}

func (e Expansion) copy(extra int) map[string]struct{} {
	m := make(map[string]struct{}, len(e.ids)+extra)
	for id := range e.ids {
		m[id] = struct{}{}
	}
	return m
}

// CollapseAll returns the empty expansion.
func CollapseAll(Expansion) Expansion { return Expansion{} }

// ExpandAll returns an expansion that opens every node with children.
func ExpandAll(p *model.Project) Expansion {
	if p == nil {
		return Expansion{}
	}
	m := map[string]struct{}{}
	var walk func(n model.Node)
	walk = func(n model.Node) {
		if !model.HasChildren(n) {
			return
		}
		m[n.NodeID()] = struct{}{}
		for _, ch := range n.Children() {
			walk(ch)
		}
	}
	walk(p)
	return Expansion{ids: m}
}
