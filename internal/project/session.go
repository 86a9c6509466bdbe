package project

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ac7x/lin-llc-sub001/internal/model"
	"github.com/ac7x/lin-llc-sub001/internal/reorder"
	"github.com/ac7x/lin-llc-sub001/internal/store"
	"github.com/ac7x/lin-llc-sub001/internal/tree"
)

// Session is the state of one open tree view: a private copy of the project
// document, the expansion set and the filter text. It is not safe for
// concurrent use; each view owns its session.
type Session struct {
	svc *Service
	id  string

	project *model.Project
	exp     tree.Expansion
	filter  string

	// rev and expRev advance on every change to the project snapshot and the
	// expansion; together with filter they key the row cache.
	rev    int
	expRev int
	cache  *rowsCache
}

type rowsKey struct {
	rev, expRev int
	filter      string
}

type rowsCache struct {
	key  rowsKey
	rows []tree.FlatItem
}

// Change is a pending whole-collection write produced by a reorder.
type Change struct {
	Kind      model.Kind `json:"kind"`
	ProjectID string     `json:"projectId"`
	ActiveID  string     `json:"activeId"`
	OverID    string     `json:"overId"`
	From      int        `json:"from"`
	To        int        `json:"to"`

	workpackages []model.Workpackage
}

// Open loads a project into a new session with everything collapsed.
func (s *Service) Open(ctx context.Context, id string) (*Session, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Session{svc: s, id: p.ID, project: p}, nil
}

func (s *Session) ProjectID() string { return s.id }

// Project returns the session's snapshot, or nil once the project is gone.
// Callers must not modify it.
func (s *Session) Project() *model.Project { return s.project }

func (s *Session) Expansion() tree.Expansion { return s.exp }

func (s *Session) Filter() string { return s.filter }

func (s *Session) Toggle(id string) {
	s.setExpansion(s.exp.Toggle(id))
}

func (s *Session) SetExpansion(exp tree.Expansion) {
	s.setExpansion(exp)
}

func (s *Session) SetFilter(filter string) {
	s.filter = filter
}

// SmartExpand opens nodes until threshold rows are visible.
func (s *Session) SmartExpand(threshold int) {
	if s.project == nil {
		return
	}
	s.setExpansion(tree.SmartExpand(s.project, s.exp, s.filter, threshold))
}

func (s *Session) CollapseAll() {
	s.setExpansion(tree.CollapseAll(s.exp))
}

func (s *Session) setExpansion(exp tree.Expansion) {
	if exp.Equal(s.exp) {
		return
	}
	s.exp = exp
	s.expRev++
}

// Rows returns the visible rows, reusing the previous result when neither
// the snapshot, the expansion nor the filter changed.
func (s *Session) Rows() []tree.FlatItem {
	if s.project == nil {
		return nil
	}
	key := rowsKey{rev: s.rev, expRev: s.expRev, filter: s.filter}
	if s.cache != nil && s.cache.key == key {
		return s.cache.rows
	}
	rows := tree.Flatten(s.project, s.exp, s.filter)
	s.cache = &rowsCache{key: key, rows: rows}
	return rows
}

func (s *Session) Stats() tree.Stats {
	return tree.CalculateStats(s.Rows())
}

// Refresh re-reads the document. If it was deleted the snapshot is dropped
// and the NotFound error returned so the view can show an empty state.
func (s *Session) Refresh(ctx context.Context) error {
	p, err := s.svc.Get(ctx, s.id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.project = nil
			s.rev++
		}
		return err
	}
	s.project = p
	s.rev++
	return nil
}

var workpackageKeys = reorder.Keys[model.Workpackage]{
	ID:    func(w model.Workpackage) string { return w.ID },
	Group: func(model.Workpackage) string { return "" },
	WithPriority: func(w model.Workpackage, p int) model.Workpackage {
		w.Priority = p
		return w
	},
}

var subworkpackageKeys = reorder.Keys[model.Subworkpackage]{
	ID:    func(sp model.Subworkpackage) string { return sp.ID },
	Group: func(sp model.Subworkpackage) string { return sp.WorkpackageID },
	WithPriority: func(sp model.Subworkpackage, p int) model.Subworkpackage {
		sp.Priority = p
		return sp
	},
}

// ReorderWorkpackages applies a drag of activeID onto overID to the local
// snapshot. It reports false, and changes nothing, for a drop on itself or
// outside a valid target. The returned Change still has to be committed.
func (s *Session) ReorderWorkpackages(activeID, overID string) (Change, bool) {
	if s.project == nil {
		return Change{}, false
	}
	res, ok := reorder.Apply(OrderedWorkpackages(s.project), activeID, overID, workpackageKeys)
	if !ok {
		return Change{}, false
	}
	s.project.Workpackages = res.Order
	s.rev++
	return s.change(model.KindPackage, activeID, overID, res.From, res.To), true
}

// ReorderSubworkpackages is ReorderWorkpackages for the interleaved list of
// all subworkpackages. Each workpackage gets back its own members in the new
// global order, keeping global priorities.
func (s *Session) ReorderSubworkpackages(activeID, overID string) (Change, bool) {
	if s.project == nil {
		return Change{}, false
	}
	res, ok := reorder.Apply(GlobalSubworkpackages(s.project), activeID, overID, subworkpackageKeys)
	if !ok {
		return Change{}, false
	}
	for i := range s.project.Workpackages {
		wp := &s.project.Workpackages[i]
		members := res.Groups[wp.ID]
		if members == nil {
			members = []model.Subworkpackage{}
		}
		wp.Subpackages = members
	}
	s.rev++
	return s.change(model.KindSubpackage, activeID, overID, res.From, res.To), true
}

// Reorder dispatches on the kind of the dragged row.
func (s *Session) Reorder(kind model.Kind, activeID, overID string) (Change, bool, error) {
	switch kind {
	case model.KindPackage:
		ch, ok := s.ReorderWorkpackages(activeID, overID)
		return ch, ok, nil
	case model.KindSubpackage:
		ch, ok := s.ReorderSubworkpackages(activeID, overID)
		return ch, ok, nil
	default:
		return Change{}, false, fmt.Errorf("cannot reorder %q rows", strings.TrimSpace(string(kind)))
	}
}

// ReorderAndCommit applies the drag locally and persists it. A no-op drag
// returns (false, nil) without touching the store.
func (s *Session) ReorderAndCommit(ctx context.Context, kind model.Kind, activeID, overID string) (bool, error) {
	ch, ok, err := s.Reorder(kind, activeID, overID)
	if err != nil || !ok {
		return false, err
	}
	return true, s.Commit(ctx, ch)
}

func (s *Session) change(kind model.Kind, activeID, overID string, from, to int) Change {
	return Change{
		Kind:         kind,
		ProjectID:    s.id,
		ActiveID:     activeID,
		OverID:       overID,
		From:         from,
		To:           to,
		workpackages: s.project.Clone().Workpackages,
	}
}

// Commit writes the complete workpackage tree captured in ch in one update.
// On failure the session keeps the reordered state; there is no rollback.
func (s *Session) Commit(ctx context.Context, ch Change) error {
	op := "workpackage.reorder"
	if ch.Kind == model.KindSubpackage {
		op = "subworkpackage.reorder"
	}
	payload := map[string]any{
		"activeId": ch.ActiveID,
		"overId":   ch.OverID,
		"from":     ch.From,
		"to":       ch.To,
	}
	return s.svc.write(ctx, op, ch.ProjectID, ch.workpackages, payload)
}
