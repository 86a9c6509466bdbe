package project

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/ac7x/lin-llc-sub001/internal/model"
	"github.com/ac7x/lin-llc-sub001/internal/store"
)

// flakyDocs wraps a real store and can be told to reject updates.
type flakyDocs struct {
	*store.Store
	failUpdates bool
	updates     int
}

func (f *flakyDocs) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	f.updates++
	if f.failUpdates {
		return errors.New("permission denied")
	}
	return f.Store.Update(ctx, collection, id, fields)
}

func newTestService(t *testing.T) (*Service, *flakyDocs) {
	t.Helper()
	st, err := store.Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	docs := &flakyDocs{Store: st}
	fixed := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return NewService(docs, WithEvents(st), WithClock(func() time.Time { return fixed })), docs
}

// seed writes the scenario project: wp1 holds A, B and wp2 holds C, D, with
// global subworkpackage priorities 0..3.
func seed(t *testing.T, svc *Service, docs *flakyDocs) *model.Project {
	t.Helper()
	p := &model.Project{
		ID:   "proj-1",
		Name: "Harbor Bridge",
		Workpackages: []model.Workpackage{
			{
				ID: "wp1", Name: "Substructure", Priority: 0,
				Subpackages: []model.Subworkpackage{
					{ID: "A", WorkpackageID: "wp1", Name: "Piles", Priority: 0, Tasks: []model.Task{{ID: "t1", Name: "Drive piles"}}},
					{ID: "B", WorkpackageID: "wp1", Name: "Pile caps", Priority: 1},
				},
			},
			{
				ID: "wp2", Name: "Superstructure", Priority: 1,
				Subpackages: []model.Subworkpackage{
					{ID: "C", WorkpackageID: "wp2", Name: "Girders", Priority: 2},
					{ID: "D", WorkpackageID: "wp2", Name: "Deck", Priority: 3},
				},
			},
			{ID: "wp3", Name: "Finishes", Priority: 2},
		},
	}
	if err := docs.Put(context.Background(), Collection, p.ID, p); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return p
}

func subIDs(sps []model.Subworkpackage) string {
	out := []string{}
	for _, sp := range sps {
		out = append(out, fmt.Sprintf("%s:%d", sp.ID, sp.Priority))
	}
	return fmt.Sprint(out)
}

func TestReorderSubworkpackages_PartitionsWithGlobalPriorities(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)
	seed(t, svc, docs)

	sess, err := svc.Open(ctx, "proj-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	changed, err := sess.ReorderAndCommit(ctx, model.KindSubpackage, "D", "A")
	if err != nil || !changed {
		t.Fatalf("ReorderAndCommit: changed=%v err=%v", changed, err)
	}

	got, err := svc.Get(ctx, "proj-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s := subIDs(got.Workpackages[0].Subpackages); s != "[A:1 B:2]" {
		t.Fatalf("wp1 persisted as %s", s)
	}
	if s := subIDs(got.Workpackages[1].Subpackages); s != "[D:0 C:3]" {
		t.Fatalf("wp2 persisted as %s", s)
	}
	if len(got.Workpackages[0].Subpackages[0].Tasks) != 1 {
		t.Fatalf("tasks under moved groups must be preserved")
	}
	if global := subIDs(GlobalSubworkpackages(got)); global != "[D:0 A:1 B:2 C:3]" {
		t.Fatalf("global order: %s", global)
	}
	if docs.updates != 1 {
		t.Fatalf("expected exactly one whole-document write, got %d", docs.updates)
	}

	events, err := docs.ReadEventsForEntity(ctx, "proj-1", 10)
	if err != nil || len(events) != 1 || events[0].Type != "subworkpackage.reorder" {
		t.Fatalf("expected one reorder event, got %#v (%v)", events, err)
	}
}

func TestReorderSubworkpackages_KeepsEntryWithDanglingParentRef(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)
	p := &model.Project{
		ID:   "proj-2",
		Name: "Depot",
		Workpackages: []model.Workpackage{{
			ID: "wp1", Name: "Civil",
			Subpackages: []model.Subworkpackage{
				{ID: "A", WorkpackageID: "wp1", Name: "Grading", Priority: 0},
				{ID: "B", WorkpackageID: "wp1", Name: "Drainage", Priority: 1},
				{ID: "G", WorkpackageID: "ghost", Name: "Paving", Priority: 2, Tasks: []model.Task{{ID: "t1", Name: "Base course"}}},
			},
		}},
	}
	if err := docs.Put(ctx, Collection, p.ID, p); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sess, err := svc.Open(ctx, p.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := sess.Project().Workpackages[0].Subpackages[2].WorkpackageID; got != "wp1" {
		t.Fatalf("expected back-reference repaired to wp1, got %q", got)
	}
	changed, err := sess.ReorderAndCommit(ctx, model.KindSubpackage, "B", "A")
	if err != nil || !changed {
		t.Fatalf("ReorderAndCommit: changed=%v err=%v", changed, err)
	}

	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	sps := got.Workpackages[0].Subpackages
	if s := subIDs(sps); s != "[B:0 A:1 G:2]" {
		t.Fatalf("persisted as %s", s)
	}
	if len(sps[2].Tasks) != 1 || sps[2].Tasks[0].ID != "t1" || sps[2].WorkpackageID != "wp1" {
		t.Fatalf("unexpected G after reorder: %+v", sps[2])
	}
}

func TestReorderWorkpackages_SingleGroup(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)
	seed(t, svc, docs)

	sess, _ := svc.Open(ctx, "proj-1")
	ch, ok := sess.ReorderWorkpackages("wp3", "wp1")
	if !ok {
		t.Fatalf("expected change")
	}
	if ch.From != 2 || ch.To != 0 || ch.Kind != model.KindPackage {
		t.Fatalf("unexpected change: %+v", ch)
	}
	// Optimistic: visible locally before the write.
	if sess.Project().Workpackages[0].ID != "wp3" {
		t.Fatalf("expected local snapshot updated before commit")
	}
	if docs.updates != 0 {
		t.Fatalf("nothing should be written before Commit")
	}
	if err := sess.Commit(ctx, ch); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, _ := svc.Get(ctx, "proj-1")
	var order []string
	for _, wp := range got.Workpackages {
		order = append(order, fmt.Sprintf("%s:%d", wp.ID, wp.Priority))
	}
	if fmt.Sprint(order) != "[wp3:0 wp1:1 wp2:2]" {
		t.Fatalf("persisted order: %v", order)
	}
}

func TestReorder_NoOpDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)
	seed(t, svc, docs)

	sess, _ := svc.Open(ctx, "proj-1")
	before := sess.Project().Clone()
	for _, tc := range []struct {
		kind         model.Kind
		active, over string
	}{
		{model.KindPackage, "wp1", "wp1"},
		{model.KindPackage, "wp1", ""},
		{model.KindSubpackage, "A", "A"},
		{model.KindSubpackage, "A", "missing"},
	} {
		changed, err := sess.ReorderAndCommit(ctx, tc.kind, tc.active, tc.over)
		if err != nil || changed {
			t.Fatalf("%v: expected no-op, got changed=%v err=%v", tc, changed, err)
		}
	}
	if docs.updates != 0 {
		t.Fatalf("no-op drags must not write, got %d updates", docs.updates)
	}
	if !reflect.DeepEqual(before, sess.Project()) {
		t.Fatalf("no-op drags changed the snapshot")
	}
}

func TestReorder_PersistenceFailureKeepsOptimisticState(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)
	seed(t, svc, docs)
	docs.failUpdates = true

	sess, _ := svc.Open(ctx, "proj-1")
	changed, err := sess.ReorderAndCommit(ctx, model.KindPackage, "wp2", "wp1")
	if !changed {
		t.Fatalf("expected the local change to apply")
	}
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.ProjectID != "proj-1" || perr.Op != "workpackage.reorder" {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if sess.Project().Workpackages[0].ID != "wp2" {
		t.Fatalf("optimistic state must not be rolled back")
	}
	stored, _ := svc.Get(ctx, "proj-1")
	if stored.Workpackages[0].ID != "wp1" {
		t.Fatalf("store should still hold the old order")
	}
}

func TestReorder_RejectsTaskRows(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)
	seed(t, svc, docs)
	sess, _ := svc.Open(ctx, "proj-1")
	if _, _, err := sess.Reorder(model.KindTask, "t1", "t1"); err == nil {
		t.Fatalf("expected an error for task reorder")
	}
}

func TestSession_RowsMemoizedAndRefreshed(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)
	seed(t, svc, docs)
	sess, _ := svc.Open(ctx, "proj-1")

	r1 := sess.Rows()
	r2 := sess.Rows()
	if len(r1) != 4 || &r1[0] != &r2[0] {
		t.Fatalf("expected cached rows, got %d rows", len(r1))
	}

	sess.Toggle("wp1")
	r3 := sess.Rows()
	if len(r3) != 6 {
		t.Fatalf("expected wp1 children after toggle, got %d rows", len(r3))
	}
	sess.SetFilter("deck")
	if rows := sess.Rows(); len(rows) != 1 {
		t.Fatalf("wp2 is collapsed, so only the root should show, got %d", len(rows))
	}
	if !sess.Expansion().Has("wp1") || sess.Expansion().Has("wp2") {
		t.Fatalf("filter must not change expansion")
	}
	sess.Toggle("wp2")
	if rows := sess.Rows(); len(rows) != 2 || rows[1].ID != "D" {
		t.Fatalf("expected root + D, got %v", rows)
	}
	if st := sess.Stats(); st.Total != 2 || st.ByType.Subpackage != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}

	sess.CollapseAll()
	if sess.Expansion().Len() != 0 {
		t.Fatalf("expected collapse all")
	}
}

func TestSession_RefreshAfterDeleteIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)
	seed(t, svc, docs)
	sess, _ := svc.Open(ctx, "proj-1")

	if err := docs.Delete(ctx, Collection, "proj-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err := sess.Refresh(ctx)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if sess.Project() != nil || sess.Rows() != nil {
		t.Fatalf("expected empty state after delete")
	}
	if _, ok := sess.ReorderWorkpackages("wp1", "wp2"); ok {
		t.Fatalf("reorder on a deleted project must be a no-op")
	}
}

func TestService_CreateAndAdd(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	var changed []string
	svc.onChange = append(svc.onChange, func(id string) { changed = append(changed, id) })

	p, err := svc.Create(ctx, "Depot", "New bus depot", "1 Yard Rd")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wp1, err := svc.AddWorkpackage(ctx, p.ID, "Civil", "")
	if err != nil {
		t.Fatalf("AddWorkpackage: %v", err)
	}
	wp2, _ := svc.AddWorkpackage(ctx, p.ID, "MEP", "")
	s1, err := svc.AddSubworkpackage(ctx, p.ID, wp1.ID, "Grading", "")
	if err != nil {
		t.Fatalf("AddSubworkpackage: %v", err)
	}
	s2, _ := svc.AddSubworkpackage(ctx, p.ID, wp2.ID, "Ducts", "")
	if s1.Priority != 0 || s2.Priority != 1 || wp2.Priority != 1 {
		t.Fatalf("unexpected priorities: s1=%d s2=%d wp2=%d", s1.Priority, s2.Priority, wp2.Priority)
	}
	task, err := svc.AddTask(ctx, p.ID, s1.ID, "Cut", "m3", model.Float(200))
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	upd, err := svc.SetTaskProgress(ctx, p.ID, task.ID, model.Float(50), nil)
	if err != nil {
		t.Fatalf("SetTaskProgress: %v", err)
	}
	if upd.Progress == nil || *upd.Progress != 25 {
		t.Fatalf("expected 25%% progress, got %v", upd.Progress)
	}

	got, _ := svc.Get(ctx, p.ID)
	if got.Workpackages[0].Subpackages[0].Tasks[0].Summary() != "25% 50/200 m3" {
		t.Fatalf("unexpected persisted task: %q", got.Workpackages[0].Subpackages[0].Tasks[0].Summary())
	}
	if len(changed) != 7 {
		t.Fatalf("expected a change notification per write, got %d", len(changed))
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("invalid project after edits: %v", err)
	}
}

func TestService_MissingTargets(t *testing.T) {
	ctx := context.Background()
	svc, docs := newTestService(t)
	seed(t, svc, docs)

	if _, err := svc.Get(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found project, got %v", err)
	}
	if _, err := svc.AddSubworkpackage(ctx, "proj-1", "wp-x", "x", ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found workpackage, got %v", err)
	}
	if _, err := svc.SetTaskProgress(ctx, "proj-1", "A", nil, model.Float(10)); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found task for a subworkpackage id, got %v", err)
	}
	if _, err := svc.SetTaskProgress(ctx, "proj-1", "t1", nil, model.Float(140)); err == nil {
		t.Fatalf("expected out-of-range progress to fail")
	}
	if docs.updates != 0 {
		t.Fatalf("failed edits must not write")
	}
}
