package web

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ac7x/lin-llc-sub001/internal/model"
	"github.com/ac7x/lin-llc-sub001/internal/project"
	"github.com/ac7x/lin-llc-sub001/internal/store"

	"github.com/gorilla/websocket"
)

func dialProject(t *testing.T, ts *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/projects/" + id
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f serverFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

// readUntil skips frames until ok accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, ok func(serverFrame) bool) serverFrame {
	t.Helper()
	for i := 0; i < 10; i++ {
		if f := readFrame(t, conn); ok(f) {
			return f
		}
	}
	t.Fatalf("no matching frame")
	return serverFrame{}
}

func frameIDs(f serverFrame) string {
	var ids []string
	for _, r := range f.Rows {
		ids = append(ids, r.ID)
	}
	return strings.Join(ids, ",")
}

func TestWS_ToggleFilterAndScroll(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	conn := dialProject(t, ts, "proj-web")

	first := readFrame(t, conn)
	if first.Type != "rows" || frameIDs(first) != "proj-web,wp1,wp2" {
		t.Fatalf("unexpected initial frame %+v", first)
	}

	_ = conn.WriteJSON(clientFrame{Type: "toggle", ID: "wp1"})
	f := readFrame(t, conn)
	if frameIDs(f) != "proj-web,wp1,A,B,wp2" || f.Total != 5 {
		t.Fatalf("unexpected rows after toggle: %s", frameIDs(f))
	}

	_ = conn.WriteJSON(clientFrame{Type: "filter", Filter: "caps"})
	f = readFrame(t, conn)
	if frameIDs(f) != "proj-web,B" {
		t.Fatalf("unexpected rows after filter: %s", frameIDs(f))
	}
	if len(f.Expanded) != 1 || f.Expanded[0] != "wp1" {
		t.Fatalf("filter must not touch expansion: %v", f.Expanded)
	}

	_ = conn.WriteJSON(clientFrame{Type: "filter"})
	_ = readFrame(t, conn)
	_ = conn.WriteJSON(clientFrame{Type: "scroll", Offset: 3, Height: 1})
	f = readFrame(t, conn)
	// Offset 3 with overscan 2 renders rows 1..5.
	if f.Start != 1 || frameIDs(f) != "wp1,A,B,wp2" || f.Viewport.Offset != 3 {
		t.Fatalf("unexpected window: start=%d rows=%s vp=%+v", f.Start, frameIDs(f), f.Viewport)
	}

	_ = conn.WriteJSON(clientFrame{Type: "collapseAll"})
	f = readFrame(t, conn)
	if f.Total != 3 || len(f.Expanded) != 0 {
		t.Fatalf("unexpected frame after collapse all: %+v", f)
	}

	_ = conn.WriteJSON(clientFrame{Type: "bogus"})
	if f := readFrame(t, conn); f.Type != "error" {
		t.Fatalf("expected error frame, got %+v", f)
	}
}

func TestWS_DragEndCommitsAndNotifiesOtherViews(t *testing.T) {
	srv, st := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	a := dialProject(t, ts, "proj-web")
	b := dialProject(t, ts, "proj-web")
	_ = readFrame(t, a)
	_ = readFrame(t, b)

	_ = a.WriteJSON(clientFrame{Type: "dragEnd", Kind: model.KindPackage, ActiveID: "wp2", OverID: "wp1"})
	f := readFrame(t, a)
	if frameIDs(f) != "proj-web,wp2,wp1" {
		t.Fatalf("expected optimistic order, got %s", frameIDs(f))
	}

	f = readUntil(t, b, func(f serverFrame) bool { return f.Type == "rows" && frameIDs(f) == "proj-web,wp2,wp1" })
	if f.Missing {
		t.Fatalf("project should still exist")
	}

	doc, err := st.Get(context.Background(), project.Collection, "proj-web")
	if err != nil {
		t.Fatal(err)
	}
	var p model.Project
	_ = doc.Decode(&p)
	if p.Workpackages[0].ID != "wp2" || p.Workpackages[0].Priority != 0 || p.Workpackages[1].Priority != 1 {
		t.Fatalf("unexpected stored order %+v", p.Workpackages)
	}
}

func TestWS_DeletedProjectShowsEmptyState(t *testing.T) {
	srv, st := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialProject(t, ts, "proj-web")
	_ = readFrame(t, conn)

	if err := st.Delete(context.Background(), project.Collection, "proj-web"); err != nil {
		t.Fatal(err)
	}
	srv.bc.projectChanged("proj-web")

	f := readUntil(t, conn, func(f serverFrame) bool { return f.Missing })
	if f.Total != 0 || len(f.Rows) != 0 {
		t.Fatalf("expected empty rows, got %+v", f)
	}
}

func TestWS_UnknownProject(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/projects/nope"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %v", resp)
	}
}

func TestWS_DragEndFailureSendsErrorAndKeepsOrder(t *testing.T) {
	srv, _ := newTestServerWith(t, func(st *store.Store) project.Documents { return rejectingDocs{st} })
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	conn := dialProject(t, ts, "proj-web")
	_ = readFrame(t, conn)

	_ = conn.WriteJSON(clientFrame{Type: "dragEnd", Kind: model.KindPackage, ActiveID: "wp2", OverID: "wp1"})
	f := readFrame(t, conn)
	if f.Type != "rows" || frameIDs(f) != "proj-web,wp2,wp1" {
		t.Fatalf("expected optimistic rows first, got %+v", f)
	}
	f = readFrame(t, conn)
	if f.Type != "error" || !strings.Contains(f.Error, "disk full") {
		t.Fatalf("expected error frame, got %+v", f)
	}

	// The view keeps the local order after the failed write.
	_ = conn.WriteJSON(clientFrame{Type: "filter"})
	f = readFrame(t, conn)
	if f.Type != "rows" || frameIDs(f) != "proj-web,wp2,wp1" {
		t.Fatalf("expected optimistic order kept, got %+v", f)
	}
}
