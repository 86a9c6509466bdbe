package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ac7x/lin-llc-sub001/internal/store"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, dir string, args ...string) cliResult {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.Execute()
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

func mustRun(t *testing.T, dir string, args ...string) map[string]any {
	t.Helper()
	res := runCLI(t, dir, args...)
	if res.err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, res.err, res.stderr)
	}
	var env map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &env); err != nil {
		t.Fatalf("%v: invalid json %q: %v", args, res.stdout, err)
	}
	return env
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %#v", env["data"])
	}
	return m
}

func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LINLLC_DIR", "")
	return t.TempDir()
}

func TestCLI_ProjectLifecycle(t *testing.T) {
	dir := isolate(t)

	initOut := dataMap(t, mustRun(t, dir, "init"))
	if initOut["dir"] != dir || !strings.HasSuffix(initOut["sqlitePath"].(string), "linllc.sqlite") {
		t.Fatalf("unexpected init output %#v", initOut)
	}

	p := dataMap(t, mustRun(t, dir, "projects", "create", "--name", "Riverside Clinic", "--address", "12 Quay St"))
	pid := p["id"].(string)
	if !strings.HasPrefix(pid, "proj-") {
		t.Fatalf("unexpected project id %q", pid)
	}

	wpA := dataMap(t, mustRun(t, dir, "workpackages", "add", pid, "--name", "Foundations"))["id"].(string)
	wpB := dataMap(t, mustRun(t, dir, "wp", "add", pid, "--name", "Framing"))["id"].(string)
	swp := dataMap(t, mustRun(t, dir, "subworkpackages", "add", pid, "--workpackage", wpA, "--name", "Excavation"))
	if swp["priority"].(float64) != 0 {
		t.Fatalf("unexpected subworkpackage priority %#v", swp)
	}
	swpID := swp["id"].(string)

	task := dataMap(t, mustRun(t, dir, "tasks", "add", pid, "--subworkpackage", swpID, "--name", "Dig", "--unit", "m3", "--total", "200"))
	taskID := task["id"].(string)
	task = dataMap(t, mustRun(t, dir, "tasks", "set-progress", pid, taskID, "--completed", "50"))
	if task["progress"].(float64) != 25 {
		t.Fatalf("expected 25%% progress, got %#v", task["progress"])
	}

	list := mustRun(t, dir, "projects", "list")["data"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["workpackages"].(float64) != 2 {
		t.Fatalf("unexpected list %#v", list)
	}

	show := mustRun(t, dir, "projects", "show", pid)
	meta := show["meta"].(map[string]any)
	if meta["tasks"].(float64) != 1 || len(meta["issues"].([]any)) != 0 {
		t.Fatalf("unexpected show meta %#v", meta)
	}

	// Drag Framing onto Foundations.
	re := dataMap(t, mustRun(t, dir, "workpackages", "reorder", pid, "--active", wpB, "--over", wpA))
	if re["changed"] != true {
		t.Fatalf("expected a change, got %#v", re)
	}
	order := re["order"].([]any)
	if order[0].(map[string]any)["id"] != wpB || order[0].(map[string]any)["priority"].(float64) != 0 {
		t.Fatalf("unexpected order %#v", order)
	}
	re = dataMap(t, mustRun(t, dir, "workpackages", "reorder", pid, "--active", wpB, "--over", wpB))
	if re["changed"] != false {
		t.Fatalf("expected a no-op, got %#v", re)
	}

	evs := mustRun(t, dir, "events", "--entity", pid)["data"].([]any)
	// create, 2x workpackage.add, subworkpackage.add, task.add, task.progress, reorder
	if len(evs) != 7 {
		t.Fatalf("expected 7 events, got %d", len(evs))
	}
	if evs[6].(map[string]any)["type"] != "workpackage.reorder" {
		t.Fatalf("unexpected last event %#v", evs[6])
	}
}

func TestCLI_Tree(t *testing.T) {
	dir := isolate(t)
	pid := dataMap(t, mustRun(t, dir, "projects", "create", "--name", "Depot"))["id"].(string)
	wp := dataMap(t, mustRun(t, dir, "workpackages", "add", pid, "--name", "Civil"))["id"].(string)
	mustRun(t, dir, "workpackages", "add", pid, "--name", "Electrical")
	swp := dataMap(t, mustRun(t, dir, "subworkpackages", "add", pid, "--workpackage", wp, "--name", "Grading"))["id"].(string)
	mustRun(t, dir, "tasks", "add", pid, "--subworkpackage", swp, "--name", "Cut and fill")

	env := mustRun(t, dir, "tree", pid)
	if rows := env["data"].([]any); len(rows) != 3 {
		t.Fatalf("expected collapsed tree of 3 rows, got %d", len(rows))
	}

	env = mustRun(t, dir, "tree", pid, "--expand-all")
	meta := env["meta"].(map[string]any)
	if meta["total"].(float64) != 5 {
		t.Fatalf("expected 5 rows expanded, got %#v", meta)
	}

	env = mustRun(t, dir, "tree", pid, "--expand", wp, "--offset", "1", "--limit", "2")
	rows := env["data"].([]any)
	if len(rows) != 2 || rows[0].(map[string]any)["id"] != wp || rows[1].(map[string]any)["type"] != "subpackage" {
		t.Fatalf("unexpected window %#v", rows)
	}

	env = mustRun(t, dir, "tree", pid, "--smart", "4")
	if env["meta"].(map[string]any)["total"].(float64) < 4 {
		t.Fatalf("smart expand should reach the threshold: %#v", env["meta"])
	}

	env = mustRun(t, dir, "tree", pid, "--expand-all", "--filter", "grading,electrical")
	if got := len(env["data"].([]any)); got != 3 {
		t.Fatalf("expected root + 2 matches, got %d", got)
	}

	res := runCLI(t, dir, "tree", pid, "--expand", "nope")
	if !errors.Is(res.err, store.ErrNotFound) || !strings.Contains(res.stderr, "node not found: nope") {
		t.Fatalf("expected not found for unknown expand id, got %v / %q", res.err, res.stderr)
	}

	st := &store.Store{Dir: dir}
	vs, err := st.LoadViewState()
	if err != nil || vs.SelectedProjectID != pid {
		t.Fatalf("expected view state to remember the project, got %+v (%v)", vs, err)
	}
}

func TestCLI_YAMLAndErrors(t *testing.T) {
	dir := isolate(t)

	res := runCLI(t, dir, "--format", "yaml", "projects", "create", "--name", "Yard")
	if res.err != nil || !strings.HasPrefix(res.stdout, "data:\n") || !strings.Contains(res.stdout, "name: Yard") {
		t.Fatalf("unexpected yaml output %q (%v)", res.stdout, res.err)
	}

	res = runCLI(t, dir, "projects", "show", "proj-missing")
	if !errors.Is(res.err, store.ErrNotFound) || !strings.Contains(res.stderr, "project not found") {
		t.Fatalf("expected not found, got %v / %q", res.err, res.stderr)
	}

	res = runCLI(t, dir, "tasks", "set-progress", "proj-missing", "task-x")
	if res.err == nil || !strings.Contains(res.stderr, "--completed") {
		t.Fatalf("expected usage error, got %v / %q", res.err, res.stderr)
	}

	res = runCLI(t, dir, "--format", "edn", "projects", "list")
	if res.err == nil {
		t.Fatalf("expected unknown format to fail")
	}
}

func TestCLI_Docs(t *testing.T) {
	dir := isolate(t)

	topics := dataMap(t, mustRun(t, dir, "docs"))["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected topics")
	}

	res := runCLI(t, dir, "docs", "reorder", "--raw")
	if res.err != nil || !strings.HasPrefix(res.stdout, "# Reorder") {
		t.Fatalf("unexpected raw docs %q (%v)", res.stdout, res.err)
	}

	res = runCLI(t, dir, "docs", "nope")
	if !errors.Is(res.err, store.ErrNotFound) {
		t.Fatalf("expected unknown topic to fail with not found, got %v", res.err)
	}
}
