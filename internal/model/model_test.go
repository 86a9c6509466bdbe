package model

import (
	"errors"
	"testing"
)

func sampleProject() *Project {
	return &Project{
		ID:   "proj-a",
		Name: "Riverside",
		Workpackages: []Workpackage{
			{
				ID:   "wp-1",
				Name: "Foundations",
				Subpackages: []Subworkpackage{
					{
						ID:            "swp-1",
						WorkpackageID: "wp-1",
						Name:          "Excavation",
						Tasks: []Task{
							{ID: "t-1", Name: "Dig", Progress: Float(40), Completed: Float(12), Total: Float(30), Unit: "m3"},
						},
					},
				},
			},
			{ID: "wp-2", Name: "Framing"},
		},
	}
}

func TestResolve_WalksEveryLevel(t *testing.T) {
	p := sampleProject()

	n, err := p.Resolve(TaskPath(0, 0, 0))
	if err != nil {
		t.Fatalf("resolve task: %v", err)
	}
	task, ok := AsTask(n)
	if !ok || task.ID != "t-1" {
		t.Fatalf("expected task t-1, got %#v", n)
	}

	n, err = p.Resolve(PackagePath(1))
	if err != nil {
		t.Fatalf("resolve package: %v", err)
	}
	if n.NodeID() != "wp-2" || n.Kind() != KindPackage {
		t.Fatalf("expected wp-2 package, got %s %s", n.Kind(), n.NodeID())
	}

	n, err = p.Resolve(NodePath{})
	if err != nil || n.Kind() != KindProject {
		t.Fatalf("zero path should resolve to root, got %v %v", n, err)
	}
}

func TestResolve_OutOfRange(t *testing.T) {
	p := sampleProject()
	for _, path := range []NodePath{PackagePath(2), SubpackagePath(1, 0), TaskPath(0, 0, 5), PackagePath(-1)} {
		if _, err := p.Resolve(path); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("%s: expected ErrInvalidPath, got %v", path, err)
		}
	}
}

func TestNodePath_Accessors(t *testing.T) {
	path := SubpackagePath(3, 1)
	if i, ok := path.Package(); !ok || i != 3 {
		t.Fatalf("package index: %d %v", i, ok)
	}
	if i, ok := path.Subpackage(); !ok || i != 1 {
		t.Fatalf("subpackage index: %d %v", i, ok)
	}
	if _, ok := path.Task(); ok {
		t.Fatalf("subpackage path must not expose a task index")
	}
	if got := path.Child(4); got != TaskPath(3, 1, 4) {
		t.Fatalf("child: %s", got)
	}
	if got := path.Parent(); got != PackagePath(3) {
		t.Fatalf("parent: %s", got)
	}
	if got := path.String(); got != "/3/1" {
		t.Fatalf("string: %q", got)
	}
}

func TestFindNode(t *testing.T) {
	p := sampleProject()
	path, ok := p.FindNode("t-1")
	if !ok || path != TaskPath(0, 0, 0) {
		t.Fatalf("expected task path, got %s %v", path, ok)
	}
	if _, ok := p.FindNode("missing"); ok {
		t.Fatalf("expected missing id to be absent")
	}
}

func TestTaskSummary(t *testing.T) {
	task := sampleProject().Workpackages[0].Subpackages[0].Tasks[0]
	if got := task.Summary(); got != "40% 12/30 m3" {
		t.Fatalf("summary: %q", got)
	}
}

func TestClone_DoesNotAlias(t *testing.T) {
	p := sampleProject()
	c := p.Clone()
	c.Workpackages[0].Name = "changed"
	*c.Workpackages[0].Subpackages[0].Tasks[0].Progress = 99
	if p.Workpackages[0].Name != "Foundations" {
		t.Fatalf("clone aliased workpackages")
	}
	if *p.Workpackages[0].Subpackages[0].Tasks[0].Progress != 40 {
		t.Fatalf("clone aliased task progress")
	}
}

func TestValidate(t *testing.T) {
	p := sampleProject()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid project: %v", err)
	}
	p.Workpackages[0].Subpackages[0].WorkpackageID = "wp-2"
	if err := p.Validate(); err == nil {
		t.Fatalf("expected mismatched back-reference to fail")
	}
	p = sampleProject()
	p.Workpackages[1].ID = "wp-1"
	if err := p.Validate(); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}
}
