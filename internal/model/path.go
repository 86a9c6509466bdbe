package model

import (
	"errors"
	"fmt"
)

var ErrInvalidPath = errors.New("invalid node path")

// NodePath addresses a node relative to its project. The zero value is the
// project root. Paths are built with RootPath, PackagePath, SubpackagePath
// and TaskPath and checked against a concrete tree with Project.Resolve.
type NodePath struct {
	kind Kind
	idx  [3]int
}

func RootPath() NodePath { return NodePath{kind: KindProject} }

func PackagePath(pkg int) NodePath {
	return NodePath{kind: KindPackage, idx: [3]int{pkg, 0, 0}}
}

func SubpackagePath(pkg, sub int) NodePath {
	return NodePath{kind: KindSubpackage, idx: [3]int{pkg, sub, 0}}
}

func TaskPath(pkg, sub, task int) NodePath {
	return NodePath{kind: KindTask, idx: [3]int{pkg, sub, task}}
}

func (p NodePath) Kind() Kind {
	if p.kind == "" {
		return KindProject
	}
	return p.kind
}

func (p NodePath) Depth() int { return p.Kind().Level() }

func (p NodePath) Package() (int, bool) {
	if p.Depth() < 1 {
		return 0, false
	}
	return p.idx[0], true
}

func (p NodePath) Subpackage() (int, bool) {
	if p.Depth() < 2 {
		return 0, false
	}
	return p.idx[1], true
}

func (p NodePath) Task() (int, bool) {
	if p.Depth() < 3 {
		return 0, false
	}
	return p.idx[2], true
}

// Child returns the path of the i-th child. It panics on a task path; tasks
// are leaves.
func (p NodePath) Child(i int) NodePath {
	switch p.Kind() {
	case KindProject:
		return PackagePath(i)
	case KindPackage:
		return SubpackagePath(p.idx[0], i)
	case KindSubpackage:
		return TaskPath(p.idx[0], p.idx[1], i)
	default:
		panic("model: task has no children")
	}
}

// Parent returns the enclosing path; the root is its own parent.
func (p NodePath) Parent() NodePath {
	switch p.Kind() {
	case KindTask:
		return SubpackagePath(p.idx[0], p.idx[1])
	case KindSubpackage:
		return PackagePath(p.idx[0])
	default:
		return RootPath()
	}
}

func (p NodePath) String() string {
	switch p.Kind() {
	case KindPackage:
		return fmt.Sprintf("/%d", p.idx[0])
	case KindSubpackage:
		return fmt.Sprintf("/%d/%d", p.idx[0], p.idx[1])
	case KindTask:
		return fmt.Sprintf("/%d/%d/%d", p.idx[0], p.idx[1], p.idx[2])
	default:
		return "/"
	}
}

func (p NodePath) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Resolve returns the node at path, or ErrInvalidPath if any index is out of
// range for this project.
func (p *Project) Resolve(path NodePath) (Node, error) {
	if p == nil {
		return nil, ErrInvalidPath
	}
	if path.Kind() == KindProject {
		return p, nil
	}
	i := path.idx[0]
	if i < 0 || i >= len(p.Workpackages) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	wp := &p.Workpackages[i]
	if path.Kind() == KindPackage {
		return wp, nil
	}
	j := path.idx[1]
	if j < 0 || j >= len(wp.Subpackages) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	sp := &wp.Subpackages[j]
	if path.Kind() == KindSubpackage {
		return sp, nil
	}
	k := path.idx[2]
	if k < 0 || k >= len(sp.Tasks) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return &sp.Tasks[k], nil
}
