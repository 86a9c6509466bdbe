package model

import "time"

// Kind identifies which level of the project hierarchy a node lives on.
type Kind string

const (
	KindProject    Kind = "project"
	KindPackage    Kind = "package"
	KindSubpackage Kind = "subpackage"
	KindTask       Kind = "task"
)

// Level returns the depth of the kind in the tree (project = 0, task = 3).
func (k Kind) Level() int {
	switch k {
	case KindProject:
		return 0
	case KindPackage:
		return 1
	case KindSubpackage:
		return 2
	case KindTask:
		return 3
	default:
		return -1
	}
}

func (k Kind) Valid() bool { return k.Level() >= 0 }

// Project is the root document. Workpackages, subworkpackages and tasks are
// embedded in it and are always written back as whole collections.
type Project struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Address     string `json:"address,omitempty" yaml:"address,omitempty"`
	Owner       string `json:"owner,omitempty" yaml:"owner,omitempty"`

	Workpackages []Workpackage `json:"workpackages" yaml:"workpackages"`

	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

type Workpackage struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    int      `json:"priority" yaml:"priority"`
	Progress    *float64 `json:"progress,omitempty" yaml:"progress,omitempty"`

	Subpackages []Subworkpackage `json:"subpackages" yaml:"subpackages"`
}

// Subworkpackage carries a back-reference to its workpackage because the
// reorder UI interleaves subworkpackages of every workpackage into one list.
// Priority is a project-wide rank, not a per-workpackage index.
type Subworkpackage struct {
	ID            string   `json:"id" yaml:"id"`
	WorkpackageID string   `json:"workpackageId" yaml:"workpackageId"`
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Priority      int      `json:"priority" yaml:"priority"`
	Progress      *float64 `json:"progress,omitempty" yaml:"progress,omitempty"`

	Tasks []Task `json:"tasks" yaml:"tasks"`
}

// Task is the leaf of the hierarchy. Its numeric fields are authoritative.
type Task struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Unit        string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Progress    *float64 `json:"progress,omitempty" yaml:"progress,omitempty"`
	Completed   *float64 `json:"completed,omitempty" yaml:"completed,omitempty"`
	Total       *float64 `json:"total,omitempty" yaml:"total,omitempty"`
}

// Clone returns a deep copy so sessions can mutate their snapshot without
// aliasing the caller's slices.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Workpackages = make([]Workpackage, len(p.Workpackages))
	for i, wp := range p.Workpackages {
		out.Workpackages[i] = wp.clone()
	}
	return &out
}

func (wp Workpackage) clone() Workpackage {
	out := wp
	out.Progress = cloneFloat(wp.Progress)
	out.Subpackages = make([]Subworkpackage, len(wp.Subpackages))
	for i, sp := range wp.Subpackages {
		out.Subpackages[i] = sp.clone()
	}
	return out
}

func (sp Subworkpackage) clone() Subworkpackage {
	out := sp
	out.Progress = cloneFloat(sp.Progress)
	out.Tasks = make([]Task, len(sp.Tasks))
	for i, t := range sp.Tasks {
		out.Tasks[i] = t.clone()
	}
	return out
}

func (t Task) clone() Task {
	out := t
	out.Progress = cloneFloat(t.Progress)
	out.Completed = cloneFloat(t.Completed)
	out.Total = cloneFloat(t.Total)
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

// Float is a small helper for building optional numeric fields.
func Float(v float64) *float64 { return &v }

// FindWorkpackage returns the index of the workpackage with the given id.
func (p *Project) FindWorkpackage(id string) (int, bool) {
	for i := range p.Workpackages {
		if p.Workpackages[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// FindNode locates any node by id and returns its path.
func (p *Project) FindNode(id string) (NodePath, bool) {
	if p == nil {
		return NodePath{}, false
	}
	if p.ID == id {
		return RootPath(), true
	}
	for i := range p.Workpackages {
		wp := &p.Workpackages[i]
		if wp.ID == id {
			return PackagePath(i), true
		}
		for j := range wp.Subpackages {
			sp := &wp.Subpackages[j]
			if sp.ID == id {
				return SubpackagePath(i, j), true
			}
			for k := range sp.Tasks {
				if sp.Tasks[k].ID == id {
					return TaskPath(i, j, k), true
				}
			}
		}
	}
	return NodePath{}, false
}
