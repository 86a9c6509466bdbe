// Package project loads project documents, applies edits to them and writes
// them back as whole collections.
package project

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ac7x/lin-llc-sub001/internal/model"
	"github.com/ac7x/lin-llc-sub001/internal/store"

	"github.com/sirupsen/logrus"
)

// Collection is the document collection that holds projects.
const Collection = "projects"

// Documents is the slice of the document store the service needs.
type Documents interface {
	Get(ctx context.Context, collection, id string) (store.Document, error)
	Put(ctx context.Context, collection, id string, v any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	List(ctx context.Context, collection string) ([]store.Document, error)
}

// EventLog receives an audit entry after every successful write.
type EventLog interface {
	AppendEvent(ctx context.Context, typ, entityID string, payload any) (store.Event, error)
}

type Service struct {
	docs     Documents
	events   EventLog
	log      logrus.FieldLogger
	now      func() time.Time
	onChange []func(projectID string)
}

type Option func(*Service)

// WithEvents enables the audit log.
func WithEvents(ev EventLog) Option { return func(s *Service) { s.events = ev } }

// WithLogger sets the logger; the default discards output.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

// WithOnChange registers fn to run after each successful write.
func WithOnChange(fn func(projectID string)) Option {
	return func(s *Service) { s.onChange = append(s.onChange, fn) }
}

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(docs Documents, opts ...Option) *Service {
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	s := &Service{
		docs: docs,
		log:  quiet,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get fetches and decodes one project.
func (s *Service) Get(ctx context.Context, id string) (*model.Project, error) {
	id = strings.TrimSpace(id)
	doc, err := s.docs.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundError{Kind: "project", ID: id}
		}
		return nil, err
	}
	var p model.Project
	if err := doc.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = doc.ID
	}
	normalize(&p)
	return &p, nil
}

func (s *Service) List(ctx context.Context) ([]model.Project, error) {
	docs, err := s.docs.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	out := make([]model.Project, 0, len(docs))
	for _, d := range docs {
		var p model.Project
		if err := d.Decode(&p); err != nil {
			s.log.WithField("project", d.ID).WithError(err).Warn("skipping undecodable project")
			continue
		}
		if p.ID == "" {
			p.ID = d.ID
		}
		normalize(&p)
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, name, description, address string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("project name is required")
	}
	id, err := store.NewID("proj")
	if err != nil {
		return nil, err
	}
	now := s.now()
	p := &model.Project{
		ID:           id,
		Name:         name,
		Description:  strings.TrimSpace(description),
		Address:      strings.TrimSpace(address),
		Workpackages: []model.Workpackage{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.docs.Put(ctx, Collection, p.ID, p); err != nil {
		return nil, &PersistenceError{Op: "project.create", ProjectID: p.ID, Err: err}
	}
	s.committed(ctx, "project.create", p.ID, map[string]any{"name": p.Name})
	return p, nil
}

func (s *Service) AddWorkpackage(ctx context.Context, projectID, name, description string) (*model.Workpackage, error) {
	var added model.Workpackage
	err := s.mutate(ctx, projectID, "workpackage.add", func(p *model.Project) (any, error) {
		id, err := store.NewID("wp")
		if err != nil {
			return nil, err
		}
		added = model.Workpackage{
			ID:          id,
			Name:        strings.TrimSpace(name),
			Description: strings.TrimSpace(description),
			Priority:    len(p.Workpackages),
			Subpackages: []model.Subworkpackage{},
		}
		p.Workpackages = append(p.Workpackages, added)
		return map[string]any{"id": id, "name": added.Name}, nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// AddSubworkpackage appends to the workpackage and ranks the new entry after
// every existing subworkpackage of the project.
func (s *Service) AddSubworkpackage(ctx context.Context, projectID, workpackageID, name, description string) (*model.Subworkpackage, error) {
	var added model.Subworkpackage
	err := s.mutate(ctx, projectID, "subworkpackage.add", func(p *model.Project) (any, error) {
		i, ok := p.FindWorkpackage(workpackageID)
		if !ok {
			return nil, NotFoundError{Kind: "workpackage", ID: workpackageID}
		}
		id, err := store.NewID("swp")
		if err != nil {
			return nil, err
		}
		next := 0
		for _, sp := range GlobalSubworkpackages(p) {
			if sp.Priority >= next {
				next = sp.Priority + 1
			}
		}
		added = model.Subworkpackage{
			ID:            id,
			WorkpackageID: workpackageID,
			Name:          strings.TrimSpace(name),
			Description:   strings.TrimSpace(description),
			Priority:      next,
			Tasks:         []model.Task{},
		}
		p.Workpackages[i].Subpackages = append(p.Workpackages[i].Subpackages, added)
		return map[string]any{"id": id, "workpackageId": workpackageID, "name": added.Name}, nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

func (s *Service) AddTask(ctx context.Context, projectID, subworkpackageID, name, unit string, total *float64) (*model.Task, error) {
	var added model.Task
	err := s.mutate(ctx, projectID, "task.add", func(p *model.Project) (any, error) {
		path, ok := p.FindNode(subworkpackageID)
		if !ok || path.Kind() != model.KindSubpackage {
			return nil, NotFoundError{Kind: "subworkpackage", ID: subworkpackageID}
		}
		n, err := p.Resolve(path)
		if err != nil {
			return nil, err
		}
		sp, _ := model.AsSubworkpackage(n)
		id, err := store.NewID("task")
		if err != nil {
			return nil, err
		}
		added = model.Task{
			ID:       id,
			Name:     strings.TrimSpace(name),
			Unit:     strings.TrimSpace(unit),
			Total:    total,
			Progress: model.Float(0),
		}
		sp.Tasks = append(sp.Tasks, added)
		return map[string]any{"id": id, "subworkpackageId": subworkpackageID, "name": added.Name}, nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// SetTaskProgress records completed quantity. Progress is derived from
// completed/total when the task has a total, otherwise taken from percent.
func (s *Service) SetTaskProgress(ctx context.Context, projectID, taskID string, completed, percent *float64) (*model.Task, error) {
	var updated model.Task
	err := s.mutate(ctx, projectID, "task.progress", func(p *model.Project) (any, error) {
		path, ok := p.FindNode(taskID)
		if !ok || path.Kind() != model.KindTask {
			return nil, NotFoundError{Kind: "task", ID: taskID}
		}
		n, err := p.Resolve(path)
		if err != nil {
			return nil, err
		}
		t, _ := model.AsTask(n)
		if completed != nil {
			t.Completed = model.Float(*completed)
			if t.Total != nil && *t.Total > 0 {
				pct := *completed / *t.Total * 100
				if pct > 100 {
					pct = 100
				}
				t.Progress = model.Float(pct)
			}
		}
		if percent != nil {
			if *percent < 0 || *percent > 100 {
				return nil, fmt.Errorf("progress must be within 0..100, got %v", *percent)
			}
			t.Progress = model.Float(*percent)
		}
		updated = *t
		return map[string]any{"id": t.ID, "progress": t.Progress, "completed": t.Completed}, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// mutate is the read-modify-write cycle shared by every edit: fetch the
// document, let fn change it, then overwrite the whole workpackage tree.
func (s *Service) mutate(ctx context.Context, projectID, op string, fn func(p *model.Project) (any, error)) error {
	p, err := s.Get(ctx, projectID)
	if err != nil {
		return err
	}
	payload, err := fn(p)
	if err != nil {
		return err
	}
	return s.write(ctx, op, p.ID, p.Workpackages, payload)
}

func (s *Service) write(ctx context.Context, op, projectID string, wps []model.Workpackage, payload any) error {
	fields := map[string]any{
		"workpackages": wps,
		"updatedAt":    s.now(),
	}
	if err := s.docs.Update(ctx, Collection, projectID, fields); err != nil {
		s.log.WithFields(logrus.Fields{
			"project":    projectID,
			"collection": Collection,
			"op":         op,
		}).WithError(err).Error("persist failed")
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError{Kind: "project", ID: projectID}
		}
		return &PersistenceError{Op: op, ProjectID: projectID, Err: err}
	}
	s.committed(ctx, op, projectID, payload)
	return nil
}

func (s *Service) committed(ctx context.Context, op, projectID string, payload any) {
	if s.events != nil {
		if _, err := s.events.AppendEvent(ctx, op, projectID, payload); err != nil {
			s.log.WithField("project", projectID).WithError(err).Warn("append event failed")
		}
	}
	for _, fn := range s.onChange {
		fn(projectID)
	}
}

// normalize sets each subworkpackage's back-reference to the workpackage that
// contains it and replaces nil slices so documents written back always carry
// arrays. The nesting wins over a stale or dangling workpackageId.
func normalize(p *model.Project) {
	if p.Workpackages == nil {
		p.Workpackages = []model.Workpackage{}
	}
	for i := range p.Workpackages {
		wp := &p.Workpackages[i]
		if wp.Subpackages == nil {
			wp.Subpackages = []model.Subworkpackage{}
		}
		for j := range wp.Subpackages {
			sp := &wp.Subpackages[j]
			sp.WorkpackageID = wp.ID
			if sp.Tasks == nil {
				sp.Tasks = []model.Task{}
			}
		}
	}
}

// OrderedWorkpackages returns the workpackages in priority order (stored
// order breaks ties).
func OrderedWorkpackages(p *model.Project) []model.Workpackage {
	out := append([]model.Workpackage(nil), p.Workpackages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// GlobalSubworkpackages interleaves the subworkpackages of every workpackage
// into one list ordered by their project-wide priority. Ties fall back to
// workpackage order, then stored order.
func GlobalSubworkpackages(p *model.Project) []model.Subworkpackage {
	var out []model.Subworkpackage
	for _, wp := range p.Workpackages {
		for _, sp := range wp.Subpackages {
			sp.WorkpackageID = wp.ID
			out = append(out, sp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
