package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ac7x/lin-llc-sub001/internal/config"
	"github.com/ac7x/lin-llc-sub001/internal/model"
	"github.com/ac7x/lin-llc-sub001/internal/project"
	"github.com/ac7x/lin-llc-sub001/internal/store"
	"github.com/ac7x/lin-llc-sub001/internal/tree"

	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var assetsFS embed.FS

const defaultDatastarJS = "https://cdn.jsdelivr.net/gh/starfederation/datastar@main/bundles/datastar.js"

type ServerConfig struct {
	Store *store.Store
	// Documents overrides Store as the project document backend. The event
	// log always goes to Store.
	Documents project.Documents
	Log       logrus.FieldLogger

	SmartExpandThreshold int
	Overscan             int
	// PageSize bounds the rows returned when a request sets no limit.
	PageSize int

	DatastarJS string
}

type Server struct {
	cfg  ServerConfig
	svc  *project.Service
	log  logrus.FieldLogger
	tmpl *template.Template
	bc   *resourceBroadcaster
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("web: store is nil")
	}
	if cfg.Log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		cfg.Log = quiet
	}
	if cfg.SmartExpandThreshold <= 0 {
		cfg.SmartExpandThreshold = config.DefaultSmartExpandThreshold
	}
	if cfg.Overscan < 0 {
		cfg.Overscan = 0
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if strings.TrimSpace(cfg.DatastarJS) == "" {
		cfg.DatastarJS = defaultDatastarJS
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"markdown": renderMarkdownHTML,
		"indent":   func(level int) int { return level * 18 },
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:  cfg,
		log:  cfg.Log,
		tmpl: tmpl,
		bc:   newResourceBroadcaster(),
	}
	var docs project.Documents = cfg.Store
	if cfg.Documents != nil {
		docs = cfg.Documents
	}
	s.svc = project.NewService(docs,
		project.WithEvents(cfg.Store),
		project.WithLogger(cfg.Log),
		project.WithOnChange(s.bc.projectChanged),
	)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/projects", s.handleAPIProjects)
	mux.HandleFunc("GET /api/projects/{projectId}/rows", s.handleAPIRows)
	mux.HandleFunc("POST /api/projects/{projectId}/reorder", s.handleAPIReorder)
	mux.HandleFunc("GET /ws/projects/{projectId}", s.handleWS)
	mux.HandleFunc("GET /projects/{projectId}", s.handleProject)
	mux.HandleFunc("GET /projects/{projectId}/stream", s.handleProjectStream)
	mux.HandleFunc("GET /{$}", s.handleHome)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return badRequestError{msg: msg} }

func statusFor(err error) int {
	var bad badRequestError
	var perr *project.PersistenceError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &perr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.WithFields(logrus.Fields{"path": r.URL.Path, "status": status}).WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

type projectSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address,omitempty"`
	Workpackages int    `json:"workpackages"`
}

func (s *Server) handleAPIProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := s.svc.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]projectSummary, 0, len(ps))
	for _, p := range ps {
		out = append(out, projectSummary{ID: p.ID, Name: p.Name, Address: p.Address, Workpackages: len(p.Workpackages)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// rowsQuery is the view state a stateless client sends with each request.
type rowsQuery struct {
	Filter   string
	Expanded []string
	Smart    int
	Offset   int
	Limit    int
}

func splitIDs(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func parseRowsQuery(r *http.Request) (rowsQuery, error) {
	q := r.URL.Query()
	out := rowsQuery{
		Filter:   q.Get("filter"),
		Expanded: splitIDs(q.Get("expanded")),
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{{"offset", &out.Offset}, {"limit", &out.Limit}, {"smart", &out.Smart}} {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return rowsQuery{}, badRequest("invalid " + f.name + ": " + raw)
		}
		*f.dst = n
	}
	return out, nil
}

// openView builds a session for the request's view state.
func (s *Server) openView(r *http.Request, id string, q rowsQuery) (*project.Session, error) {
	sess, err := s.svc.Open(r.Context(), id)
	if err != nil {
		return nil, err
	}
	sess.SetExpansion(tree.NewExpansion(q.Expanded...))
	sess.SetFilter(q.Filter)
	if q.Smart > 0 {
		sess.SmartExpand(q.Smart)
	}
	return sess, nil
}

func (s *Server) handleAPIRows(w http.ResponseWriter, r *http.Request) {
	q, err := parseRowsQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.openView(r, r.PathValue("projectId"), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rows := sess.Rows()
	limit := q.Limit
	if limit == 0 {
		limit = s.cfg.PageSize
	}
	vp := tree.Viewport{Offset: q.Offset, Height: limit}.Clamp(len(rows))
	writeJSON(w, http.StatusOK, map[string]any{
		"data": vp.Slice(rows),
		"meta": map[string]any{
			"total":    len(rows),
			"offset":   vp.Offset,
			"limit":    limit,
			"expanded": sess.Expansion().IDs(),
			"stats":    sess.Stats(),
		},
	})
}

type reorderRequest struct {
	Kind     model.Kind `json:"kind"`
	ActiveID string     `json:"activeId"`
	OverID   string     `json:"overId"`
}

func (s *Server) handleAPIReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		s.writeError(w, r, badRequest("invalid json: "+err.Error()))
		return
	}
	if req.Kind != model.KindPackage && req.Kind != model.KindSubpackage {
		s.writeError(w, r, badRequest("kind must be package or subpackage"))
		return
	}
	sess, err := s.svc.Open(r.Context(), r.PathValue("projectId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	changed, err := sess.ReorderAndCommit(r.Context(), req.Kind, req.ActiveID, req.OverID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"changed": changed}})
}

type homeVM struct {
	Projects []projectSummary
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ps, err := s.svc.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	vm := homeVM{}
	for _, p := range ps {
		vm.Projects = append(vm.Projects, projectSummary{ID: p.ID, Name: p.Name, Address: p.Address, Workpackages: len(p.Workpackages)})
	}
	s.writeHTMLTemplate(w, "home.html", vm)
}

type rowVM struct {
	tree.FlatItem
	Description string
	Draggable   bool
}

type rowsVM struct {
	ProjectID string
	Rows      []rowVM
	Stats     tree.Stats
	Empty     bool
}

type projectVM struct {
	Project    *model.Project
	DatastarJS string
	Signals    string
	Rows       rowsVM
}

func (s *Server) rowsVM(sess *project.Session) rowsVM {
	vm := rowsVM{ProjectID: sess.ProjectID(), Empty: sess.Project() == nil}
	rows := sess.Rows()
	if len(rows) > s.cfg.PageSize {
		rows = rows[:s.cfg.PageSize]
	}
	for _, it := range rows {
		vm.Rows = append(vm.Rows, rowVM{
			FlatItem:    it,
			Description: it.Node.Details(),
			Draggable:   it.Kind == model.KindPackage || it.Kind == model.KindSubpackage,
		})
	}
	vm.Stats = sess.Stats()
	return vm
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("projectId")
	sess, err := s.svc.Open(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	signals, _ := json.Marshal(streamSignals{})
	s.writeHTMLTemplate(w, "project.html", projectVM{
		Project:    sess.Project(),
		DatastarJS: s.cfg.DatastarJS,
		Signals:    string(signals),
		Rows:       s.rowsVM(sess),
	})
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}
