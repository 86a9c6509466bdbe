package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ac7x/lin-llc-sub001/internal/project"
	"github.com/ac7x/lin-llc-sub001/internal/store"
	"github.com/ac7x/lin-llc-sub001/internal/tree"

	"github.com/starfederation/datastar-go/datastar"
)

// streamSignals is the client-side view state of the project page.
// Expanded is a comma-separated id list.
type streamSignals struct {
	Filter   string `json:"filter"`
	Expanded string `json:"expanded"`
}

func (s *Server) handleProjectStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("projectId")
	var sig streamSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		http.Error(w, "invalid signals: "+err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.svc.Open(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	sess.SetExpansion(tree.NewExpansion(splitIDs(sig.Expanded)...))
	sess.SetFilter(sig.Filter)

	render := func() (string, error) {
		if err := sess.Refresh(r.Context()); err != nil && !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
		return s.renderTemplate("rows", s.rowsVM(sess))
	}
	s.serveDatastarElementsStream(w, r, projectKey(id), "#rows", datastar.ElementPatchModeInner, sess, render)
}

// serveDatastarElementsStream patches selector once immediately and again
// after every change broadcast on key, until the client goes away.
func (s *Server) serveDatastarElementsStream(w http.ResponseWriter, r *http.Request, key resourceKey, selector string, mode datastar.ElementPatchMode, sess *project.Session, render func() (string, error)) {
	sse := datastar.NewSSE(w, r)

	h := s.bc.hubFor(key)
	ch, cancel := h.subscribe()
	defer cancel()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	selector = strings.TrimSpace(selector)
	patch := func() {
		html, err := render()
		if err != nil {
			s.log.WithField("resource", key.String()).WithError(err).Warn("render stream patch")
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			return
		}
		_ = sse.PatchElements(html, datastar.WithSelector(selector), datastar.WithMode(mode))
		_ = sse.MarshalAndPatchSignals(map[string]any{"rowCount": len(sess.Rows())})
	}

	patch()
	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case _, ok := <-ch:
			if !ok {
				return
			}
			patch()
		}
	}
}
