package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ac7x/lin-llc-sub001/internal/model"
	"github.com/ac7x/lin-llc-sub001/internal/project"
	"github.com/ac7x/lin-llc-sub001/internal/store"
	"github.com/ac7x/lin-llc-sub001/internal/tree"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// clientFrame is a message from the browser. Type selects which fields
// apply: toggle(id), filter(filter), smartExpand(threshold), collapseAll,
// scroll(offset, height), dragEnd(kind, activeId, overId).
type clientFrame struct {
	Type      string     `json:"type"`
	ID        string     `json:"id,omitempty"`
	Filter    string     `json:"filter,omitempty"`
	Threshold int        `json:"threshold,omitempty"`
	Offset    int        `json:"offset,omitempty"`
	Height    int        `json:"height,omitempty"`
	Kind      model.Kind `json:"kind,omitempty"`
	ActiveID  string     `json:"activeId,omitempty"`
	OverID    string     `json:"overId,omitempty"`
}

// serverFrame carries the rendered window (type "rows") or a failure
// (type "error"). An error frame never resets the view.
type serverFrame struct {
	Type     string          `json:"type"`
	Rows     []tree.FlatItem `json:"rows,omitempty"`
	Start    int             `json:"start"`
	Total    int             `json:"total"`
	Viewport tree.Viewport   `json:"viewport"`
	Expanded []string        `json:"expanded,omitempty"`
	Stats    *tree.Stats     `json:"stats,omitempty"`
	Missing  bool            `json:"missing,omitempty"`
	Error    string          `json:"error,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		host := strings.TrimSpace(r.Host)
		return strings.Contains(origin, "://"+host)
	},
}

const defaultWSHeight = 50

// handleWS runs one tree view per connection. A reader goroutine decodes
// frames; the loop below is the only goroutine touching the session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("projectId")
	sess, err := s.svc.Open(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	changes, unsubscribe := s.bc.hubFor(projectKey(id)).subscribe()
	defer unsubscribe()

	frames := make(chan clientFrame)
	go func() {
		defer cancel()
		readFrames(ctx, conn, frames)
	}()

	v := &wsView{
		conn: conn,
		sess: sess,
		vp:   tree.Viewport{Height: defaultWSHeight, Overscan: s.cfg.Overscan},
		log:  s.log.WithField("project", id),
	}
	if err := v.sendRows(); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			err := sess.Refresh(ctx)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				if v.sendError(err) != nil {
					return
				}
				continue
			}
			if v.sendRows() != nil {
				return
			}
		case f := <-frames:
			if err := v.apply(ctx, f, s.cfg.SmartExpandThreshold); err != nil {
				return
			}
		}
	}
}

func readFrames(ctx context.Context, conn *websocket.Conn, out chan<- clientFrame) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var f clientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			f = clientFrame{Type: "invalid", Filter: err.Error()}
		}
		select {
		case out <- f:
		case <-ctx.Done():
			return
		}
	}
}

type wsView struct {
	conn *websocket.Conn
	sess *project.Session
	vp   tree.Viewport
	log  logrus.FieldLogger
}

// apply handles one client frame. The returned error is a write failure on
// the socket; problems with the frame itself are reported as error frames.
func (v *wsView) apply(ctx context.Context, f clientFrame, defaultThreshold int) error {
	switch strings.TrimSpace(f.Type) {
	case "toggle":
		v.sess.Toggle(f.ID)
	case "filter":
		v.sess.SetFilter(f.Filter)
		v.vp.Offset = 0
	case "smartExpand":
		threshold := f.Threshold
		if threshold <= 0 {
			threshold = defaultThreshold
		}
		v.sess.SmartExpand(threshold)
	case "collapseAll":
		v.sess.CollapseAll()
		v.vp.Offset = 0
	case "scroll":
		v.vp.Offset = f.Offset
		if f.Height > 0 {
			v.vp.Height = f.Height
		}
	case "dragEnd":
		ch, changed, err := v.sess.Reorder(f.Kind, f.ActiveID, f.OverID)
		if err != nil {
			return v.sendError(err)
		}
		if !changed {
			return v.sendRows()
		}
		// Show the new order before the write completes.
		if err := v.sendRows(); err != nil {
			return err
		}
		if err := v.sess.Commit(ctx, ch); err != nil {
			v.log.WithError(err).Warn("reorder not saved")
			return v.sendError(err)
		}
		return nil
	case "invalid":
		return v.sendError(errors.New("invalid frame: " + f.Filter))
	default:
		return v.sendError(errors.New("unknown frame type: " + f.Type))
	}
	return v.sendRows()
}

func (v *wsView) sendRows() error {
	rows := v.sess.Rows()
	v.vp = v.vp.Clamp(len(rows))
	start, end := v.vp.Window(len(rows))
	stats := v.sess.Stats()
	return v.write(serverFrame{
		Type:     "rows",
		Rows:     rows[start:end],
		Start:    start,
		Total:    len(rows),
		Viewport: v.vp,
		Expanded: v.sess.Expansion().IDs(),
		Stats:    &stats,
		Missing:  v.sess.Project() == nil,
	})
}

func (v *wsView) sendError(err error) error {
	return v.write(serverFrame{Type: "error", Error: err.Error(), Viewport: v.vp})
}

func (v *wsView) write(f serverFrame) error {
	_ = v.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return v.conn.WriteJSON(f)
}
