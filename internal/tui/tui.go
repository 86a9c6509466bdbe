// Package tui is the interactive terminal view: a project picker and a
// windowed, collapsible project tree with keyboard reordering.
package tui

import (
	"context"
	"io"

	"github.com/ac7x/lin-llc-sub001/internal/config"
	"github.com/ac7x/lin-llc-sub001/internal/project"
	"github.com/ac7x/lin-llc-sub001/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// ViewStateStore persists the picker selection and filter between runs.
type ViewStateStore interface {
	LoadViewState() (*store.ViewState, error)
	SaveViewState(*store.ViewState) error
}

type Config struct {
	Service   *project.Service
	ViewState ViewStateStore
	Log       logrus.FieldLogger

	// ProjectID opens that project directly instead of the picker.
	ProjectID string

	SmartExpandThreshold int
	Overscan             int
}

func (c *Config) normalize() {
	if c.Log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		c.Log = quiet
	}
	if c.SmartExpandThreshold <= 0 {
		c.SmartExpandThreshold = config.DefaultSmartExpandThreshold
	}
	if c.Overscan < 0 {
		c.Overscan = 0
	}
}

func Run(ctx context.Context, cfg Config) error {
	applyThemePreference()
	applyColorProfilePreference()

	m := newAppModel(ctx, cfg)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
