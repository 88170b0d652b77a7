// Package stats provides the store statistics view for the TUI.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// ErrNoStore indicates that no retrieval store was provided.
var ErrNoStore = errors.New("retrieval store not available")

// View shows store health, collection counts and query history totals.
type View struct {
	styles *styles.Styles
	store  driving.RetrievalStore
	ask    driving.AskService
	ctx    context.Context

	health  *domain.Health
	summary *domain.QuerySummary
	err     error
	loading bool
	width   int
	height  int
	ready   bool
}

// NewView creates a stats view. ask may be nil, in which case query
// history totals are omitted.
func NewView(s *styles.Styles, store driving.RetrievalStore, ask driving.AskService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		store:  store,
		ask:    ask,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts loading the statistics.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.load()
}

func (v *View) load() tea.Cmd {
	ctx, store, ask := v.ctx, v.store, v.ask
	return func() tea.Msg {
		if store == nil {
			return messages.StatsLoaded{Err: ErrNoStore}
		}
		msg := messages.StatsLoaded{Health: store.Health(ctx)}
		if ask != nil {
			msg.Summary, msg.Err = ask.Summary(ctx)
		}
		return msg
	}
}

// Update handles messages for the stats view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			v.loading = true
			return v, v.load()
		case "esc":
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
		return v, nil

	case messages.StatsLoaded:
		v.loading = false
		v.err = msg.Err
		if !errors.Is(msg.Err, ErrNoStore) {
			h := msg.Health
			v.health = &h
		}
		if msg.Err == nil && v.ask != nil {
			s := msg.Summary
			v.summary = &s
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// View renders the stats view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Store Statistics"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 10), 60)))
	b.WriteString("\n\n")

	if v.loading {
		b.WriteString(v.styles.Muted.Render("Loading..."))
		b.WriteString("\n\n")
		b.WriteString(v.renderHelp())
		return b.String()
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	if v.health != nil {
		h := v.health
		s := h.Stats
		b.WriteString(v.field("Status", v.statusStyle(h.Status).Render(h.Describe())))
		b.WriteString(v.field("Documents", fmt.Sprintf("%d", s.DocumentsCount)))
		b.WriteString(v.field("Chunks", fmt.Sprintf("%d", s.ChunksCount)))
		b.WriteString(v.field("Vectors", fmt.Sprintf("%d", s.TotalVectors)))
		b.WriteString(v.field("In sync", yesNo(s.IsSynced)))
		dim := "not fixed"
		if s.Dimension > 0 {
			dim = fmt.Sprintf("%d", s.Dimension)
		}
		b.WriteString(v.field("Dimension", dim))
		b.WriteString(v.field("Metric", s.Metric.String()))
		b.WriteString(v.field("Generation", fmt.Sprintf("%d", s.Generation)))

		b.WriteString("\n")
		b.WriteString(v.styles.Subtitle.Render("Embedding provider"))
		b.WriteString("\n")
		p := h.Provider
		b.WriteString(v.field("Provider", p.Name))
		b.WriteString(v.field("Model", p.Model))
		configured := yesNo(p.Configured)
		if p.Message != "" {
			configured += " (" + p.Message + ")"
		}
		b.WriteString(v.field("Configured", configured))
	}

	if v.summary != nil {
		b.WriteString("\n")
		b.WriteString(v.styles.Subtitle.Render("Questions"))
		b.WriteString("\n")
		b.WriteString(v.field("Asked", fmt.Sprintf("%d", v.summary.Total)))
		b.WriteString(v.field("Answered", fmt.Sprintf("%d", v.summary.Succeeded)))
		b.WriteString(v.field("Failed", fmt.Sprintf("%d", v.summary.Failed)))
		b.WriteString(v.field("Avg latency", v.summary.AverageLatency.Round(time.Millisecond).String()))
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		v.styles.Muted.Render(fmt.Sprintf("%-13s", label+":")),
		v.styles.Normal.Render(value)) + "\n"
}

func (v *View) statusStyle(status domain.HealthStatus) lipgloss.Style {
	switch status {
	case domain.HealthHealthy:
		return v.styles.Success
	case domain.HealthWarning:
		return v.styles.Warning
	case domain.HealthFaulted:
		return v.styles.Error
	default:
		return v.styles.Muted
	}
}

func (v *View) renderHelp() string {
	return v.styles.Help.Render("[r] refresh  [esc] back")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Health returns the last loaded health, or nil.
func (v *View) Health() *domain.Health {
	return v.health
}

// Summary returns the last loaded query summary, or nil.
func (v *View) Summary() *domain.QuerySummary {
	return v.summary
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
