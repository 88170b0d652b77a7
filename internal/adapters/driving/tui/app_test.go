package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

func newTestPorts() *Ports {
	return &Ports{
		Store: &MockStore{
			docs: []domain.DocumentSummary{{ID: "doc-1", Title: "First", Chunks: 2}},
			health: domain.Health{
				Status: domain.HealthHealthy,
				Stats:  domain.StatsSnapshot{ChunksCount: 2, TotalVectors: 2, IsSynced: true, DocumentsCount: 1},
			},
		},
		Ask:      &MockAskService{},
		Defaults: domain.QueryOptions{TopK: 4, Threshold: 0.2},
	}
}

func newReadyApp(t *testing.T, ports *Ports) *App {
	t.Helper()
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	return app
}

// navigate switches views and runs the view's init command.
func navigate(app *App, view messages.ViewType) {
	_, cmd := app.Update(messages.ViewChanged{View: view})
	if cmd == nil {
		return
	}
	if msg := cmd(); msg != nil {
		if _, isBatch := msg.(tea.BatchMsg); !isBatch {
			app.Update(msg)
		}
	}
}

func typeText(app *App, s string) {
	for _, r := range s {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(newTestPorts())

	require.NoError(t, err)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
	assert.NotNil(t, app.Init())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Ask: &MockAskService{}})

	assert.ErrorIs(t, err, ErrMissingStore)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, _ := NewApp(newTestPorts())
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_WindowSize(t *testing.T) {
	app, _ := NewApp(newTestPorts())

	_, cmd := app.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "ragstore")
}

func TestApp_CtrlCQuits(t *testing.T) {
	app := newReadyApp(t, newTestPorts())

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app := newReadyApp(t, newTestPorts())

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_AskFlow(t *testing.T) {
	var gotOpts domain.QueryOptions
	ports := newTestPorts()
	ports.Ask = &MockAskService{AskFunc: func(_ context.Context, q string, opts domain.QueryOptions) (*domain.Answer, error) {
		gotOpts = opts
		return &domain.Answer{
			Query:   q,
			Text:    "Overlap is 10 runes.",
			Sources: []domain.Source{{DocumentID: "doc-1", Text: "overlap: 10", Similarity: 0.9}},
		}, nil
	}}
	app := newReadyApp(t, ports)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	require.NotNil(t, cmd)
	app.Update(cmd())
	require.Equal(t, messages.ViewAsk, app.CurrentView())

	typeText(app, "what is the overlap?")
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, domain.QueryOptions{TopK: 4, Threshold: 0.2}, gotOpts)
	out := app.View()
	assert.Contains(t, out, "Overlap is 10 runes.")
	assert.Contains(t, out, "doc-1")
	assert.NoError(t, app.Err())
}

func TestApp_AskError(t *testing.T) {
	ports := newTestPorts()
	ports.Ask = &MockAskService{AskFunc: func(context.Context, string, domain.QueryOptions) (*domain.Answer, error) {
		return nil, domain.ErrConfiguration
	}}
	app := newReadyApp(t, ports)
	navigate(app, messages.ViewAsk)

	typeText(app, "anything")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app.Update(cmd())

	assert.ErrorIs(t, app.Err(), domain.ErrConfiguration)
}

func TestApp_DocumentsView(t *testing.T) {
	app := newReadyApp(t, newTestPorts())

	navigate(app, messages.ViewDocuments)

	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.Contains(t, app.View(), "First")
}

func TestApp_StatsView(t *testing.T) {
	app := newReadyApp(t, newTestPorts())

	navigate(app, messages.ViewStats)

	out := app.View()
	assert.Contains(t, out, "Store Statistics")
	assert.Contains(t, out, "healthy")
}

func TestApp_HelpView(t *testing.T) {
	app := newReadyApp(t, newTestPorts())
	navigate(app, messages.ViewHelp)

	assert.Contains(t, app.View(), "new question")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_EscFromViewReturnsToMenu(t *testing.T) {
	app := newReadyApp(t, newTestPorts())
	navigate(app, messages.ViewStats)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newReadyApp(t, newTestPorts())
	navigate(app, messages.ViewDocuments)

	app.Update(messages.ErrorOccurred{Err: errors.New("disk full")})

	assert.EqualError(t, app.Err(), "disk full")
	assert.Contains(t, app.View(), "disk full")
}
