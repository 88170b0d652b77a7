// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// View is the ask view: a question input, the composed answer, the cited
// sources and a status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	list      *list.SourceList
	statusbar *status.Bar

	askService driving.AskService
	opts       domain.QueryOptions
	ctx        context.Context

	answer   *domain.Answer
	err      error
	expanded bool // show the full text of the selected source

	width      int
	height     int
	ready      bool
	focusInput bool
}

// NewView creates a new ask view. opts are passed to every question.
func NewView(s *styles.Styles, km *keymap.KeyMap, askService driving.AskService, opts domain.QueryOptions) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		list:       list.NewSourceList(s),
		statusbar:  status.NewBar(s, km),
		askService: askService,
		opts:       opts,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		if v.expanded {
			v.expanded = false
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			question := v.input.Question()
			if question == "" {
				return v, nil
			}
			v.focusInput = false
			v.input.Blur()
			v.err = nil
			v.answer = nil
			v.expanded = false
			v.list.SetSources(nil)
			v.statusbar.Clear()
			v.statusbar.SetState(status.StateAsking)
			return v, v.performAsk(question)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.NewQuestion):
		v.Reset()
		return v, v.input.Focus()
	case keymap.Matches(msg.String(), v.keymap.Select):
		if v.list.SelectedSource() != nil {
			v.expanded = !v.expanded
		}
	default:
		v.list, _ = v.list.Update(msg)
	}

	return v, nil
}

// performAsk returns a command that asks the question.
func (v *View) performAsk(question string) tea.Cmd {
	ctx, svc, opts := v.ctx, v.askService, v.opts
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoAskService}
		}
		answer, err := svc.Ask(ctx, question, opts)
		return messages.AnswerReceived{Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.answer = msg.Answer
	v.err = msg.Err
	v.focusInput = false
	v.input.Blur()

	if msg.Answer == nil {
		if msg.Err != nil {
			v.setError(msg.Err)
		}
		return
	}

	v.list.SetSources(msg.Answer.Sources)
	v.statusbar.SetState(status.StateAnswered)
	v.statusbar.SetMessage("")
	v.statusbar.SetSources(len(msg.Answer.Sources), msg.Answer.Relaxed)
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	if err != nil {
		v.statusbar.SetMessage(err.Error())
	}
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("ragstore"), "", v.input.View(), "")

	switch {
	case v.answer != nil && errors.Is(v.err, domain.ErrAnswerUnavailable):
		sections = append(sections,
			v.styles.Warning.Render("No answer could be composed. Showing the retrieved sources."), "")
	case v.answer == nil && v.err != nil:
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	case v.answer != nil && v.answer.Text != "":
		sections = append(sections, v.styles.Answer.Width(v.answerWidth()).Render(v.answer.Text), "")
	}

	if v.answer != nil {
		if len(v.answer.Sources) == 0 {
			sections = append(sections, v.styles.Muted.Render("No relevant sources found."))
		} else if v.expanded {
			sections = append(sections, v.renderExpanded())
		} else {
			sections = append(sections, v.list.View())
		}
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderExpanded() string {
	src := v.list.SelectedSource()
	if src == nil {
		return ""
	}
	header := v.styles.Subtitle.Render(list.Label(src.DocumentID, src.Metadata))
	body := v.styles.Normal.Width(v.answerWidth()).Render(src.Text)
	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", v.styles.Help.Render("[esc] back to sources"))
}

func (v *View) answerWidth() int {
	if v.width < 24 {
		return 20
	}
	return v.width - 4
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height/2)
	v.statusbar.SetWidth(width)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the current input value.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the input value.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Answer returns the last answer, or nil.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Sources returns the sources of the last answer.
func (v *View) Sources() []domain.Source {
	return v.list.Sources()
}

// SelectedIndex returns the index of the selected source.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Expanded reports whether the selected source is shown in full.
func (v *View) Expanded() bool {
	return v.expanded
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset returns the view to an empty, focused input.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetSources(nil)
	v.answer = nil
	v.err = nil
	v.expanded = false
	v.statusbar.Clear()
}
