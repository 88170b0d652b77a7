// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// QuestionSubmitted is a command to answer a question.
type QuestionSubmitted struct {
	Question string
	Options  domain.QueryOptions
}

// AnswerReceived carries an answer back to the model.
// Answer may be set together with Err when sources were found but no
// answer could be composed.
type AnswerReceived struct {
	Answer *domain.Answer
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the question input and answer view.
	ViewAsk
	// ViewDocuments lists the documents in the store.
	ViewDocuments
	// ViewStats shows store statistics and health.
	ViewStats
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewDocuments:
		return "documents"
	case ViewStats:
		return "stats"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// DocumentsLoaded carries the document list.
type DocumentsLoaded struct {
	Documents []domain.DocumentSummary
	Err       error
}

// DocumentDeleted is sent after a document has been removed.
type DocumentDeleted struct {
	DocumentID string
	Result     *domain.DeleteResult
	Err        error
}

// StatsLoaded carries store health and query history totals.
type StatsLoaded struct {
	Health  domain.Health
	Summary domain.QuerySummary
	Err     error
}

// ErrorOccurred is sent when an error needs to be displayed.
type ErrorOccurred struct {
	Err error
}

// Quit is sent to exit the application.
type Quit struct{}
