// Package documents provides the documents list view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragstore/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driving"
)

// ErrNoStore indicates that no retrieval store was provided.
var ErrNoStore = errors.New("retrieval store not available")

// View is the documents list view.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	store  driving.RetrievalStore
	ctx    context.Context

	documents    []domain.DocumentSummary
	selected     int
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
	loading      bool
	confirming   bool
	notice       string
}

// NewView creates a new documents view.
func NewView(s *styles.Styles, km *keymap.KeyMap, store driving.RetrievalStore) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keymap: km,
		store:  store,
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

// Init starts loading the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	v.confirming = false
	v.notice = ""
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	ctx, store := v.ctx, v.store
	return func() tea.Msg {
		if store == nil {
			return messages.DocumentsLoaded{Err: ErrNoStore}
		}
		return messages.DocumentsLoaded{Documents: store.Documents(ctx)}
	}
}

func (v *View) deleteDocument(id string) tea.Cmd {
	ctx, store := v.ctx, v.store
	return func() tea.Msg {
		if store == nil {
			return messages.DocumentDeleted{DocumentID: id, Err: ErrNoStore}
		}
		res, err := store.DeleteDocument(ctx, id)
		return messages.DocumentDeleted{DocumentID: id, Result: res, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.confirming {
			return v.handleConfirmKey(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.documents = msg.Documents
			if v.selected >= len(v.documents) {
				v.selected = max(len(v.documents)-1, 0)
			}
			v.adjustScroll()
		}
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		if msg.Result != nil {
			v.notice = fmt.Sprintf("Deleted %s (%d chunks removed)", msg.DocumentID, msg.Result.ChunksRemoved)
		}
		v.loading = true
		return v, v.loadDocuments()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Delete):
		if len(v.documents) > 0 {
			v.confirming = true
		}
	case keymap.Matches(key, v.keymap.Refresh):
		v.loading = true
		v.notice = ""
		return v, v.loadDocuments()
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

func (v *View) handleConfirmKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	v.confirming = false
	switch msg.String() {
	case "y", "Y":
		doc := v.SelectedDocument()
		if doc == nil {
			return v, nil
		}
		return v, v.deleteDocument(doc.ID)
	default:
		return v, nil
	}
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// Title, separator, notice and help.
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents. Ingest some with 'ragstore ingest'."))
	default:
		b.WriteString(v.renderList())
	}
	b.WriteString("\n\n")

	if v.confirming {
		if doc := v.SelectedDocument(); doc != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Delete %s and its %d chunks? [y/N]", doc.ID, doc.Chunks)))
			b.WriteString("\n\n")
		}
	} else if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n\n")
	}

	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [d] delete  [r] refresh  [esc] back"))
	return b.String()
}

func (v *View) renderList() string {
	lines := make([]string, 0, v.visibleItemCount()+1)
	visible := v.visibleItemCount()
	width := max(v.width-16, 10)

	for i := v.scrollOffset; i < len(v.documents) && i < v.scrollOffset+visible; i++ {
		doc := v.documents[i]
		name := doc.Title
		if name == "" {
			name = doc.ID
		}
		line := fmt.Sprintf("%-*s %5d chunks", width, list.Truncate(name, width), doc.Chunks)
		if i == v.selected {
			lines = append(lines, v.styles.Selected.Render("> "+line))
		} else {
			lines = append(lines, v.styles.Normal.Render("  "+line))
		}
	}

	if len(v.documents) > visible {
		lines = append(lines, "", v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1, min(v.scrollOffset+visible, len(v.documents)), len(v.documents))))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.DocumentSummary {
	return v.documents
}

// SelectedIndex returns the selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the selected document, or nil.
func (v *View) SelectedDocument() *domain.DocumentSummary {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// IsConfirming reports whether a delete confirmation is pending.
func (v *View) IsConfirming() bool {
	return v.confirming
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
