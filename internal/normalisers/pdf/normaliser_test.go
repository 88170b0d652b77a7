package pdf

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error

	name string
	args []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func rawPDF() *domain.RawDocument {
	return &domain.RawDocument{
		URI:      "/path/to/annual-report.pdf",
		MIMEType: "application/pdf",
		Content:  []byte("%PDF-1.4 fake pdf content"),
	}
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"application/pdf"}, New().SupportedMIMETypes())
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_WithMockRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("Annual Report 2023\n\nRevenue grew.\n\fBalance sheet.\n\f")}

	result, err := NewWithRunner(runner).Normalise(context.Background(), rawPDF())
	require.NoError(t, err)

	doc := result.Document
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "/path/to/annual-report.pdf", doc.URI)
	assert.Equal(t, "Annual Report 2023", doc.Title)
	assert.Equal(t, []string{"Annual Report 2023\n\nRevenue grew.", "Balance sheet."}, doc.Pages)
	assert.Equal(t, "Annual Report 2023\n\nRevenue grew.\n\nBalance sheet.", doc.Content)
	assert.Equal(t, "application/pdf", doc.Metadata["mime_type"])
	assert.Equal(t, "pdf", doc.Metadata["format"])
	assert.Equal(t, 2, doc.Metadata["pages"])

	assert.Equal(t, "pdftotext", runner.name)
	require.Len(t, runner.args, 5)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8"}, runner.args[:3])
	assert.True(t, strings.HasSuffix(runner.args[3], ".pdf"))
	assert.Equal(t, "-", runner.args[4])
}

func TestNormalise_RunnerError(t *testing.T) {
	runner := &mockRunner{err: errors.New("exit status 1: Syntax Error")}

	result, err := NewWithRunner(runner).Normalise(context.Background(), rawPDF())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
	assert.Nil(t, result)
}

func TestNormalise_ToolMissing(t *testing.T) {
	runner := &mockRunner{err: ErrPDFToolNotFound}

	_, err := NewWithRunner(runner).Normalise(context.Background(), rawPDF())
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
	assert.NotContains(t, err.Error(), "pdftotext failed")
}

func TestNormalise_EmptyOutput(t *testing.T) {
	runner := &mockRunner{output: []byte("\f")}

	result, err := NewWithRunner(runner).Normalise(context.Background(), rawPDF())
	require.NoError(t, err)
	assert.Empty(t, result.Document.Content)
	assert.Empty(t, result.Document.Pages)
	assert.Equal(t, "annual report", result.Document.Title)
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single page", "only page\n\f", []string{"only page"}},
		{"no trailing feed", "one\ftwo", []string{"one", "two"}},
		{"blank page keeps position", "one\f\fthree\f", []string{"one", "", "three"}},
		{"whitespace only", "  \n\f", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, splitPages(tc.in))
		})
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		uri      string
		expected string
	}{
		{"first line", "Document Title\n\nSome content here.", "/doc.pdf", "Document Title"},
		{"skip empty lines", "\n\n\nActual Title\nContent", "/doc.pdf", "Actual Title"},
		{"fallback to filename", "", "/path/to/my_document.pdf", "my document"},
		{"skip very long first line", strings.Repeat("x", 250) + "\nShort Title\nContent", "/doc.pdf", "Short Title"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractTitle(tc.content, tc.uri))
		})
	}
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

func TestNormalise_Integration(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not available")
	}

	// Not a real PDF, so pdftotext itself must report the failure.
	_, err := New().Normalise(context.Background(), rawPDF())
	assert.Error(t, err)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
