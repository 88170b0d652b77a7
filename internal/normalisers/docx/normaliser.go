package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Normaliser handles Word (DOCX) documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts paragraph text from the document body, including
// paragraphs inside tables. Each paragraph becomes one line.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	body, err := readPart(archive, documentPart)
	if err != nil {
		return nil, err
	}
	content, err := paragraphs(body)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	title := normalisers.MetadataTitle(raw)
	if title == "" {
		title = coreTitle(archive)
	}
	if title == "" {
		title = normalisers.TitleFromURI(raw.URI)
	}
	return normalisers.Result(raw, "docx", title, content), nil
}

// readPart returns the bytes of a named archive member, or nil if absent.
func readPart(archive *zip.Reader, name string) ([]byte, error) {
	for _, f := range archive.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		return data, nil
	}
	return nil, nil
}

// paragraphs streams WordprocessingML and collects the text of each <w:p>.
// <w:tab/> becomes a tab and <w:br/> a newline.
func paragraphs(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out    []string
		cur    strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(cur.String()); line != "" {
					out = append(out, line)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return strings.Join(out, "\n"), nil
}

// coreProperties is the subset of docProps/core.xml we read.
type coreProperties struct {
	Title string `xml:"title"`
}

func coreTitle(archive *zip.Reader) string {
	data, err := readPart(archive, corePart)
	if err != nil || len(data) == 0 {
		return ""
	}
	var props coreProperties
	if err := xml.Unmarshal(data, &props); err != nil {
		return ""
	}
	return strings.TrimSpace(props.Title)
}
