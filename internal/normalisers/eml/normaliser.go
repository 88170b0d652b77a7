package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/custodia-labs/ragstore/internal/core/domain"
	"github.com/custodia-labs/ragstore/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore/internal/normalisers"
	"github.com/custodia-labs/ragstore/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxDepth bounds nested multipart recursion.
const maxDepth = 8

// Normaliser handles saved email messages (.eml).
type Normaliser struct{}

// New creates a new email normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise renders the key headers followed by the message body.
// A text/plain part is preferred over text/html; attachments are skipped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	headers := []struct{ key, value string }{
		{"From", decodeHeader(msg.Header.Get("From"))},
		{"To", decodeHeader(msg.Header.Get("To"))},
		{"Date", msg.Header.Get("Date")},
		{"Subject", decodeHeader(msg.Header.Get("Subject"))},
	}

	body, err := readBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	var content strings.Builder
	for _, h := range headers {
		if h.value != "" {
			fmt.Fprintf(&content, "%s: %s\n", h.key, h.value)
		}
	}
	content.WriteString("\n")
	content.WriteString(body)

	subject := headers[3].value
	title := normalisers.MetadataTitle(raw)
	if title == "" {
		title = subject
	}
	if title == "" {
		title = normalisers.TitleFromURI(raw.URI)
	}

	result := normalisers.Result(raw, "eml", title, strings.TrimSpace(content.String()))
	for _, h := range headers[:3] {
		if h.value != "" {
			result.Document.Metadata[strings.ToLower(h.key)] = h.value
		}
	}
	return result, nil
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// decodeHeader decodes RFC 2047 encoded words, returning the input on failure.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// charsetReader converts any WHATWG-registered charset to UTF-8.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

// readBody extracts text from a single entity.
func readBody(contentType, transferEncoding string, r io.Reader, depth int) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if depth >= maxDepth {
			return "", nil
		}
		return readMultipart(r, params["boundary"], depth+1)
	}
	if mediaType != "text/plain" && mediaType != "text/html" {
		return "", nil
	}

	text, err := decodeText(r, transferEncoding, params["charset"])
	if err != nil {
		return "", err
	}
	if mediaType == "text/html" {
		return html.Text(strings.NewReader(text))
	}
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}

// readMultipart collects the plain text parts, falling back to HTML parts.
func readMultipart(r io.Reader, boundary string, depth int) (string, error) {
	if boundary == "" {
		return "", nil
	}

	var plain, rich []string
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF, or a truncated message: keep what was read.
			break
		}
		if disposition, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition")); disposition == "attachment" {
			continue
		}

		contentType := part.Header.Get("Content-Type")
		text, err := readBody(contentType, part.Header.Get("Content-Transfer-Encoding"), part, depth)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		if mt, _, _ := mime.ParseMediaType(contentType); mt == "text/html" {
			rich = append(rich, text)
		} else {
			plain = append(plain, text)
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n"), nil
	}
	return strings.Join(rich, "\n"), nil
}

// decodeText undoes the transfer encoding and converts the charset to UTF-8.
// multipart.Reader already removes quoted-printable from parts.
func decodeText(r io.Reader, transferEncoding, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "us-ascii") {
		converted, err := charsetReader(charset, r)
		if err != nil {
			return "", err
		}
		r = converted
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// newlineStripper drops line breaks so base64 bodies wrapped at 76 columns decode.
type newlineStripper struct{ r io.Reader }

func (s newlineStripper) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	out := p[:0]
	for _, b := range p[:n] {
		if b != '\r' && b != '\n' {
			out = append(out, b)
		}
	}
	return len(out), err
}
