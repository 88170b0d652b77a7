// Package normalisers extracts plain text from ingested files.
//
// Each subpackage handles one family of MIME types. The Registry picks the
// highest priority normaliser for a file and the helpers here give every
// normaliser the same document shape: a fresh ID, the caller's metadata,
// and "title", "mime_type" and "format" keys.
package normalisers
