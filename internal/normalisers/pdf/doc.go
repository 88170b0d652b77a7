// Package pdf extracts text from PDF files using poppler's pdftotext.
//
// pdftotext separates pages with form feeds, so the resulting document is
// paginated and every chunk cut from it records the page it came from.
package pdf
