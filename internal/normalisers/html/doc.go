// Package html extracts readable text from HTML pages.
//
// Pages are parsed with golang.org/x/net/html, so malformed markup is
// repaired the way a browser would repair it before text is collected.
package html
