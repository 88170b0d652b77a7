// Package domain defines the core business entities for ragstore.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A positioned segment of source text with metadata
//   - StatsSnapshot: Live counts of chunks and vectors
//   - Answer: A composed answer with its cited sources
//   - Document: Extracted text from an ingested file
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
