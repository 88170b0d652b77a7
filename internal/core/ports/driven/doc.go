// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Converts text into vectors
//   - VectorIndex: Stores vectors and answers similarity searches
//   - ChunkStore: Ordered chunk records parallel to the VectorIndex
//   - PostProcessorPipeline: Splits document content into chunks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - IndexArtifact, ChunkArtifact: Durable storage. Without them the store is memory-only.
//   - AnswerComposer: Produces answers from sources. Without it only sources are returned.
//   - QueryLog: Query history. Without it nothing is recorded.
//   - NormaliserRegistry: Text extraction from files. Without it only pasted text is accepted.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
