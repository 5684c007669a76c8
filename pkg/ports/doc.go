/*
Package ports defines the driven ports (interfaces) for the chaptree engine.

These interfaces decouple the core logic from external implementations, allowing
documents to live in memory, on disk or in Redis, and sessions to be coordinated
across replicas.

# Key Interfaces

  - DocumentStore: Responsible for persisting and loading outline Documents.
  - DistributedLocker: Provides distributed locking for concurrent access to a document.
*/
package ports
