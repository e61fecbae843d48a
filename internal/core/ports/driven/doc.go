// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Fetcher: Downloads remote documents with SSRF protection
//   - BlobStore: On-disk storage for fetched documents
//   - CacheIndex: Persistent index of extracted artifacts
//   - Engine: The document parsing engine
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
