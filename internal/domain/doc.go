// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (analysis.go, pillars.go, cache.go, ratelimit.go,
// network.go, errors.go) hold shared types and cross-cutting interfaces.
// No implementation code, just contracts. Interfaces live on the consumer
// side to prevent circular imports.
package domain
