// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (post.go, vote.go, stats.go, rate_limit.go, ...) hold shared
// types and the store contracts consumed by the app layer. No implementation code - just contracts.
package domain
