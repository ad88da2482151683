// Package domain defines the core domain types and interfaces.
//
// This package contains shared model types, cross-cutting interfaces, and
// sentinel errors. No implementation code - just contracts. Interfaces live
// here on the consumer side to prevent circular imports between the
// watch-list logic, the sheets adapter, and the Discord adapter.
package domain
