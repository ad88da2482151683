// Package watchlist implements the per-user watch-list: CRUD over tracked
// applications, the background drift notifier, the reaction-driven
// pagination session, and the search-and-confirm flow. It depends only on
// domain interfaces; the sheets and Discord adapters are injected.
package watchlist
