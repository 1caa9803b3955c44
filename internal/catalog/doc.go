// Package catalog persists discovered titles and their streams in SQLite.
//
// A title is keyed by (title, year) where an unknown year is its own key
// value, and each title owns any number of streams keyed by URL. Writes merge
// rather than overwrite: a metadata column is replaced only when the incoming
// value is present, so an unlinked rediscovery never erases an IMDb link.
// All writes are serialized inside the store and retried on SQLITE_BUSY.
package catalog
