// Package source talks to the content site: it keeps an authenticated
// session, lists recently published titles page by page, and resolves a
// title's detail page into a playable stream.
//
// Every request goes through the shared retry policy. Transient failures
// (network errors, timeouts, 5xx, 429) are retried; other HTTP errors are
// treated as permanent. The detail resolver reacts to a missing stream by
// logging in again and retrying exactly once, since the site hides media
// from expired sessions instead of returning an auth error.
package source
