// Command reelsync crawls a streaming catalog into a local SQLite database,
// links titles to TMDB/IMDb, and runs as a scheduled daemon.
//
// The daemon subcommand runs in the foreground; every other subcommand works
// directly against the catalog database named by the configuration file.
package main
