// Package storage persists events in a relational store.
//
// Events live in two tables, venues and events, created from the embedded
// schema.sql by Migrate. Local files and in-memory databases use the
// modernc.org/sqlite driver; libsql:// and https:// URLs go to a Turso
// database through libsql-client-go. An event's identity is its venue, date
// and title, so scraping the same listing twice updates rows in place.
package storage
