// Package store provides contentrender.Store implementations: an in-process
// map, SQLite through modernc.org/sqlite, and Redis through go-redis.
//
// Every backend keeps absent projection fields absent: a document written
// without HTML reads back without HTML, so the backfiller can tell a stale
// record from a rendered one.
package store
