// Package database provides the SQLite-backed persistence layer.
//
// Each record set has its own repository package (users, sessions, tokens)
// that owns every query touching its table. The top-level package only opens
// the connection and runs migrations.
package database
