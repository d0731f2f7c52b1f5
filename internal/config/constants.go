package config

const (
	// DefaultDatabasePath is the default SQLite database location.
	DefaultDatabasePath = "./daybook.db"
)
