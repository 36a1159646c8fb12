package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a database file path or a SQLite URI, e.g.:
	//   "tests/testdb"
	//   "file:cpu.db?mode=ro"
	DSN string

	// MaxConns caps open connections; each pool worker gets its own.
	MaxConns int

	// ReadOnly turns a plain file path into a mode=ro URI so a missing file
	// fails to open instead of being created empty.
	ReadOnly bool
}
