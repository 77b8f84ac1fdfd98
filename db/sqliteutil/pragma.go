// Package sqliteutil holds small helpers for opening SQLite databases.
package sqliteutil

import (
	"fmt"
	"strings"
)

// EnsurePragmas appends journal-mode and busy-timeout pragmas to a SQLite
// DSN when they are not present already. In-memory databases are returned
// unchanged.
func EnsurePragmas(dsn string, wal bool, busyTimeoutMS int) string {
	if dsn == "" || isMemory(dsn) {
		return dsn
	}
	lower := strings.ToLower(dsn)
	if wal && !strings.Contains(lower, "_pragma=journal_mode") {
		dsn = appendPragma(dsn, "journal_mode(WAL)")
	}
	if busyTimeoutMS > 0 && !strings.Contains(lower, "_pragma=busy_timeout") {
		dsn = appendPragma(dsn, fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	}
	return dsn
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(strings.ToLower(dsn), "file::memory:")
}

func appendPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}
