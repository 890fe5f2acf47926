// Package database provides the SQLite persistence layer for Cabinet Core.
//
// It wraps database/sql with the mattn/go-sqlite3 driver, configures WAL
// journaling and busy timeouts for embedded single-writer use, and runs
// versioned schema migrations embedded in the binary. Calibration factors
// and cart event audit rows live here so a power cycle does not lose them.
package database
