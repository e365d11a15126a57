// Package all registers every history backend. Blank-import it from a main
// package to make all kinds selectable by configuration.
package all

import (
	_ "rosterwatch/internal/history/mssql"
	_ "rosterwatch/internal/history/postgres"
	_ "rosterwatch/internal/history/sqlite"
)
