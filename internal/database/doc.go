// Package database opens the SQLite store that backs the sync engine's own
// bookkeeping. The source and destination systems are never stored here.
//
//	database/
//	├── database.go  # Connection setup and migrations
//	├── audit/       # Append-only sync log entries
//	└── sync/        # Progress of the latest run per mapping
//
// Callers open the connection once and build repositories on top of it:
//
//	db, err := database.NewDatabase("./batchsync.db")
//	logs := audit.NewRepository(db.DB)
//	runs := sync.NewRepository(db.DB)
package database
