package config

const (
	// DefaultDatabasePath is where sync logs and run progress are stored
	DefaultDatabasePath = "./batchsync.db"

	// DefaultBatchSize is the page size requested from the source system
	DefaultBatchSize = 50
)
