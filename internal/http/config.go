package http

import (
	"github.com/mrlokans/batchsync/internal/database"
	"github.com/mrlokans/batchsync/internal/mapping"
)

// RouterConfig contains all dependencies needed to create the HTTP router.
type RouterConfig struct {
	Database *database.Database
	Mappings *mapping.Registry
	Runner   SyncRunner
	Logs     LogReader
	Runs     RunReader

	// Task queue (optional). Without it async triggers are rejected.
	TaskQueue TaskQueue

	// SharedSecret authorizes every /api request via the X-Sync-Secret header.
	SharedSecret string

	Version string
}
