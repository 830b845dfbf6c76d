package sender

import (
	"fmt"
	"time"

	"github.com/mrlokans/batchsync/internal/config"
)

// IdempotencyHeader carries the key the destination deduplicates writes on.
const IdempotencyHeader = "x-idempotency-key"

// IdempotencyKey builds the key for one resource write.
//
// The timestamped strategy appends the current time in milliseconds, so the
// key changes on every run and the destination can only deduplicate retries
// within one run. The stable strategy keys on resource and mapping alone.
func IdempotencyKey(strategy config.IdempotencyStrategy, resourceID, mappingName string, now time.Time) string {
	if strategy == config.IdempotencyStable {
		return fmt.Sprintf("%s-%s", resourceID, mappingName)
	}
	return fmt.Sprintf("%s-%s-%d", resourceID, mappingName, now.UnixMilli())
}
