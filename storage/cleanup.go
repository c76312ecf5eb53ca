package storage

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CleanupLoop calls db.Cleanup every interval until ctx is done. Cleanup
// errors are logged and don't stop the loop.
func CleanupLoop(ctx context.Context, db Database, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := db.Cleanup(); err != nil {
				log.Error().Err(err).Msg("error cleaning up the database")
				continue
			}
			log.Debug().Msg("cleaned up the database")
		}
	}
}
