// Package warmup prefetches album listings into the cache at startup.
//
// Each album is fetched through the cache-aside orchestrator under the same
// key a client request for /photos?albumId=N derives, so warmed entries are
// served as hits afterwards.
//
// Example usage:
//
//	w := warmup.New(aside, originClient, warmup.DefaultConfig())
//	report := w.WarmAlbums(ctx, 100)
//	if err := report.Err(); err != nil {
//		log.Warn().Err(err).Msg("warmup incomplete")
//	}
//
// The warmer:
//   - Distributes albums across a bounded worker pool
//   - Applies a per-album timeout
//   - Continues past individual failures and reports them
//   - Stops handing out work when the context ends
package warmup
