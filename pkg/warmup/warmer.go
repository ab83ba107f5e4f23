package warmup

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/photo-cache/pkg/cache"
	"github.com/Sternrassler/photo-cache/pkg/photos"
)

var albumsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "photocache_warmup_albums_total",
	Help: "Albums prefetched at startup by result",
}, []string{"result"})

// Config holds warmer configuration.
type Config struct {
	// Concurrency is the number of parallel album fetches.
	Concurrency int

	// Timeout per album fetch, retries included.
	Timeout time.Duration

	// TTL requested for warmed entries. Zero uses the cache default.
	TTL time.Duration
}

// DefaultConfig returns the default warmer configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		Timeout:     15 * time.Second,
	}
}

// Lister fetches the photo listing for a query.
type Lister interface {
	ListPhotos(ctx context.Context, query url.Values) ([]byte, error)
}

// Report summarizes a warmup run.
type Report struct {
	// Fetched counts albums loaded from the origin.
	Fetched int

	// Cached counts albums that were already in the store.
	Cached int

	// Failed maps album id to its error.
	Failed map[int]error

	// Skipped counts albums not attempted because the context ended.
	Skipped int

	Duration time.Duration
}

// Err summarizes failures, or returns nil when every album was warmed.
func (r Report) Err() error {
	if len(r.Failed) == 0 && r.Skipped == 0 {
		return nil
	}
	ids := make([]int, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return fmt.Errorf("warmup incomplete: %d failed %v, %d skipped", len(ids), ids, r.Skipped)
}

type albumResult struct {
	album  int
	status cache.Status
	err    error
}

// Warmer prefetches album listings through the cache.
type Warmer struct {
	aside  *cache.Aside
	lister Lister
	config Config
	logger zerolog.Logger
}

// New creates a warmer.
func New(aside *cache.Aside, lister Lister, config Config) *Warmer {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Warmer{
		aside:  aside,
		lister: lister,
		config: config,
		logger: log.With().Str("component", "warmup").Logger(),
	}
}

// WarmAlbums fetches albums 1..count. See Warm. A count below one warms nothing.
func (w *Warmer) WarmAlbums(ctx context.Context, count int) Report {
	albums := make([]int, max(count, 0))
	for i := range albums {
		albums[i] = i + 1
	}
	return w.Warm(ctx, albums)
}

// Warm fetches the listing of every album through the cache using a worker
// pool. Failures do not stop other albums. When ctx ends, remaining albums
// are reported as skipped.
func (w *Warmer) Warm(ctx context.Context, albums []int) Report {
	start := time.Now()
	report := Report{Failed: make(map[int]error)}

	w.logger.Info().
		Int("albums", len(albums)).
		Int("concurrency", w.config.Concurrency).
		Msg("Starting cache warmup")

	queue := make(chan int)
	results := make(chan albumResult, len(albums))

	go func() {
		defer close(queue)
		for _, album := range albums {
			select {
			case queue <- album:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < w.config.Concurrency; i++ {
		wg.Add(1)
		go w.worker(ctx, queue, results, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for res := range results {
		done++
		switch {
		case res.err != nil:
			report.Failed[res.album] = res.err
			albumsTotal.WithLabelValues("error").Inc()
			w.logger.Warn().
				Err(res.err).
				Int("album", res.album).
				Msg("Album warmup failed")
		case res.status == cache.StatusHit:
			report.Cached++
			albumsTotal.WithLabelValues("ok").Inc()
		default:
			report.Fetched++
			albumsTotal.WithLabelValues("ok").Inc()
		}
	}

	report.Skipped = len(albums) - done
	report.Duration = time.Since(start)

	w.logger.Info().
		Int("fetched", report.Fetched).
		Int("cached", report.Cached).
		Int("failed", len(report.Failed)).
		Int("skipped", report.Skipped).
		Dur("duration", report.Duration).
		Msg("Cache warmup complete")

	return report
}

// worker processes albums from the queue.
func (w *Warmer) worker(ctx context.Context, queue <-chan int, results chan<- albumResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for album := range queue {
		if ctx.Err() != nil {
			w.logger.Debug().
				Int("worker_id", workerID).
				Int("albums_processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		albumCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		status, err := w.warmAlbum(albumCtx, album)
		cancel()

		results <- albumResult{album: album, status: status, err: err}
		processed++
	}

	if processed > 0 {
		w.logger.Debug().
			Int("worker_id", workerID).
			Int("albums_processed", processed).
			Msg("Worker completed")
	}
}

// warmAlbum requests the same entry GET /photos?albumId=N would.
func (w *Warmer) warmAlbum(ctx context.Context, album int) (cache.Status, error) {
	query := url.Values{"albumId": []string{strconv.Itoa(album)}}

	res, err := w.aside.Fetch(ctx, photos.ResourcePhotos,
		[]cache.AttributeGroup{cache.QueryGroup(query)},
		w.config.TTL,
		func(ctx context.Context) ([]byte, error) {
			return w.lister.ListPhotos(ctx, query)
		})
	return res.Status, err
}
