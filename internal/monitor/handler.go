package monitor

import (
	"maps"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"webmon/internal/metrics"
	"webmon/internal/source"
	"webmon/pkg/matcher"
)

// Handler tags requests with the configured URL pattern they belong to.
type Handler struct {
	Verbose bool
	Table   *matcher.AtomicTable

	mu      sync.Mutex
	sources map[string][]string
}

func NewHandler(verbose bool, table *matcher.AtomicTable) *Handler {
	return &Handler{
		Verbose: verbose,
		Table:   table,
		sources: make(map[string][]string),
	}
}

// UpdatePatterns records the latest list of every updated source and
// publishes a table built from the union of all sources seen so far.
// Concurrent requests keep using the previous table until the swap.
func (h *Handler) UpdatePatterns(updates ...source.Update) *matcher.Table {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sources == nil {
		h.sources = make(map[string][]string)
	}
	for _, u := range updates {
		h.sources[u.Source] = u.Patterns
	}

	var patterns []string
	for _, name := range slices.Sorted(maps.Keys(h.sources)) {
		patterns = append(patterns, h.sources[name]...)
	}

	t := h.Table.Reload(patterns)
	stats := t.Stats()

	metrics.PatternReloads.Inc()
	metrics.PatternsLoaded.WithLabelValues(matcher.CSimple.String()).Set(float64(stats.Simple))
	metrics.PatternsLoaded.WithLabelValues(matcher.CComplicated.String()).Set(float64(stats.Complicated))
	metrics.PatternsLoaded.WithLabelValues(matcher.CPrefixKeyed.String()).Set(float64(stats.PrefixKeyed))

	log.Info().
		Int("sources", len(h.sources)).
		Int("total", stats.Total()).
		Int("simple", stats.Simple).
		Int("complicated", stats.Complicated).
		Int("prefix_keyed", stats.PrefixKeyed).
		Int("prefix_keys", stats.PrefixKeys).
		Bool("bloom", stats.Bloom).
		Msg("loaded url patterns")

	return t
}

func (h *Handler) Classify(url string) string {
	return h.Table.Classify(url)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Middleware records request count, latency and server errors of next
// under the pattern the request URI classifies to.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		pattern := h.Classify(r.URL.RequestURI())

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		metrics.RequestDuration.WithLabelValues(pattern, r.Method).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(pattern, r.Method, strconv.Itoa(rec.status)).Inc()
		if rec.status >= http.StatusInternalServerError {
			metrics.RequestErrors.WithLabelValues(pattern).Inc()
		}

		if h.Verbose {
			log.Debug().
				Str("method", r.Method).
				Str("uri", r.URL.RequestURI()).
				Str("pattern", pattern).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		}
	})
}
