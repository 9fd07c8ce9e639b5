package source

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"webmon/internal/metrics"
)

const defaultInterval = 30 * time.Second

type intervaler interface {
	Interval() time.Duration
}

// NewPoller returns a poller pushing the patterns of src onto updates every
// interval. name labels logs and error metrics.
func NewPoller(name string, src Source, interval time.Duration, verbose bool, updates chan<- Update) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		source:   src,
		interval: interval,
		name:     name,
		verbose:  verbose,
		updates:  updates,
	}
}

// Start fetches once immediately and then on every tick until ctx is done.
// A failed fetch leaves the current table in place.
func (p *Poller) Start(ctx context.Context) {
	if p.verbose {
		log.Info().Msgf("Starting pattern poller, source: %s, interval: %v", p.name, p.interval)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx, ticker)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, ticker)
		}
	}
}

func (p *Poller) poll(ctx context.Context, ticker *time.Ticker) {
	patterns, err := p.source.FetchPatterns(ctx)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues(metrics.ErrorTypePatternFetch, p.name).Inc()
		log.Err(err).Str("source", p.name).Msg("Error fetching patterns")
		return
	}

	if p.verbose {
		log.Info().Msgf("Fetched %d patterns from %s", len(patterns), p.name)
	}

	select {
	case p.updates <- Update{Source: p.name, Patterns: patterns}:
	case <-ctx.Done():
		return
	}

	if iv, ok := p.source.(intervaler); ok {
		if d := iv.Interval(); d > 0 && d != p.interval {
			log.Info().Msgf("Pattern fetch interval changed from %v to %v", p.interval, d)
			p.interval = d
			ticker.Reset(d)
		}
	}
}
