package usecase

import (
	"context"
	"sync"
	"time"

	"HourCast/internal/domain/models"
	drepo "HourCast/internal/domain/repository"
	mid "HourCast/internal/middleware"
)

func tickTime(t *models.Tick) time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}

// QuoteHolder keeps the most recent live price for the API and metrics.
type QuoteHolder struct {
	mu      sync.RWMutex
	quote   *models.Quote
	metrics drepo.Metrics
}

// NewQuoteHolder creates an empty quote holder.
func NewQuoteHolder(metrics drepo.Metrics) *QuoteHolder {
	return &QuoteHolder{metrics: metrics}
}

// Process records a tick as the latest quote.
func (q *QuoteHolder) Process(_ context.Context, t *models.Tick) error {
	q.mu.Lock()
	q.quote = &models.Quote{Symbol: t.Symbol, Price: t.Price, At: tickTime(t)}
	q.mu.Unlock()
	q.metrics.RecordLastPrice(t.Symbol, t.Price)
	return nil
}

// Latest returns the most recent quote, or nil before the first tick.
func (q *QuoteHolder) Latest() *models.Quote {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.quote == nil {
		return nil
	}
	cp := *q.quote
	return &cp
}

// TickerCollector drives the live market stream through the tick pipeline
// into the quote holder, reconnecting on stream errors.
type TickerCollector struct {
	stream  drepo.MarketStream
	pipe    *mid.TickPipeline
	quotes  *QuoteHolder
	metrics drepo.Metrics
}

// NewTickerCollector creates the live ticker collector.
func NewTickerCollector(stream drepo.MarketStream, pipe *mid.TickPipeline, quotes *QuoteHolder, metrics drepo.Metrics) *TickerCollector {
	return &TickerCollector{stream: stream, pipe: pipe, quotes: quotes, metrics: metrics}
}

// Start connects, subscribes, and consumes ticks until ctx is done.
func (c *TickerCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, tickCh, errCh)
	return nil
}

func (c *TickerCollector) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
			}
			// an error or a closed channel means the read goroutine is gone;
			// the new connection needs a fresh Read
			if err != nil || !ok {
				if tickCh, errCh, ok = c.reopen(ctx); !ok {
					return
				}
			}
		case t, ok := <-tickCh:
			if !ok {
				if tickCh, errCh, ok = c.reopen(ctx); !ok {
					return
				}
				continue
			}
			if t == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, t)
			} else {
				_ = c.quotes.Process(ctx, t)
			}
		}
	}
}

// reopen re-establishes the stream and returns the channels of a new Read.
// Reconnect paces its own retries via the configured delay.
func (c *TickerCollector) reopen(ctx context.Context) (<-chan *models.Tick, <-chan error, bool) {
	for {
		if ctx.Err() != nil {
			return nil, nil, false
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			continue
		}
		tickCh, errCh := c.stream.Read(ctx)
		return tickCh, errCh, true
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *TickerCollector) Shutdown(context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
