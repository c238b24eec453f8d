package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"HourCast/internal/domain/models"
)

// flakyStream drops its first connection the way the websocket reader does:
// one error on errCh, then both channels close. Reads after a reconnect
// deliver ticks normally.
type flakyStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
	tick       *models.Tick
}

func (s *flakyStream) Connect(context.Context) error   { return nil }
func (s *flakyStream) Subscribe(context.Context) error { return nil }
func (s *flakyStream) Close() error                    { return nil }
func (s *flakyStream) IsConnected() bool               { return true }

func (s *flakyStream) Reconnect(context.Context) error {
	s.mu.Lock()
	s.reconnects++
	s.mu.Unlock()
	return nil
}

func (s *flakyStream) Read(context.Context) (<-chan *models.Tick, <-chan error) {
	s.mu.Lock()
	n := s.reads
	s.reads++
	s.mu.Unlock()

	ticks := make(chan *models.Tick, 1)
	errs := make(chan error, 1)
	if n == 0 {
		errs <- errors.New("read: connection reset by peer")
		close(errs)
		close(ticks)
	} else {
		ticks <- s.tick
	}
	return ticks, errs
}

func TestCollectorResumesAfterStreamError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &flakyStream{tick: &models.Tick{
		Symbol:    "BINANCE:ETHUSDT",
		Price:     2650,
		Timestamp: time.Now().Unix(),
	}}
	quotes := NewQuoteHolder(nopMetrics{})
	c := NewTickerCollector(s, nil, quotes, nopMetrics{})
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for quotes.Latest() == nil {
		select {
		case <-deadline:
			t.Fatal("no quote after the stream error; the reconnected stream was never consumed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	got := quotes.Latest()
	if got.Price != 2650 || got.Symbol != "BINANCE:ETHUSDT" {
		t.Fatalf("unexpected quote after reconnect: %+v", got)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reconnects < 1 || s.reads < 2 {
		t.Fatalf("expected a reconnect followed by a fresh read, got reconnects=%d reads=%d", s.reconnects, s.reads)
	}
}
