// Package traffic derives bandwidth from the monotonic byte counters the
// device exposes per interface, keeping a bounded sliding window of
// samples for the live chart and an optional sqlite history.
package traffic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sample is one derived bandwidth reading.
type Sample struct {
	At    time.Time `json:"at"`
	RxBps float64   `json:"rxBitsPerSecond"`
	TxBps float64   `json:"txBitsPerSecond"`
}

// CounterSource reads the current rx/tx byte counters of one interface.
type CounterSource interface {
	InterfaceCounters(ctx context.Context, name string) (rx, tx int64, err error)
}

type reading struct {
	at time.Time
	rx int64
	tx int64
}

// Engine converts consecutive counter readings into samples. It tracks a
// single monitored interface; switching interfaces discards the baseline
// and the window.
type Engine struct {
	logger zerolog.Logger
	src    CounterSource
	now    func() time.Time

	mu       sync.Mutex
	iface    string
	baseline *reading
	window   *Window

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine builds an engine with a window of capacity points.
func NewEngine(logger zerolog.Logger, src CounterSource, capacity int) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "traffic-engine").Logger(),
		src:    src,
		now:    time.Now,
		window: NewWindow(capacity),
	}
}

// SetInterface switches the monitored interface, resetting the counter
// baseline and clearing the displayed window.
func (e *Engine) SetInterface(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.iface == name {
		return
	}
	e.iface = name
	e.baseline = nil
	e.window.Clear()
}

// Interface returns the currently monitored interface name.
func (e *Engine) Interface() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.iface
}

// Sample fetches current counters and derives one sample against the
// stored baseline. The first reading only sets the baseline and emits
// nothing; so does a non-positive elapsed time.
func (e *Engine) Sample(ctx context.Context) (*Sample, error) {
	e.mu.Lock()
	name := e.iface
	e.mu.Unlock()
	if name == "" {
		return nil, fmt.Errorf("no interface selected")
	}

	rx, tx, err := e.src.InterfaceCounters(ctx, name)
	if err != nil {
		return nil, err
	}
	sample, _ := e.Observe(name, e.now(), rx, tx)
	return sample, nil
}

// Observe feeds one counter reading into the engine. It returns the
// derived sample, or nil when the reading only (re)establishes the
// baseline. A counter that went backwards (device reboot, counter reset)
// clamps the rate to zero instead of emitting a negative value, so the
// time series has no gaps.
func (e *Engine) Observe(name string, at time.Time, rx, tx int64) (*Sample, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if name != e.iface {
		return nil, false
	}

	prev := e.baseline
	e.baseline = &reading{at: at, rx: rx, tx: tx}
	if prev == nil {
		return nil, false
	}
	elapsed := at.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return nil, false
	}

	s := &Sample{
		At:    at,
		RxBps: clampZero(float64(rx-prev.rx) * 8 / elapsed),
		TxBps: clampZero(float64(tx-prev.tx) * 8 / elapsed),
	}
	e.window.Append(*s)
	return s, true
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Snapshot returns the current window, oldest first.
func (e *Engine) Snapshot() []Sample {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window.Snapshot()
}

// Reset drops the baseline, window and monitored interface. Called at
// logout so nothing leaks into the next session.
func (e *Engine) Reset() {
	e.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.iface = ""
	e.baseline = nil
	e.window.Clear()
}

// Run samples on the given interval until Stop or ctx cancellation. An
// in-flight sample at stop time completes harmlessly.
func (e *Engine) Run(ctx context.Context, interval time.Duration, onSample func(Sample)) {
	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s, err := e.Sample(ctx)
				if err != nil {
					e.logger.Debug().Err(err).Msg("sample failed")
					continue
				}
				if s != nil && onSample != nil {
					onSample(*s)
				}
			}
		}
	}()
}

// Stop cancels the sampling loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
		e.wg.Wait()
	}
}
