/*
scheduler.go - Periodic holiday cache refresh

PURPOSE:
  Keeps the in-memory holiday cache in step with the database when several
  server instances share one store. Holiday edits made through this
  instance refresh the cache immediately; edits made elsewhere are picked
  up on the next tick.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Reloads all holidays and swaps the cache contents atomically
  - A failed reload keeps the previous holidays and is logged

CONFIGURATION:
  - Interval: How often to reload (LEAVE_HOLIDAY_REFRESH, default: 5m)
  - Enabled: Whether the refresher is active (interval > 0)

USAGE:
  refresher := NewHolidayRefresher(handler, cfg.HolidayRefresh, logger)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - handlers.go: LoadHolidays, CreateHoliday, DeleteHoliday
  - calendar/holidays.go: HolidayCache
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HolidayRefresher periodically reloads the handler's holiday cache.
type HolidayRefresher struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// statsMu guards lastRun and lastErr.
	statsMu sync.Mutex
	lastRun time.Time
	lastErr error
}

// NewHolidayRefresher creates a refresher. A non-positive interval disables it.
func NewHolidayRefresher(h *Handler, interval time.Duration, logger *zap.Logger) *HolidayRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayRefresher{
		Handler:  h,
		Interval: interval,
		Enabled:  interval > 0,
		logger:   logger.Named("holiday_refresher"),
	}
}

// Start begins the refresher.
func (hr *HolidayRefresher) Start() {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	if !hr.Enabled {
		hr.logger.Info("disabled, not starting")
		return
	}
	if hr.ticker != nil {
		return
	}

	hr.ticker = time.NewTicker(hr.Interval)
	hr.stop = make(chan struct{})
	hr.wg.Add(1)
	go hr.run(hr.ticker, hr.stop)

	hr.logger.Info("started", zap.Duration("interval", hr.Interval))
}

// Stop stops the refresher and waits for an in-flight reload.
func (hr *HolidayRefresher) Stop() {
	hr.mu.Lock()
	ticker, stop := hr.ticker, hr.stop
	hr.ticker, hr.stop = nil, nil
	hr.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	hr.wg.Wait()
	hr.logger.Info("stopped")
}

func (hr *HolidayRefresher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer hr.wg.Done()

	for {
		select {
		case <-ticker.C:
			hr.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow reloads holidays immediately.
func (hr *HolidayRefresher) RunNow(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := hr.Handler.LoadHolidays(ctx)

	hr.statsMu.Lock()
	hr.lastRun, hr.lastErr = time.Now(), err
	hr.statsMu.Unlock()

	if err != nil {
		hr.logger.Warn("holiday reload failed", zap.Error(err))
		return err
	}
	hr.logger.Debug("holidays reloaded")
	return nil
}

// LastRun reports when the last reload finished and its error.
func (hr *HolidayRefresher) LastRun() (time.Time, error) {
	hr.statsMu.Lock()
	defer hr.statsMu.Unlock()
	return hr.lastRun, hr.lastErr
}
