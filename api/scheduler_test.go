package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
)

// failingHolidays fails every holiday listing.
type failingHolidays struct {
	leave.ConfigStore
}

func (failingHolidays) ListHolidays(context.Context, *calendar.Window) ([]calendar.Holiday, error) {
	return nil, errors.New("db down")
}

// blockingHolidays holds every holiday listing until release is closed.
type blockingHolidays struct {
	leave.ConfigStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingHolidays) ListHolidays(ctx context.Context, _ *calendar.Window) ([]calendar.Holiday, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return nil, nil
}

func TestHolidayRefresher_PicksUpExternalEdits(t *testing.T) {
	// GIVEN: A holiday written straight to the store, bypassing the API
	s := newTestServer(t)
	day := calendar.MustParseISO("2025-05-01")
	require.NoError(t, s.store.SaveHoliday(context.Background(), calendar.Holiday{ID: "h1", Date: day, Name: "Labour Day"}))
	assert.False(t, s.handler.Holidays.IsHoliday(day))

	// WHEN: The refresher runs
	hr := NewHolidayRefresher(s.handler, time.Minute, zap.NewNop())
	require.NoError(t, hr.RunNow(context.Background()))

	// THEN: The cache sees it
	assert.True(t, s.handler.Holidays.IsHoliday(day))
	last, err := hr.LastRun()
	assert.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestHolidayRefresher_FailureKeepsCache(t *testing.T) {
	day := calendar.MustParseISO("2025-12-25")
	cache := calendar.NewHolidayCache(calendar.Holiday{ID: "x", Date: day, Name: "Christmas"})
	h := &Handler{Config: failingHolidays{}, Holidays: cache, logger: zap.NewNop()}

	hr := NewHolidayRefresher(h, time.Minute, nil)
	assert.Error(t, hr.RunNow(context.Background()))
	assert.True(t, cache.IsHoliday(day))
	_, err := hr.LastRun()
	assert.Error(t, err)
}

func TestHolidayRefresher_DisabledAndStop(t *testing.T) {
	s := newTestServer(t)

	disabled := NewHolidayRefresher(s.handler, 0, nil)
	assert.False(t, disabled.Enabled)
	disabled.Start()
	disabled.Stop()

	hr := NewHolidayRefresher(s.handler, 10*time.Millisecond, nil)
	hr.Start()
	hr.Start()
	hr.Stop()
	hr.Stop()
}

func TestHolidayRefresher_StopDuringReload(t *testing.T) {
	// GIVEN: A tick whose reload is still running
	store := &blockingHolidays{entered: make(chan struct{}), release: make(chan struct{})}
	h := &Handler{Config: store, Holidays: calendar.NewHolidayCache(), logger: zap.NewNop()}
	hr := NewHolidayRefresher(h, time.Millisecond, nil)
	hr.Start()

	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("reload never started")
	}

	// WHEN: Stop is called before the reload finishes
	stopped := make(chan struct{})
	go func() {
		hr.Stop()
		close(stopped)
	}()
	close(store.release)

	// THEN: Stop returns once the reload completes
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a reload was in flight")
	}
	last, err := hr.LastRun()
	assert.NoError(t, err)
	assert.False(t, last.IsZero())
}
