package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgcache "BarSync/pkg/cache"
	"BarSync/pkg/config"
)

func TestConfigCalendarSourceUnknownSymbol(t *testing.T) {
	src := NewConfigCalendarSource(map[string]config.CalendarSpec{})
	cal, err := src.Get(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.Nil(t, cal)
}

func TestConfigCalendarSourceBuildsCalendar(t *testing.T) {
	src := NewConfigCalendarSource(map[string]config.CalendarSpec{
		"AAPL": {
			Timezone:     "America/New_York",
			TradingDays:  []string{"Mon", "tue", "Wednesday", "THU", "fri", "notaday"},
			SessionStart: "09:30",
			SessionEnd:   "16:00",
		},
	})

	cal, err := src.Get(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, cal)

	assert.Equal(t, "AAPL", cal.Symbol)
	assert.True(t, cal.TradingDays[time.Monday])
	assert.True(t, cal.TradingDays[time.Friday])
	assert.False(t, cal.TradingDays[time.Saturday])
	assert.Len(t, cal.TradingDays, 5) // the malformed day name is dropped
	assert.Equal(t, 9*60+30, cal.Session.StartMinute)
	assert.Equal(t, 16*60, cal.Session.EndMinute)
	assert.False(t, cal.Is24x5)
}

func TestParseClockMinute(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"09:30", 570},
		{"00:00", 0},
		{"23:59", 1439},
		{" 17:00", 1020},
		{"25:00", 0},
		{"12:75", 0},
		{"nonsense", 0},
		{"", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseClockMinute(tc.in), "input %q", tc.in)
	}
}

// stubCache is a JSON round-tripping in-memory cache.
type stubCache struct {
	data map[string][]byte
	sets int
	gets int
}

func newStubCache() *stubCache { return &stubCache{data: make(map[string][]byte)} }

func (c *stubCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *stubCache) Get(_ context.Context, key string, dest interface{}) error {
	c.gets++
	b, ok := c.data[key]
	if !ok {
		return pkgcache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *stubCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *stubCache) DeleteByPattern(context.Context, string) error { return nil }

func (c *stubCache) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, k := range keys {
		if _, ok := c.data[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c *stubCache) Increment(context.Context, string) (int64, error) { return 0, nil }

func (c *stubCache) Expire(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (c *stubCache) MSet(context.Context, map[string]interface{}, time.Duration) error { return nil }

func (c *stubCache) MGet(context.Context, ...string) (map[string]string, error) {
	return nil, nil
}

func (c *stubCache) TryLock(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}

func (c *stubCache) Unlock(context.Context, string) error { return nil }

func TestCachedCalendarSourceRoundTrip(t *testing.T) {
	inner := NewConfigCalendarSource(map[string]config.CalendarSpec{
		"EURUSD": {
			Timezone:     "America/New_York",
			TradingDays:  []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri"},
			SessionStart: "17:00",
			SessionEnd:   "17:00",
			Is24x5:       true,
		},
	})
	cache := newStubCache()
	src := NewCachedCalendarSource(inner, cache, time.Minute)

	cal, err := src.Get(context.Background(), "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, cal)
	assert.Equal(t, 1, cache.sets)

	again, err := src.Get(context.Background(), "EURUSD")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 1, cache.sets) // second lookup is served from cache
	assert.True(t, again.Is24x5)
	assert.Equal(t, cal.Session, again.Session)
	assert.Equal(t, cal.TradingDays, again.TradingDays)
}

func TestCachedCalendarSourceNegativeCache(t *testing.T) {
	inner := NewConfigCalendarSource(map[string]config.CalendarSpec{})
	cache := newStubCache()
	src := NewCachedCalendarSource(inner, cache, time.Minute)

	cal, err := src.Get(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, cal)
	assert.Equal(t, 1, cache.sets)

	cal, err = src.Get(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, cal)
	assert.Equal(t, 1, cache.sets)
}
