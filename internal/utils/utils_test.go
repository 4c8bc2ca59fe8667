package utils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputePayout(t *testing.T) {
	cases := []struct {
		price       int64
		rate        float64
		payout, fee int64
	}{
		{6400, 0.12, 5632, 768},
		{1000, 0, 1000, 0},
		{999, 0.15, 849, 150},
		{0, 0.12, 0, 0},
	}
	for _, tc := range cases {
		payout, fee := ComputePayout(tc.price, tc.rate)
		if payout != tc.payout || fee != tc.fee {
			t.Fatalf("ComputePayout(%d, %v) = %d, %d; want %d, %d", tc.price, tc.rate, payout, fee, tc.payout, tc.fee)
		}
		if payout+fee != tc.price {
			t.Fatalf("payout and fee must sum to the price")
		}
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "64.00", FormatMoney(6400))
	assert.Equal(t, "56.32", FormatMoney(5632))
	assert.Equal(t, "0.05", FormatMoney(5))
	assert.Equal(t, "-1.50", FormatMoney(-150))
}

func TestSuggestedPrice(t *testing.T) {
	assert.Equal(t, int64(6400), SuggestedPrice(800, 8000))
	assert.Equal(t, int64(1), SuggestedPrice(1, 500))
	assert.Equal(t, int64(0), SuggestedPrice(0, 8000))
}

func TestCityMatches(t *testing.T) {
	assert.True(t, CityMatches("Paris", "paris"))
	assert.True(t, CityMatches("  Paris   CDG ", "paris"))
	assert.True(t, CityMatches("Casa", "Casablanca"))
	assert.False(t, CityMatches("Paris", "Lyon"))
	assert.False(t, CityMatches("", "Paris"))
	assert.False(t, CityMatches(" ", " "))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList("a, b;\nc,,"))
	assert.Empty(t, SplitList(""))
}

func TestEndOfDay(t *testing.T) {
	d, err := ParseDate("2025-06-10")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	assert.True(t, IsDateOnly(d))
	eod := EndOfDay(d)
	assert.Equal(t, time.Date(2025, 6, 10, 23, 59, 59, 999999000, time.UTC), eod)
	assert.False(t, IsDateOnly(eod))
	assert.Equal(t, "2025-06-10", FormatDate(eod))
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	var (
		km      KeyedMutex[string]
		wg      sync.WaitGroup
		counter int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("trip")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Empty(t, km.locks, "entries are dropped after the last unlock")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	var km KeyedMutex[int]
	unlockA := km.Lock(1)
	done := make(chan struct{})
	go func() {
		unlock := km.Lock(2)
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock on another key must not block")
	}
	unlockA()
}
