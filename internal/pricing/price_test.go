package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sui-wrapped/internal/logging"
)

type fakeSource struct {
	price float64
	err   error
	calls int
}

func (f *fakeSource) FetchPrice(ctx context.Context) (float64, error) {
	f.calls++
	return f.price, f.err
}

func newTestService(source Source) (*Service, *time.Time) {
	svc := NewService(source, 10*time.Minute, logging.NewLogger(logging.LevelError, logging.FormatText))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestGetPriceCachesWithinTTL(t *testing.T) {
	source := &fakeSource{price: 2.5}
	svc, now := newTestService(source)
	ctx := context.Background()

	if got := svc.GetPrice(ctx); got != 2.5 {
		t.Fatalf("GetPrice() = %v, want 2.5", got)
	}
	if source.calls != 1 {
		t.Fatalf("source called %d times, want 1", source.calls)
	}

	// inside the TTL the cached value is served without a fetch
	*now = now.Add(9 * time.Minute)
	source.price = 9.9
	if got := svc.GetPrice(ctx); got != 2.5 {
		t.Errorf("GetPrice() within TTL = %v, want cached 2.5", got)
	}
	if source.calls != 1 {
		t.Errorf("source called %d times, want still 1", source.calls)
	}

	// past the TTL a refresh happens
	*now = now.Add(2 * time.Minute)
	if got := svc.GetPrice(ctx); got != 9.9 {
		t.Errorf("GetPrice() past TTL = %v, want refreshed 9.9", got)
	}
	if source.calls != 2 {
		t.Errorf("source called %d times, want 2", source.calls)
	}
}

func TestGetPriceFallbackWhenNeverFetched(t *testing.T) {
	source := &fakeSource{err: errors.New("api down")}
	svc, _ := newTestService(source)

	if got := svc.GetPrice(context.Background()); got != FallbackPrice {
		t.Errorf("GetPrice() with failing source = %v, want fallback %v", got, FallbackPrice)
	}
}

func TestGetPriceServesStaleOnError(t *testing.T) {
	source := &fakeSource{price: 4.2}
	svc, now := newTestService(source)
	ctx := context.Background()

	if got := svc.GetPrice(ctx); got != 4.2 {
		t.Fatalf("GetPrice() = %v, want 4.2", got)
	}

	*now = now.Add(time.Hour)
	source.err = errors.New("api down")
	if got := svc.GetPrice(ctx); got != 4.2 {
		t.Errorf("GetPrice() after failed refresh = %v, want stale 4.2", got)
	}
}
