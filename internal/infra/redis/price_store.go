package redis

import (
	"context"
	"strconv"
	"time"

	"trading-journal/internal/domain"
	"trading-journal/internal/domain/ports/adapter"

	"github.com/go-redis/redis/v8"
)

var _ adapter.PriceLookup = (*PriceStore)(nil)

// PriceStore reads latest market prices that an out-of-band feed writes
// into Redis. Keys expire with the feed's publish interval, so a stale or
// absent key is the signal that no usable quote exists.
type PriceStore struct {
	client  *redClient
	timeout time.Duration
}

func NewPriceStore(client *redClient, timeout time.Duration) *PriceStore {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &PriceStore{client: client, timeout: timeout}
}

func priceKey(ticker string) string { return "latest_price:" + ticker }

func (s *PriceStore) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Get(ctx, priceKey(ticker))
	if err != nil {
		if err == redis.Nil {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domain.ErrNotFound
	}
	return price, nil
}

// SetLatestPrice is used by the feed writer and by tests.
func (s *PriceStore) SetLatestPrice(ctx context.Context, ticker string, price float64, ttl time.Duration) error {
	return s.client.Set(ctx, priceKey(ticker), strconv.FormatFloat(price, 'f', -1, 64), ttl)
}
