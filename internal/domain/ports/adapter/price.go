package adapter

import "context"

// PriceLookup resolves the latest known market price for a bare ticker
// symbol (exchange suffixes are stripped by the caller). Best-effort: a
// miss or error yields a nil price upstream, never a failed aggregation.
type PriceLookup interface {
	LatestPrice(ctx context.Context, ticker string) (float64, error)
}
