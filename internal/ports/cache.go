package ports

import (
	"context"
	"time"
)

// ScoreCache keeps credit scores per customer and evaluation day. version
// identifies the history a score was computed from; a lookup with another
// version misses.
type ScoreCache interface {
	GetScore(ctx context.Context, customerID int64, day time.Time, version string) (int, bool)
	SetScore(ctx context.Context, customerID int64, day time.Time, version string, score int) error
	Invalidate(ctx context.Context, customerIDs ...int64) error
}
