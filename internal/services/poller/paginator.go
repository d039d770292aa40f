package poller

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"go.uber.org/zap"
)

var ErrPaginationAnomaly = errors.New("pagination anomaly")

type PageFetcher func(ctx context.Context, prev activity.Page) (activity.Page, error)

type Collected struct {
	Items     []activity.Item // newest first, in source page order
	Pages     int
	Truncated bool
	Meta      activity.PageMeta
}

type Paginator struct {
	Log *zap.Logger
	// MaxPages bounds a single walk; zero means no bound.
	MaxPages int
}

// Collect walks forward from first until a page contains lastEventID or the
// source has no further pages. A failed next-page fetch ends the walk with
// what was gathered so far.
func (p *Paginator) Collect(ctx context.Context, first activity.Page, next PageFetcher, lastEventID uint64) Collected {
	out := Collected{
		Items: append(make([]activity.Item, 0, len(first.Items)), first.Items...),
		Pages: 1,
		Meta:  first.Meta,
	}
	cur := first

	for cur.Meta.HasNext && !containsID(out.Items, lastEventID) {
		if p.MaxPages > 0 && out.Pages >= p.MaxPages {
			p.log().Debug("page limit reached", zap.Int("pages", out.Pages))
			break
		}
		page, err := next(ctx, cur)
		out.Pages++
		if err != nil {
			out.Truncated = true
			p.log().Warn("pagination stopped",
				zap.Int("page", out.Pages),
				zap.Error(fmt.Errorf("%w: %w", ErrPaginationAnomaly, err)),
			)
			break
		}
		out.Items = append(out.Items, page.Items...)
		out.Meta = page.Meta
		cur = page
	}
	return out
}

func (p *Paginator) log() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

func containsID(items []activity.Item, id uint64) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}
