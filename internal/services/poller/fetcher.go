package poller

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
)

var ErrTransport = errors.New("transport")

// Fetcher issues the polling request for one fixed target and hides the
// transport's notion of "nothing changed" behind an empty page.
type Fetcher struct {
	Transport activity.Transport
	Target    activity.Target
}

func NewFetcher(t activity.Transport, target activity.Target) *Fetcher {
	return &Fetcher{Transport: t, Target: target}
}

func (f *Fetcher) Fetch(ctx context.Context, validator string) (activity.Page, error) {
	page, err := f.Transport.Fetch(ctx, f.Target, validator)
	if errors.Is(err, activity.ErrNotModified) {
		return activity.Empty(page.Meta), nil
	}
	if err != nil {
		return activity.Page{}, fmt.Errorf("%w: fetch %s: %w", ErrTransport, f.Target, err)
	}
	if len(page.Items) == 0 {
		return activity.Empty(page.Meta), nil
	}
	return page, nil
}

// Next fetches the page after prev. Used as the paginator's PageFetcher.
func (f *Fetcher) Next(ctx context.Context, prev activity.Page) (activity.Page, error) {
	page, err := f.Transport.FetchNext(ctx, f.Target, prev)
	if err != nil {
		return activity.Page{}, fmt.Errorf("%w: next page of %s: %w", ErrTransport, f.Target, err)
	}
	return page, nil
}
