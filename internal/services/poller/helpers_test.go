package poller

import (
	"context"
	"errors"
	"sync"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/NordCoder/Feedwatch/internal/domain/state"
)

// pagesOf builds a chain of newest-first pages linked through NextPage.
func pagesOf(ids ...[]uint64) []activity.Page {
	out := make([]activity.Page, len(ids))
	for i, group := range ids {
		items := make([]activity.Item, 0, len(group))
		for _, id := range group {
			items = append(items, activity.Item{ID: id, Type: "PushEvent"})
		}
		out[i] = activity.Page{
			Items: items,
			Meta:  activity.PageMeta{NextPage: i + 1, HasNext: i+1 < len(ids)},
		}
	}
	return out
}

type fakeTransport struct {
	mu         sync.Mutex
	pages      []activity.Page
	fetchErr   error
	nextErr    error
	fetches    int
	nexts      int
	validators []string
	fetched    chan struct{}
}

func (f *fakeTransport) Fetch(_ context.Context, _ activity.Target, validator string) (activity.Page, error) {
	f.mu.Lock()
	f.fetches++
	f.validators = append(f.validators, validator)
	var (
		page activity.Page
		err  = f.fetchErr
	)
	if len(f.pages) > 0 {
		page = f.pages[0]
	}
	f.mu.Unlock()

	if f.fetched != nil {
		select {
		case f.fetched <- struct{}{}:
		default:
		}
	}
	return page, err
}

func (f *fakeTransport) FetchNext(_ context.Context, _ activity.Target, prev activity.Page) (activity.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nexts++
	if f.nextErr != nil {
		return activity.Page{}, f.nextErr
	}
	if prev.Meta.NextPage >= len(f.pages) {
		return activity.Page{}, errors.New("no such page")
	}
	return f.pages[prev.Meta.NextPage], nil
}

func (f *fakeTransport) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches, f.nexts
}

type memStore struct {
	mu      sync.Mutex
	data    map[state.Fingerprint]state.State
	saveErr error
	saves   int
}

func newMemStore() *memStore { return &memStore{data: map[state.Fingerprint]state.State{}} }

func (m *memStore) Load(_ context.Context, fp state.Fingerprint) (state.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.data[fp]
	return st, ok, nil
}

func (m *memStore) Save(_ context.Context, fp state.Fingerprint, st state.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[fp] = st
	return nil
}
