package poller

import (
	"context"
	"sort"
	"testing"

	"github.com/NordCoder/Feedwatch/internal/bus"
	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(ids ...uint64) []activity.Item {
	out := make([]activity.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, activity.Item{ID: id, Type: "PushEvent"})
	}
	return out
}

func ids(list []activity.Item) []uint64 {
	out := make([]uint64, 0, len(list))
	for _, it := range list {
		out = append(out, it.ID)
	}
	return out
}

func TestEngine_FanOut(t *testing.T) {
	b := bus.New(nil)
	var got []string
	for _, ch := range []string{"IssuesEvent", "issuesevent", "Issues", "issues", "all", "PushEvent", "push"} {
		ch := ch
		b.Subscribe(ch, func(_ context.Context, eventType string, it activity.Item) {
			assert.Equal(t, "IssuesEvent", eventType)
			assert.Equal(t, uint64(5), it.ID)
			got = append(got, ch)
		})
	}

	last, out := NewEngine(b).Process(context.Background(),
		[]activity.Item{{ID: 5, Type: "IssuesEvent"}}, 0, nil)

	require.Equal(t, uint64(5), last)
	require.Len(t, out, 1)
	sort.Strings(got)
	assert.Equal(t, []string{"Issues", "IssuesEvent", "all", "issues", "issuesevent"}, got)
}

func TestEngine_ChronologicalAndFiltered(t *testing.T) {
	b := bus.New(nil)
	var seen []uint64
	b.Subscribe(AllChannel, func(_ context.Context, _ string, it activity.Item) {
		seen = append(seen, it.ID)
	})

	in := items(5, 4, 3, 2, 1)
	var advanced []uint64
	last, out := NewEngine(b).Process(context.Background(), in, 2, func(id uint64) {
		advanced = append(advanced, id)
	})

	assert.Equal(t, uint64(5), last)
	assert.Equal(t, []uint64{3, 4, 5}, ids(out))
	assert.Equal(t, []uint64{3, 4, 5}, seen)
	assert.Equal(t, []uint64{3, 4, 5}, advanced)
	assert.Equal(t, []uint64{5, 4, 3, 2, 1}, ids(in), "input must not be reordered")
}

func TestEngine_Idempotent(t *testing.T) {
	e := NewEngine(bus.New(nil))
	in := items(30, 20, 10)

	last, first := e.Process(context.Background(), in, 0, nil)
	require.Equal(t, []uint64{10, 20, 30}, ids(first))

	again, second := e.Process(context.Background(), in, last, nil)
	assert.Equal(t, last, again)
	assert.Empty(t, second)
}

func TestEngine_DuplicatesAcrossPagesDispatchedOnce(t *testing.T) {
	e := NewEngine(bus.New(nil))
	last, out := e.Process(context.Background(), items(9, 8, 8, 7), 0, nil)
	assert.Equal(t, uint64(9), last)
	assert.Equal(t, []uint64{7, 8, 9}, ids(out))
}

func TestEngine_EmptyInput(t *testing.T) {
	last, out := NewEngine(bus.New(nil)).Process(context.Background(), nil, 42, nil)
	assert.Equal(t, uint64(42), last)
	assert.Empty(t, out)
}

func TestEngine_StopsWhenContextDone(t *testing.T) {
	b := bus.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []uint64
	b.Subscribe(AllChannel, func(_ context.Context, _ string, it activity.Item) {
		seen = append(seen, it.ID)
		cancel()
	})

	var advanced []uint64
	last, out := NewEngine(b).Process(ctx, items(3, 2, 1), 0, func(id uint64) {
		advanced = append(advanced, id)
	})

	assert.Equal(t, uint64(1), last)
	assert.Equal(t, []uint64{1}, ids(out))
	assert.Equal(t, []uint64{1}, seen)
	assert.Equal(t, []uint64{1}, advanced)
}
