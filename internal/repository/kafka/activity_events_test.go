package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	ceevent "github.com/cloudevents/sdk-go/v2/event"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func header(msg kafka.Message, key string) string {
	return incomingHeaders(msg.Headers).Get(key)
}

var (
	repoTarget = activity.Target{Kind: activity.KindRepository, User: "octo", Repo: "hello"}
	sampleItem = activity.Item{
		ID:        42,
		Type:      "IssuesEvent",
		Payload:   json.RawMessage(`{"action":"opened"}`),
		Actor:     "octocat",
		Repo:      "octo/hello",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
)

func TestToCloudEvent(t *testing.T) {
	ev, err := ToCloudEvent(repoTarget, sampleItem)
	require.NoError(t, err)

	assert.Equal(t, "42", ev.ID())
	assert.Equal(t, "com.github.IssuesEvent", ev.Type())
	assert.Equal(t, "https://api.github.com/repos/octo/hello", ev.Source())
	assert.Equal(t, "octo/hello", ev.Subject())
	assert.Equal(t, sampleItem.CreatedAt, ev.Time())
	assert.Equal(t, "octocat", ev.Extensions()["actor"])
	assert.JSONEq(t, `{"action":"opened"}`, string(ev.Data()))
}

func TestToCloudEvent_EmptyPayload(t *testing.T) {
	it := sampleItem
	it.Payload = nil
	ev, err := ToCloudEvent(activity.Target{}, it)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(ev.Data()))
	assert.Equal(t, "https://api.github.com/events", ev.Source())
}

func TestPublishActivity_WritesKeyedEnvelope(t *testing.T) {
	w := &fakeWriter{}
	sink := NewActivityEventsKafka(NewProducerWithWriter(w, "activity"))

	require.NoError(t, sink.PublishActivity(context.Background(), repoTarget, sampleItem))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, ContentType, header(msg, "content-type"))
	assert.Equal(t, "com.github.IssuesEvent", header(msg, "ce_type"))

	var decoded ceevent.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "42", decoded.ID())
	assert.Equal(t, "octo/hello", decoded.Subject())
}

func TestPublishActivity_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	sink := NewActivityEventsKafka(NewProducerWithWriter(&fakeWriter{err: boom}, "activity"))

	err := sink.PublishActivity(context.Background(), repoTarget, sampleItem)
	require.ErrorIs(t, err, boom)
}

func TestCloudEventHandler_DecodesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	sink := NewActivityEventsKafka(NewProducerWithWriter(w, "activity"))
	require.NoError(t, sink.PublishActivity(context.Background(), repoTarget, sampleItem))

	var got ceevent.Event
	h := CloudEventHandler(func(_ context.Context, key []byte, ev ceevent.Event) error {
		assert.Equal(t, "42", string(key))
		got = ev
		return nil
	})
	require.NoError(t, h(context.Background(), w.msgs[0].Key, w.msgs[0].Value))
	assert.Equal(t, "com.github.IssuesEvent", got.Type())
}

func TestCloudEventHandler_RejectsGarbage(t *testing.T) {
	h := CloudEventHandler(func(context.Context, []byte, ceevent.Event) error {
		t.Fatal("handler must not run")
		return nil
	})
	require.Error(t, h(context.Background(), nil, []byte("not json")))
}
