package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoEvents = `[
 {"id":"12","type":"PushEvent","actor":{"login":"octocat"},"repo":{"name":"octo/hello"},"payload":{"ref":"main"},"created_at":"2024-01-02T03:04:05Z"},
 {"id":"11","type":"IssuesEvent","actor":{"login":"hubot"},"repo":{"name":"octo/hello"},"payload":{},"created_at":"2024-01-02T03:00:00Z"}
]`

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Token: "s3cr3t"}, nil)
	require.NoError(t, err)
	return c
}

func TestFetch_ParsesItemsAndMeta(t *testing.T) {
	var seen *http.Request
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("X-Poll-Interval", "65")
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/octo/hello/events?page=2>; rel="next"`, r.Host))
		_, _ = w.Write([]byte(twoEvents))
	})

	target := activity.Target{Kind: activity.KindRepository, User: "octo", Repo: "hello"}
	page, err := c.Fetch(context.Background(), target, `"old"`)
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, "/repos/octo/hello/events", seen.URL.Path)
	assert.Equal(t, `"old"`, seen.Header.Get("If-None-Match"))
	assert.Equal(t, "token s3cr3t", seen.Header.Get("Authorization"))
	assert.Equal(t, DefaultUserAgent, seen.Header.Get("User-Agent"))

	require.Len(t, page.Items, 2)
	assert.Equal(t, uint64(12), page.Items[0].ID)
	assert.Equal(t, "PushEvent", page.Items[0].Type)
	assert.Equal(t, "octocat", page.Items[0].Actor)
	assert.Equal(t, "octo/hello", page.Items[0].Repo)
	assert.JSONEq(t, `{"ref":"main"}`, string(page.Items[0].Payload))
	assert.Equal(t, uint64(11), page.Items[1].ID)

	assert.Equal(t, `"abc"`, page.Meta.Validator)
	assert.Equal(t, 65, page.Meta.PollInterval)
	assert.True(t, page.Meta.HasNext)
	assert.Equal(t, 2, page.Meta.NextPage)
}

func TestFetch_NotModified(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("X-Poll-Interval", "90")
		w.WriteHeader(http.StatusNotModified)
	})

	page, err := c.Fetch(context.Background(), activity.Target{}, `"abc"`)
	require.ErrorIs(t, err, activity.ErrNotModified)
	assert.Equal(t, `"abc"`, page.Meta.Validator)
	assert.Equal(t, 90, page.Meta.PollInterval)
}

func TestFetch_EmptyBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	page, err := c.Fetch(context.Background(), activity.Target{}, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.Meta.HasNext)
}

func TestFetch_ServerErrorIsReturned(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})

	_, err := c.Fetch(context.Background(), activity.Target{}, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, activity.ErrNotModified)
}

func TestFetch_NoValidatorHeaderWhenEmpty(t *testing.T) {
	var got string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("If-None-Match")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Fetch(context.Background(), activity.Target{}, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetch_EndpointPerKind(t *testing.T) {
	cases := []struct {
		target activity.Target
		path   string
	}{
		{activity.Target{Kind: activity.KindGlobal}, "/events"},
		{activity.Target{Kind: activity.KindOrganization, Org: "acme"}, "/orgs/acme/events"},
		{activity.Target{Kind: activity.KindUser, User: "octo"}, "/users/octo/events"},
		{activity.Target{Kind: activity.KindRepository, User: "octo", Repo: "hello"}, "/repos/octo/hello/events"},
	}
	for _, tc := range cases {
		t.Run(tc.target.Kind.String(), func(t *testing.T) {
			var path string
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				_, _ = w.Write([]byte(`[]`))
			})
			_, err := c.Fetch(context.Background(), tc.target, "")
			require.NoError(t, err)
			assert.Equal(t, tc.path, path)
		})
	}
}

func TestFetchNext_RequestsFollowingPage(t *testing.T) {
	var page, inm string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		page = r.URL.Query().Get("page")
		inm = r.Header.Get("If-None-Match")
		_, _ = w.Write([]byte(twoEvents))
	})

	prev := activity.Page{Meta: activity.PageMeta{HasNext: true, NextPage: 3, Validator: `"abc"`}}
	got, err := c.FetchNext(context.Background(), activity.Target{}, prev)
	require.NoError(t, err)
	assert.Equal(t, "3", page)
	assert.Empty(t, inm)
	assert.Len(t, got.Items, 2)
	assert.False(t, got.Meta.HasNext)
}

func TestFetchNext_WithoutNextIsEmpty(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	})

	got, err := c.FetchNext(context.Background(), activity.Target{}, activity.Page{})
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestConvert_SkipsNonNumericIDs(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"x1","type":"PushEvent"},{"id":"7","type":"WatchEvent"}]`))
	})

	page, err := c.Fetch(context.Background(), activity.Target{}, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, uint64(7), page.Items[0].ID)
}
