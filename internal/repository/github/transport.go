package github

import (
	"context"
	"net/http"
)

type validatorKey struct{}

func withValidator(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, validatorKey{}, v)
}

// headerTransport attaches auth, user agent and the conditional-request
// validator carried on the request context.
type headerTransport struct {
	base      http.RoundTripper
	token     string
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if t.userAgent != "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	if t.token != "" {
		r.Header.Set("Authorization", "token "+t.token)
	}
	if v, ok := req.Context().Value(validatorKey{}).(string); ok && v != "" {
		r.Header.Set("If-None-Match", v)
	}
	return t.base.RoundTrip(r)
}
