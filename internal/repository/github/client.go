package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	gh "github.com/google/go-github/v24/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	DefaultUserAgent = "gh-events go module"
	DefaultTimeout   = 5 * time.Second
	defaultPerPage   = 100

	headerPollInterval = "X-Poll-Interval"
	headerETag         = "ETag"
)

type Config struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration
	PerPage   int
}

// Client reads the GitHub events API for one of the four feed scopes.
type Client struct {
	gh      *gh.Client
	perPage int
	log     *zap.Logger
}

var _ activity.Transport = (*Client)(nil)

func New(cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}

	hc := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			base:      otelhttp.NewTransport(http.DefaultTransport),
			token:     cfg.Token,
			userAgent: cfg.UserAgent,
		},
	}
	c := gh.NewClient(hc)
	c.UserAgent = cfg.UserAgent
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		c.BaseURL = u
	}

	return &Client{
		gh:      c,
		perPage: cfg.PerPage,
		log:     log.With(zap.String("component", "github")),
	}, nil
}

func (c *Client) Fetch(ctx context.Context, t activity.Target, validator string) (activity.Page, error) {
	if validator != "" {
		ctx = withValidator(ctx, validator)
	}
	return c.list(ctx, t, &gh.ListOptions{PerPage: c.perPage})
}

func (c *Client) FetchNext(ctx context.Context, t activity.Target, prev activity.Page) (activity.Page, error) {
	if !prev.Meta.HasNext || prev.Meta.NextPage == 0 {
		return activity.Empty(activity.PageMeta{}), nil
	}
	return c.list(ctx, t, &gh.ListOptions{Page: prev.Meta.NextPage, PerPage: c.perPage})
}

func (c *Client) list(ctx context.Context, t activity.Target, opt *gh.ListOptions) (activity.Page, error) {
	var (
		events []*gh.Event
		resp   *gh.Response
		err    error
	)
	switch t.Kind {
	case activity.KindOrganization:
		events, resp, err = c.gh.Activity.ListEventsForOrganization(ctx, t.Org, opt)
	case activity.KindRepository:
		events, resp, err = c.gh.Activity.ListRepositoryEvents(ctx, t.User, t.Repo, opt)
	case activity.KindUser:
		events, resp, err = c.gh.Activity.ListEventsPerformedByUser(ctx, t.User, false, opt)
	default:
		events, resp, err = c.gh.Activity.ListEvents(ctx, opt)
	}

	meta := metaFrom(resp)
	if resp != nil && resp.StatusCode == http.StatusNotModified {
		return activity.Page{Meta: meta}, activity.ErrNotModified
	}
	if err != nil {
		if isRateLimited(err) {
			c.log.Warn("rate limited", zap.String("target", t.String()))
		}
		return activity.Page{}, err
	}
	return activity.Page{Items: c.convert(events), Meta: meta}, nil
}

func (c *Client) convert(events []*gh.Event) []activity.Item {
	out := make([]activity.Item, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		id, err := strconv.ParseUint(e.GetID(), 10, 64)
		if err != nil {
			c.log.Warn("skipping event with non-numeric id", zap.String("id", e.GetID()), zap.String("type", e.GetType()))
			continue
		}
		it := activity.Item{
			ID:        id,
			Type:      e.GetType(),
			Actor:     e.GetActor().GetLogin(),
			Repo:      e.GetRepo().GetName(),
			CreatedAt: e.GetCreatedAt(),
		}
		if e.RawPayload != nil {
			it.Payload = append([]byte(nil), (*e.RawPayload)...)
		}
		out = append(out, it)
	}
	return out
}

func metaFrom(resp *gh.Response) activity.PageMeta {
	if resp == nil || resp.Response == nil {
		return activity.PageMeta{}
	}
	meta := activity.PageMeta{
		Validator: resp.Header.Get(headerETag),
		NextPage:  resp.NextPage,
		HasNext:   resp.NextPage > 0,
	}
	if raw := resp.Header.Get(headerPollInterval); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			meta.PollInterval = n
		}
	}
	return meta
}

func isRateLimited(err error) bool {
	var rl *gh.RateLimitError
	var abuse *gh.AbuseRateLimitError
	return errors.As(err, &rl) || errors.As(err, &abuse)
}
