package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidTarget = errors.New("invalid poll target")
	// ErrNotModified is returned by a Transport together with the response
	// metadata when the conditional request matched the cached validator.
	ErrNotModified = errors.New("not modified")
)

type Kind int

const (
	KindGlobal Kind = iota
	KindOrganization
	KindUser
	KindRepository
)

func (k Kind) String() string {
	switch k {
	case KindOrganization:
		return "org"
	case KindUser:
		return "user"
	case KindRepository:
		return "repo"
	default:
		return "global"
	}
}

// Target is the remote scope a poller queries. It never changes for the
// lifetime of a runner.
type Target struct {
	Kind Kind   `json:"kind"`
	Org  string `json:"org,omitempty"`
	User string `json:"user,omitempty"`
	Repo string `json:"repo,omitempty"`
}

// NewTarget resolves a target from the raw selection. An organization wins
// over user/repo, user+repo selects a repository, user alone a user feed and
// an empty selection the public global feed.
func NewTarget(org, user, repo string) (Target, error) {
	org, user, repo = strings.TrimSpace(org), strings.TrimSpace(user), strings.TrimSpace(repo)
	switch {
	case org != "":
		return Target{Kind: KindOrganization, Org: org}, nil
	case user != "" && repo != "":
		return Target{Kind: KindRepository, User: user, Repo: repo}, nil
	case user != "":
		return Target{Kind: KindUser, User: user}, nil
	case repo != "":
		return Target{}, fmt.Errorf("%w: repo %q requires an owner (user)", ErrInvalidTarget, repo)
	default:
		return Target{Kind: KindGlobal}, nil
	}
}

func (t Target) String() string {
	switch t.Kind {
	case KindOrganization:
		return "orgs/" + t.Org
	case KindUser:
		return "users/" + t.User
	case KindRepository:
		return "repos/" + t.User + "/" + t.Repo
	default:
		return "events"
	}
}

type Item struct {
	ID        uint64          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	Repo      string          `json:"repo,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type PageMeta struct {
	Validator    string
	PollInterval int // seconds, 0 when the server sent no hint
	NextPage     int
	HasNext      bool
}

// Page is one response of the feed, newest item first.
type Page struct {
	Items []Item
	Meta  PageMeta
}

// Empty is the normalized form of a "not modified" or blank response.
func Empty(meta PageMeta) Page {
	meta.HasNext = false
	meta.NextPage = 0
	return Page{Items: []Item{}, Meta: meta}
}

type targetKey struct{}

// WithTarget tags ctx with the feed a dispatched item came from.
func WithTarget(ctx context.Context, t Target) context.Context {
	return context.WithValue(ctx, targetKey{}, t)
}

func TargetFrom(ctx context.Context) (Target, bool) {
	t, ok := ctx.Value(targetKey{}).(Target)
	return t, ok
}
