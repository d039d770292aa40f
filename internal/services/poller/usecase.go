package poller

import (
	"context"
	"time"

	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/NordCoder/Feedwatch/internal/domain/state"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhasePaginating
	PhaseDispatching
	PhasePersisting
	PhaseWaiting
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhasePaginating:
		return "paginating"
	case PhaseDispatching:
		return "dispatching"
	case PhasePersisting:
		return "persisting"
	case PhaseWaiting:
		return "waiting"
	default:
		return "idle"
	}
}

type Hooks struct {
	Phase   func(Phase)
	Advance func(id uint64)
}

type CycleResult struct {
	Fetched    int
	Pages      int
	Truncated  bool
	Dispatched []activity.Item
}

type Usecase struct {
	Fetcher   *Fetcher
	Paginator *Paginator
	Engine    *Engine
}

func NewUC(f *Fetcher, p *Paginator, e *Engine) *Usecase {
	return &Usecase{Fetcher: f, Paginator: p, Engine: e}
}

// Cycle runs fetch -> paginate -> dispatch once and returns the advanced
// state. On error st comes back unchanged and nothing was dispatched.
func (u *Usecase) Cycle(ctx context.Context, st state.State, h Hooks) (state.State, CycleResult, error) {
	var res CycleResult

	tr := otel.Tracer("poller.uc")
	ctx, span := tr.Start(ctx, "poller.cycle",
		trace.WithAttributes(
			attribute.String("poll.target", u.Fetcher.Target.String()),
			attribute.Int64("poll.last_event_id", int64(st.LastEventID)),
		),
	)
	defer span.End()
	ctx = activity.WithTarget(ctx, u.Fetcher.Target)

	h.phase(PhaseFetching)
	page, err := u.Fetcher.Fetch(ctx, st.Validator)
	if err != nil {
		span.RecordError(err)
		return st, res, err
	}
	st = ApplyMeta(st, page.Meta)

	h.phase(PhasePaginating)
	col := u.Paginator.Collect(ctx, page, u.Fetcher.Next, st.LastEventID)
	res.Fetched, res.Pages, res.Truncated = len(col.Items), col.Pages, col.Truncated

	h.phase(PhaseDispatching)
	st.LastEventID, res.Dispatched = u.Engine.Process(ctx, col.Items, st.LastEventID, h.Advance)

	span.SetAttributes(
		attribute.Int("poll.fetched", res.Fetched),
		attribute.Int("poll.pages", res.Pages),
		attribute.Int("poll.dispatched", len(res.Dispatched)),
	)
	return st, res, nil
}

// ApplyMeta folds response metadata into the state: a new validator replaces
// the old one and a server interval hint (seconds) replaces the cadence.
func ApplyMeta(st state.State, meta activity.PageMeta) state.State {
	if meta.Validator != "" {
		st.Validator = meta.Validator
	}
	if meta.PollInterval > 0 {
		st.PollIntervalMillis = uint64(time.Duration(meta.PollInterval) * time.Second / time.Millisecond)
	}
	return st
}

func (h Hooks) phase(p Phase) {
	if h.Phase != nil {
		h.Phase(p)
	}
}
