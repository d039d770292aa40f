package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NordCoder/Feedwatch/internal/domain/state"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_cycles_total", Help: "Completed poll cycles",
	}, []string{"target"})
	mErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_errors_total", Help: "Errors in the poll loop",
	}, []string{"target", "kind"})
	mDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_items_dispatched_total", Help: "Activity items dispatched to the bus",
	}, []string{"target"})
	mPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poller_pages_fetched_total", Help: "Feed pages fetched",
	}, []string{"target"})
	mInterval = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "poller_interval_seconds", Help: "Current wait between cycles",
	}, []string{"target"})
	mLastEvent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "poller_last_event_id", Help: "High-water mark of dispatched ids",
	}, []string{"target"})
	mCycleDur = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "poller_cycle_duration_seconds", Help: "Poll cycle duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})
)

// Runner drives one target: fetch, paginate, dispatch, persist, wait and
// again. Only one cycle is ever in flight.
type Runner struct {
	Log   *zap.Logger
	UC    *Usecase
	Store state.Store
	FP    state.Fingerprint

	ID     string
	target string

	mu sync.Mutex
	st state.State

	phase   atomic.Int32
	trigger chan struct{}
}

func New(log *zap.Logger, uc *Usecase, store state.Store, fp state.Fingerprint, interval time.Duration) *Runner {
	st := state.Initial()
	if interval > 0 {
		st.PollIntervalMillis = uint64(interval / time.Millisecond)
	}
	target := uc.Fetcher.Target.String()
	id := uuid.NewString()
	return &Runner{
		Log:     log.With(zap.String("component", "poller"), zap.String("target", target), zap.String("runner_id", id)),
		ID:      id,
		UC:      uc,
		Store:   store,
		FP:      fp,
		target:  target,
		st:      st,
		trigger: make(chan struct{}, 1),
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.restore(ctx)

	for {
		r.tick(ctx)

		wait := r.Interval()
		r.setPhase(PhaseWaiting)
		mInterval.WithLabelValues(r.target).Set(wait.Seconds())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-r.trigger:
			timer.Stop()
			r.Log.Debug("wait cancelled by trigger")
		case <-timer.C:
		}
	}
}

// Trigger cancels the pending wait and starts a cycle right away. A trigger
// that arrives mid-cycle is kept and runs once that cycle is done.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Runner) restore(ctx context.Context) {
	if r.Store == nil {
		return
	}
	loaded, ok, err := r.Store.Load(ctx, r.FP)
	if err != nil {
		mErrors.WithLabelValues(r.target, "persistence").Inc()
		r.Log.Error("load state", zap.Error(err))
		return
	}
	if !ok {
		r.Log.Info("no saved state, starting fresh")
		return
	}

	r.mu.Lock()
	r.st = r.st.Merge(loaded)
	st := r.st
	r.mu.Unlock()

	mLastEvent.WithLabelValues(r.target).Set(float64(st.LastEventID))
	r.Log.Info("state restored",
		zap.Uint64("last_event_id", st.LastEventID),
		zap.Uint64("poll_ms", st.PollIntervalMillis),
	)
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	defer func() { mCycleDur.WithLabelValues(r.target).Observe(time.Since(start).Seconds()) }()

	next, res, err := r.UC.Cycle(ctx, r.State(), Hooks{
		Phase:   r.setPhase,
		Advance: r.advance,
	})
	if err != nil {
		kind := "cycle"
		if errors.Is(err, ErrTransport) {
			kind = "transport"
		}
		mErrors.WithLabelValues(r.target, kind).Inc()
		r.Log.Warn("poll cycle failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.st = next
	r.mu.Unlock()

	mCycles.WithLabelValues(r.target).Inc()
	mPages.WithLabelValues(r.target).Add(float64(res.Pages))
	mDispatched.WithLabelValues(r.target).Add(float64(len(res.Dispatched)))
	if res.Truncated {
		mErrors.WithLabelValues(r.target, "pagination").Inc()
	}
	if len(res.Dispatched) > 0 {
		r.Log.Debug("dispatched",
			zap.Int("fetched", res.Fetched),
			zap.Int("pages", res.Pages),
			zap.Int("dispatched", len(res.Dispatched)),
			zap.Uint64("last_event_id", next.LastEventID),
		)
	}

	r.setPhase(PhasePersisting)
	if r.Store == nil {
		return
	}
	if err := r.Store.Save(ctx, r.FP, next); err != nil {
		mErrors.WithLabelValues(r.target, "persistence").Inc()
		r.Log.Error("save state", zap.Error(err))
	}
}

func (r *Runner) advance(id uint64) {
	r.mu.Lock()
	if id > r.st.LastEventID {
		r.st.LastEventID = id
	}
	r.mu.Unlock()
	mLastEvent.WithLabelValues(r.target).Set(float64(id))
}

func (r *Runner) State() state.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st
}

func (r *Runner) Interval() time.Duration {
	st := r.State()
	if st.PollIntervalMillis == 0 {
		return time.Duration(state.DefaultPollIntervalMillis) * time.Millisecond
	}
	return time.Duration(st.PollIntervalMillis) * time.Millisecond
}

func (r *Runner) Phase() Phase { return Phase(r.phase.Load()) }

func (r *Runner) setPhase(p Phase) { r.phase.Store(int32(p)) }

func (r *Runner) LastEventID() uint64 { return r.State().LastEventID }

func (r *Runner) Target() string { return r.target }

type Status struct {
	ID                 string `json:"id"`
	Target             string `json:"target"`
	Phase              string `json:"phase"`
	LastEventID        uint64 `json:"last_event_id"`
	Validator          string `json:"etag,omitempty"`
	PollIntervalMillis uint64 `json:"poll_interval_ms"`
}

func (r *Runner) Status() Status {
	st := r.State()
	return Status{
		ID:                 r.ID,
		Target:             r.target,
		Phase:              r.Phase().String(),
		LastEventID:        st.LastEventID,
		Validator:          st.Validator,
		PollIntervalMillis: uint64(r.Interval() / time.Millisecond),
	}
}
