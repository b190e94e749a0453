// Package session owns the UI-facing state of one query and the polling
// loop that drives it to completion.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/metrics"
	"github.com/doeshing/pdqa/internal/pkg/logger"
	"github.com/doeshing/pdqa/internal/ports"
)

// Options tunes a Controller. Zero values fall back to defaults.
type Options struct {
	Interval time.Duration
	Logger   ports.Logger
	// OnChange receives every published state snapshot, in order.
	OnChange func(domain.SessionState)
}

// Controller mediates between UI actions and the query client. At most one
// poll timer is armed per controller, and at most one backend request is
// outstanding on behalf of the polling loop.
type Controller struct {
	client    ports.QueryClient
	scheduler ports.Scheduler
	interval  time.Duration
	logger    ports.Logger
	onChange  func(domain.SessionState)

	// loopCtx carries the requests issued by the polling loop; Close cancels it.
	loopCtx    context.Context
	cancelLoop context.CancelFunc

	mu        sync.Mutex
	state     domain.SessionState
	epoch     uint64
	pending   int
	closed    bool
	completed map[string]bool
	trackedID string
	timerGen  uint64
	stopTimer func()
	changed   chan struct{}
	seq       uint64

	notifyMu  sync.Mutex
	delivered uint64
}

// New builds a controller. The scheduler decides how ticks are delivered;
// production code passes a ticker-backed scheduler.
func New(client ports.QueryClient, scheduler ports.Scheduler, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = domain.DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		client:     client,
		scheduler:  scheduler,
		interval:   opts.Interval,
		logger:     opts.Logger,
		onChange:   opts.OnChange,
		loopCtx:    ctx,
		cancelLoop: cancel,
		completed:  make(map[string]bool),
		changed:    make(chan struct{}),
	}
}

// Submit sends a new question. It returns the backend-assigned query id, or
// false when the submission failed or the session was torn down meanwhile.
func (c *Controller) Submit(ctx context.Context, text string) (string, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", false
	}
	c.epoch++
	epoch := c.epoch
	c.pending++
	c.state.Loading = true
	c.state.Error = ""
	snap, seq := c.publishLocked()
	c.mu.Unlock()
	c.notify(snap, seq)

	q, err := c.client.SubmitQuery(ctx, text)

	c.mu.Lock()
	c.pending--
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debug("discarding stale submit response", map[string]interface{}{"query_id": q.QueryID})
		return "", false
	}

	if err != nil {
		c.state.Loading = false
		c.state.Polling = false
		c.state.Error = userMessage(err, domain.MsgSubmitFailed)
		c.reconcileLocked()
		snap, seq = c.publishLocked()
		c.mu.Unlock()
		c.logger.Error("submit query failed", err, nil)
		c.notify(snap, seq)
		return "", false
	}

	delete(c.completed, q.QueryID)
	c.applyResultLocked(q)
	c.state.Loading = false
	c.reconcileLocked()
	snap, seq = c.publishLocked()
	c.mu.Unlock()

	c.logger.Info("query submitted", map[string]interface{}{"query_id": q.QueryID, "is_complete": q.IsComplete})
	c.notify(snap, seq)
	return q.QueryID, true
}

// FetchStatus fetches the current state of queryID and stores it as the
// session result. On failure the previous result is kept and polling stops.
func (c *Controller) FetchStatus(ctx context.Context, queryID string) (*domain.Query, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false
	}
	epoch := c.epoch
	c.pending++
	c.mu.Unlock()

	q, err := c.client.GetQuery(ctx, queryID)

	c.mu.Lock()
	c.pending--
	if c.closed || epoch != c.epoch {
		c.mu.Unlock()
		c.logger.Debug("discarding stale status response", map[string]interface{}{"query_id": queryID})
		return nil, false
	}

	if err != nil {
		c.state.Polling = false
		c.state.Error = userMessage(err, domain.MsgStatusFailed)
		c.reconcileLocked()
		snap, seq := c.publishLocked()
		c.mu.Unlock()
		c.logger.Error("get query status failed", err, map[string]interface{}{"query_id": queryID})
		c.notify(snap, seq)
		return nil, false
	}

	c.applyResultLocked(q)
	c.reconcileLocked()
	snap, seq := c.publishLocked()
	c.mu.Unlock()

	c.notify(snap, seq)
	fetched := cloneQuery(q)
	return &fetched, true
}

// Resume starts tracking an identifier issued elsewhere (a shared link)
// without submitting. Responses still pending for the previous identifier
// are discarded.
func (c *Controller) Resume(ctx context.Context, queryID string) (*domain.Query, bool) {
	queryID = strings.TrimSpace(queryID)
	if queryID == "" {
		return nil, false
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false
	}
	c.epoch++
	c.mu.Unlock()
	return c.FetchStatus(ctx, queryID)
}

// Close tears the session down: the poll timer is cancelled, requests issued
// by the polling loop are aborted, and late responses are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.reconcileLocked()
	close(c.changed)
	c.mu.Unlock()
	c.cancelLoop()
}

// State returns a snapshot of the session state.
func (c *Controller) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until the session is idle (neither loading nor polling), the
// session is closed, or ctx is done.
func (c *Controller) Wait(ctx context.Context) (domain.SessionState, error) {
	for {
		c.mu.Lock()
		snap := c.snapshotLocked()
		closed := c.closed
		ch := c.changed
		c.mu.Unlock()

		if snap.Idle() {
			return snap, nil
		}
		if closed {
			return snap, domain.ErrSessionClosed
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen || !c.state.Polling || c.state.Result == nil || c.pending > 0 {
		c.mu.Unlock()
		return
	}
	queryID := c.state.Result.QueryID
	c.mu.Unlock()

	metrics.IncrementPollTicks()
	c.FetchStatus(c.loopCtx, queryID)
}

// applyResultLocked stores q and derives the polling flag. Completion is
// sticky per query id: a pending reply for a completed id keeps the
// completed result.
func (c *Controller) applyResultLocked(q domain.Query) {
	if !q.IsComplete && c.completed[q.QueryID] {
		c.state.Polling = false
		return
	}
	stored := cloneQuery(q)
	c.state.Result = &stored
	if q.IsComplete {
		c.completed[q.QueryID] = true
	}
	c.state.Polling = !q.IsComplete && !c.completed[q.QueryID]
}

// reconcileLocked arms, keeps, or tears down the poll timer so that exactly
// one timer exists while polling a known id and none otherwise.
func (c *Controller) reconcileLocked() {
	want := !c.closed && c.state.Polling && c.state.Result != nil && c.state.Result.QueryID != ""
	id := ""
	if want {
		id = c.state.Result.QueryID
	}

	if c.stopTimer != nil && (!want || id != c.trackedID) {
		c.stopTimer()
		c.stopTimer = nil
		c.trackedID = ""
		metrics.DecrementActiveTimers()
		c.logger.Debug("poll timer stopped", nil)
	}

	if want && c.stopTimer == nil {
		c.timerGen++
		gen := c.timerGen
		c.trackedID = id
		c.stopTimer = c.scheduler.Every(c.interval, func() { c.tick(gen) })
		metrics.IncrementActiveTimers()
		c.logger.Debug("poll timer armed", map[string]interface{}{"query_id": id, "interval": c.interval.String()})
	}
}

func (c *Controller) publishLocked() (domain.SessionState, uint64) {
	close(c.changed)
	c.changed = make(chan struct{})
	c.seq++
	return c.snapshotLocked(), c.seq
}

func (c *Controller) notify(snap domain.SessionState, seq uint64) {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if seq <= c.delivered {
		return
	}
	c.delivered = seq
	c.onChange(snap)
}

func (c *Controller) snapshotLocked() domain.SessionState {
	snap := c.state
	if c.state.Result != nil {
		q := cloneQuery(*c.state.Result)
		snap.Result = &q
	}
	return snap
}

func cloneQuery(q domain.Query) domain.Query {
	out := q
	if q.Sources != nil {
		out.Sources = append([]string(nil), q.Sources...)
	}
	if q.AnswerText != nil {
		answer := *q.AnswerText
		out.AnswerText = &answer
	}
	return out
}

func userMessage(err error, fallback string) string {
	var terr *domain.TransportError
	if errors.As(err, &terr) {
		return terr.UserMessage()
	}
	return fallback
}
