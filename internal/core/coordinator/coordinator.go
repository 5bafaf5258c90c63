package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
)

const tickKey = "tick"

// ErrStopped is returned by Refresh once the coordinator has been stopped.
var ErrStopped = errors.New("coordinator stopped")

// Remote is the part of the FileFlows client the coordinator depends on.
type Remote interface {
	Resources() []fileflows.Resource
	Fetch(ctx context.Context, r fileflows.Resource) (interface{}, error)
	Execute(ctx context.Context, cmd fileflows.Command) error
}

// Recorder receives tick, fetch and command outcomes.
type Recorder interface {
	RecordTick(success bool, duration time.Duration)
	RecordFetch(resource fileflows.Resource, result string)
	RecordCommand(command fileflows.CommandName, success bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordTick(bool, time.Duration)            {}
func (nopRecorder) RecordFetch(fileflows.Resource, string)    {}
func (nopRecorder) RecordCommand(fileflows.CommandName, bool) {}

// Options tune polling.
type Options struct {
	PollInterval time.Duration
	FetchTimeout time.Duration
	TickTimeout  time.Duration
	Concurrency  int
}

// DefaultOptions returns the polling defaults.
func DefaultOptions() Options {
	return Options{
		PollInterval: 30 * time.Second,
		FetchTimeout: fileflows.DefaultTimeout,
		TickTimeout:  60 * time.Second,
		Concurrency:  4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = d.FetchTimeout
	}
	if o.TickTimeout <= 0 {
		o.TickTimeout = d.TickTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	return o
}

// Status describes the health of the poll loop.
type Status struct {
	Available           bool      `json:"available"`
	LastAttempt         time.Time `json:"last_attempt,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Ticks               uint64    `json:"ticks"`
	FailedTicks         uint64    `json:"failed_ticks"`
}

// Update is delivered to subscribers after every tick. Published is false
// when the tick failed and the previous Snapshot was kept.
type Update struct {
	Snapshot  *Snapshot
	Status    Status
	Err       error
	Published bool
}

// TickError reports a tick in which every attempted fetch failed with a
// connection failure. Ticks whose fetches all fail for other reasons still
// publish, carrying stale or default values.
type TickError struct {
	Errors map[fileflows.Resource]error
}

func (e *TickError) Error() string {
	names := make([]string, 0, len(e.Errors))
	for r := range e.Errors {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return fmt.Sprintf("update failed: all %d resource fetches failed (%s)", len(names), strings.Join(names, ", "))
}

// Unwrap exposes the per-resource errors to errors.Is and errors.As.
func (e *TickError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		errs = append(errs, err)
	}
	return errs
}

type goodValue struct {
	value interface{}
	at    time.Time
}

type fetchResult struct {
	resource fileflows.Resource
	value    interface{}
	absent   bool
	err      error
}

// Coordinator polls FileFlows and publishes one Snapshot per tick.
type Coordinator struct {
	remote   Remote
	opts     Options
	logger   *logrus.Logger
	recorder Recorder
	now      func() time.Time

	current atomic.Pointer[Snapshot]
	group   singleflight.Group

	mu       sync.RWMutex
	lastGood map[fileflows.Resource]goodValue
	status   Status
	seq      uint64

	subsMu sync.RWMutex
	subs   []func(Update)

	runMu     sync.Mutex
	scheduler *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a coordinator. It publishes an all-default Snapshot until the
// first tick completes.
func New(remote Remote, opts Options, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		remote:   remote,
		opts:     opts.withDefaults(),
		logger:   logger,
		recorder: nopRecorder{},
		now:      time.Now,
		lastGood: make(map[fileflows.Resource]goodValue),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.current.Store(emptySnapshot())
	return c
}

// SetRecorder installs a Recorder. Call before Start.
func (c *Coordinator) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	c.recorder = r
}

// Subscribe registers fn to be called after every tick. fn runs on the tick
// goroutine and must not call Refresh.
func (c *Coordinator) Subscribe(fn func(Update)) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs = append(c.subs, fn)
}

// Snapshot returns the currently published Snapshot. It is never nil.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.current.Load()
}

// Metrics derives metrics from the current Snapshot.
func (c *Coordinator) Metrics() Metrics {
	return Derive(c.Snapshot())
}

// Status returns a copy of the poll loop status.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Available reports whether the last tick succeeded.
func (c *Coordinator) Available() bool {
	return c.Status().Available
}

// Refresh runs a tick, or joins the one already in flight, and waits for it.
// On failure the previous Snapshot is returned along with the error.
func (c *Coordinator) Refresh(ctx context.Context) (*Snapshot, error) {
	if c.ctx.Err() != nil {
		return c.Snapshot(), ErrStopped
	}
	ch := c.group.DoChan(tickKey, c.runTick)
	select {
	case res := <-ch:
		if res.Err != nil {
			return c.Snapshot(), res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

// RequestRefresh starts a tick in the background unless one is running.
func (c *Coordinator) RequestRefresh() {
	if c.ctx.Err() != nil {
		return
	}
	c.group.DoChan(tickKey, c.runTick)
}

func (c *Coordinator) runTick() (interface{}, error) {
	return c.tick(c.ctx)
}

func (c *Coordinator) tick(parent context.Context) (*Snapshot, error) {
	start := c.now()
	ctx, cancel := context.WithTimeout(parent, c.opts.TickTimeout)
	defer cancel()

	resources := c.remote.Resources()
	results := make([]fetchResult, len(resources))

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i, r := range resources {
		i, r := i, r
		g.Go(func() error {
			results[i] = c.fetch(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	snap, status, err := c.reduce(results, start)
	c.recorder.RecordTick(err == nil, c.now().Sub(start))

	published := err == nil
	if published {
		c.current.Store(snap)
		c.logger.WithFields(logrus.Fields{
			"tick":     snap.Tick(),
			"duration": c.now().Sub(start),
		}).Debug("FileFlows snapshot published")
	} else {
		snap = c.Snapshot()
		c.logger.WithError(err).WithField("consecutive_failures", status.ConsecutiveFailures).
			Error("FileFlows update failed")
	}

	c.notify(Update{Snapshot: snap, Status: status, Err: err, Published: published})
	return snap, err
}

func (c *Coordinator) fetch(ctx context.Context, r fileflows.Resource) (res fetchResult) {
	res.resource = r
	defer func() {
		if p := recover(); p != nil {
			res.value = nil
			res.err = fmt.Errorf("fetch %s: panic: %v", r, p)
		}
	}()

	fctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	raw, err := c.remote.Fetch(fctx, r)
	if err != nil {
		res.err = err
		return res
	}
	res.absent = raw == nil
	res.value, res.err = r.Decode(raw)
	return res
}

// reduce assembles the next Snapshot. Failed resources keep their
// last-known-good value, or fall back to the default.
func (c *Coordinator) reduce(results []fetchResult, start time.Time) (*Snapshot, Status, error) {
	now := c.now()
	fetched := make(map[fileflows.Resource]fetchResult, len(results))
	failures := make(map[fileflows.Resource]error)
	for _, res := range results {
		fetched[res.resource] = res
		if res.err != nil {
			failures[res.resource] = res.err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Ticks++
	c.status.LastAttempt = start

	if unreachable(results, failures) {
		err := &TickError{Errors: failures}
		for r, ferr := range failures {
			c.recorder.RecordFetch(r, "error")
			c.logFetchFailure(r, ferr)
		}
		c.status.Available = false
		c.status.FailedTicks++
		c.status.ConsecutiveFailures++
		c.status.LastError = err.Error()
		return nil, c.status, err
	}

	c.seq++
	snap := &Snapshot{
		tick:      c.seq,
		fetchedAt: now,
		values:    make(map[fileflows.Resource]interface{}),
		states:    make(map[fileflows.Resource]ResourceState),
	}

	for _, r := range fileflows.AllResources() {
		res, ok := fetched[r]
		switch {
		case !ok:
			snap.values[r] = r.Default()
			snap.states[r] = ResourceState{Source: SourceSkipped}
		case res.err == nil:
			source := SourceFresh
			result := "fresh"
			if res.absent {
				source = SourceAbsent
				result = "absent"
			}
			snap.values[r] = res.value
			snap.states[r] = ResourceState{Source: source, UpdatedAt: now}
			c.lastGood[r] = goodValue{value: res.value, at: now}
			c.recorder.RecordFetch(r, result)
		default:
			c.recorder.RecordFetch(r, "error")
			c.logFetchFailure(r, res.err)
			if good, ok := c.lastGood[r]; ok {
				snap.values[r] = good.value
				snap.states[r] = ResourceState{Source: SourceStale, Error: res.err.Error(), UpdatedAt: good.at}
			} else {
				snap.values[r] = r.Default()
				snap.states[r] = ResourceState{Source: SourceDefault, Error: res.err.Error()}
			}
		}
	}

	c.status.Available = true
	c.status.LastSuccess = now
	c.status.LastError = ""
	c.status.ConsecutiveFailures = 0
	return snap, c.status, nil
}

// unreachable reports whether every fetch of the tick failed to reach
// FileFlows at all.
func unreachable(results []fetchResult, failures map[fileflows.Resource]error) bool {
	if len(results) == 0 || len(failures) != len(results) {
		return false
	}
	for _, err := range failures {
		if !fileflows.IsConnectionError(err) {
			return false
		}
	}
	return true
}

func (c *Coordinator) logFetchFailure(r fileflows.Resource, err error) {
	entry := c.logger.WithField("resource", r).WithError(err)
	switch fileflows.KindOf(err) {
	case fileflows.KindConnection, fileflows.KindAuth:
		entry.Warn("FileFlows resource fetch failed")
	default:
		entry.Debug("FileFlows resource fetch failed")
	}
}

func (c *Coordinator) notify(u Update) {
	c.subsMu.RLock()
	subs := make([]func(Update), len(c.subs))
	copy(subs, c.subs)
	c.subsMu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if p := recover(); p != nil {
					c.logger.WithField("panic", p).Error("Snapshot subscriber panicked")
				}
			}()
			fn(u)
		}()
	}
}

// Restore seeds the last-known-good values from a previously saved Snapshot
// and publishes it as restored data. Availability is left untouched, and a
// Snapshot is not restored over one produced by a real tick.
func (c *Coordinator) Restore(saved *Snapshot) bool {
	if saved == nil {
		return false
	}

	c.mu.Lock()
	if c.seq > 0 {
		c.mu.Unlock()
		return false
	}

	snap := emptySnapshot()
	snap.fetchedAt = saved.fetchedAt
	for _, r := range fileflows.AllResources() {
		state := saved.State(r)
		switch state.Source {
		case SourceFresh, SourceAbsent, SourceStale, SourceRestored:
		default:
			continue
		}
		value := saved.value(r)
		at := state.UpdatedAt
		if at.IsZero() {
			at = saved.fetchedAt
		}
		c.lastGood[r] = goodValue{value: value, at: at}
		snap.values[r] = value
		snap.states[r] = ResourceState{Source: SourceRestored, UpdatedAt: at}
	}
	c.mu.Unlock()

	c.current.Store(snap)
	c.logger.WithField("fetched_at", saved.fetchedAt).Info("Restored FileFlows snapshot from state file")
	return true
}
