// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package logs merges the log streams of every container of a pod into one
// time-ordered feed.
//
// One watcher goroutine per container pushes events into the queue of the
// current session. Flush is the only consumer: it drains the queue into the
// buffer, sorts the buffer by timestamp and publishes a snapshot unless the
// feed is paused. Attach, Flush, SetLive and the buffer accessors belong to a
// single goroutine (the UI loop) and must not be called concurrently.
package logs

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/confighub/cub-explorer/internal/instrumentation"
	"github.com/confighub/cub-explorer/pkg/cluster"
	"github.com/confighub/cub-explorer/pkg/resource"
)

const (
	DefaultSince     = 7 * 24 * time.Hour
	DefaultTailLines = 100
	DefaultQueueSize = 4096
)

// Streamer opens a follow stream for one container.
type Streamer interface {
	StreamLogs(ctx context.Context, kubeContext, namespace, pod, container string, opts cluster.LogOptions) (io.ReadCloser, error)
}

// Options bound the history requested when a stream opens.
type Options struct {
	// Since limits history by age; zero requests everything.
	Since time.Duration
	// TailLines limits history per container; zero requests everything.
	TailLines int64
	QueueSize int
}

// DefaultOptions are a week of history, at most 100 lines per container.
func DefaultOptions() Options {
	return Options{Since: DefaultSince, TailLines: DefaultTailLines, QueueSize: DefaultQueueSize}
}

func (o Options) streamOptions() cluster.LogOptions {
	opts := cluster.LogOptions{Follow: true, Timestamps: true}
	if o.Since > 0 {
		// The API takes whole seconds and rejects 0, so partial seconds round up.
		seconds := int64((o.Since + time.Second - 1) / time.Second)
		opts.SinceSeconds = &seconds
	}
	if o.TailLines > 0 {
		tail := o.TailLines
		opts.TailLines = &tail
	}
	return opts
}

// session is the set of watchers started by one Attach.
type session struct {
	key    string
	ctx    context.Context
	cancel context.CancelFunc
	queue  chan Event
}

// Aggregator owns the log session of the selected resource.
type Aggregator struct {
	streamer Streamer
	opts     Options
	logger   *zap.Logger
	metrics  *instrumentation.Metrics
	now      func() time.Time
	onFlush  func([]Event)

	// Owned by the UI goroutine.
	session  *session
	resource *resource.Resource
	buffer   []Event
	snapshot []Event
	live     bool
	dirty    bool

	mu    sync.Mutex
	tasks map[string]int
	wg    sync.WaitGroup
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithClock replaces time.Now, used for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithFlushHook is called by Flush with the events drained in that call,
// sorted by timestamp, whether or not the feed is live.
func WithFlushHook(fn func([]Event)) Option {
	return func(a *Aggregator) {
		a.onFlush = fn
	}
}

// NewAggregator returns a live aggregator with no session.
func NewAggregator(streamer Streamer, opts Options, options ...Option) *Aggregator {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	a := &Aggregator{
		streamer: streamer,
		opts:     opts,
		logger:   zap.NewNop(),
		now:      time.Now,
		live:     true,
		tasks:    make(map[string]int),
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Attach tears down the current session and starts one for r. Pods get a
// watcher per container; any other kind gets a single synthetic event.
func (a *Aggregator) Attach(ctx context.Context, r resource.Resource) {
	if a.session != nil {
		a.session.cancel()
		a.session = nil
	}
	a.resource = &r
	a.buffer = nil
	a.snapshot = nil
	a.dirty = false

	if !r.IsPod() {
		a.placeholder(fmt.Sprintf("No logs for %s %s", r.Kind, r.Name))
		return
	}

	containers := r.Containers()
	if len(containers) == 0 {
		a.placeholder(fmt.Sprintf("No containers in pod %s", r.Name))
		return
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		key:    r.Key(),
		ctx:    sctx,
		cancel: cancel,
		queue:  make(chan Event, a.opts.QueueSize),
	}
	a.session = s

	for _, c := range containers {
		a.taskStarted(s.key)
		a.wg.Add(1)
		go a.watch(s, r, c.Name)
	}
	a.logger.Debug("log session started",
		zap.String("pod", r.Name),
		zap.String("namespace", r.Namespace),
		zap.Int("containers", len(containers)))
}

func (a *Aggregator) placeholder(msg string) {
	ev := Event{Timestamp: a.now(), Message: msg, Synthetic: true}
	a.buffer = []Event{ev}
	a.snapshot = []Event{ev}
}

// Flush drains the queue, sorts the buffer and publishes it when live. It
// reports whether the snapshot changed.
func (a *Aggregator) Flush() bool {
	start := len(a.buffer)
	if s := a.session; s != nil {
	drain:
		for {
			select {
			case ev := <-s.queue:
				a.buffer = append(a.buffer, ev)
			default:
				break drain
			}
		}
	}

	if n := len(a.buffer) - start; n > 0 {
		var batch []Event
		if a.onFlush != nil {
			batch = slices.Clone(a.buffer[start:])
			slices.SortStableFunc(batch, byTimestamp)
		}
		slices.SortStableFunc(a.buffer, byTimestamp)
		a.metrics.RecordLogLines(context.Background(), n)
		a.dirty = true
		if batch != nil {
			a.onFlush(batch)
		}
	}

	if !a.live || !a.dirty {
		return false
	}
	a.publish()
	return true
}

func byTimestamp(x, y Event) int {
	return x.Timestamp.Compare(y.Timestamp)
}

func (a *Aggregator) publish() {
	a.snapshot = slices.Clone(a.buffer)
	a.dirty = false
}

// SetLive pauses or resumes publishing. Events keep buffering while paused;
// resuming publishes them at once.
func (a *Aggregator) SetLive(live bool) {
	a.live = live
	if live && a.dirty {
		a.publish()
	}
}

func (a *Aggregator) Live() bool {
	return a.live
}

// Snapshot is the last published feed. Callers must not modify it.
func (a *Aggregator) Snapshot() []Event {
	return a.snapshot
}

// Buffer is every event flushed in this session, published or not.
func (a *Aggregator) Buffer() []Event {
	return a.buffer
}

// Resource is the attached resource, or nil.
func (a *Aggregator) Resource() *resource.Resource {
	return a.resource
}

// LiveTasks counts running watchers started for the resource key.
func (a *Aggregator) LiveTasks(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tasks[key]
}

// Close stops the current session and waits for every watcher to exit.
func (a *Aggregator) Close() {
	if a.session != nil {
		a.session.cancel()
		a.session = nil
	}
	a.wg.Wait()
}

func (a *Aggregator) taskStarted(key string) {
	a.mu.Lock()
	a.tasks[key]++
	a.mu.Unlock()
	a.metrics.LogWatcherStarted(context.Background())
}

func (a *Aggregator) taskDone(key string) {
	a.mu.Lock()
	a.tasks[key]--
	if a.tasks[key] <= 0 {
		delete(a.tasks, key)
	}
	a.mu.Unlock()
	a.metrics.LogWatcherStopped(context.Background())
}
