package logging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

const (
	defaultBufferSize = 512
	minLaneBuffer     = 32
	maxLaneBuffer     = 1024
	maxRetryShift     = 5
)

// Router delivers graph events to sinks. Publish never blocks: events queue
// for a dispatcher that stamps, filters and copies them into one lane per
// sink. A full queue drops the event and counts it.
type Router struct {
	cfg        Config
	clock      Clock
	diag       *zap.Logger
	minimum    Severity
	categories map[string]struct{}
	fields     map[string]any

	queue chan Event
	stop  chan struct{}
	lanes []*sinkLane
	wg    sync.WaitGroup

	closed      atomic.Bool
	delivered   atomic.Uint64
	dropped     atomic.Uint64
	nextDropLog atomic.Int64

	mu         sync.Mutex
	byCategory map[string]uint64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
	ByCategory   map[string]uint64
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink) (*Router, error) {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	diag := cfg.Fallback
	if diag == nil {
		diag = zap.NewNop()
	}

	r := &Router{
		cfg:        cfg,
		clock:      clock,
		diag:       diag,
		minimum:    cfg.MinimumSeverity,
		categories: cfg.categorySet(),
		fields:     cfg.CloneFields(),
		queue:      make(chan Event, size),
		stop:       make(chan struct{}),
		byCategory: make(map[string]uint64),
	}
	laneSize := min(max(size, minLaneBuffer), maxLaneBuffer)
	for _, named := range namedSinks {
		if named.Sink != nil {
			r.lanes = append(r.lanes, newSinkLane(named, laneSize, diag))
		}
	}

	r.wg.Add(1 + len(r.lanes))
	go r.dispatch()
	for _, lane := range r.lanes {
		go func(l *sinkLane) {
			defer r.wg.Done()
			l.run()
		}(lane)
	}
	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, lane := range r.lanes {
			close(lane.events)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.route(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.route(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) accepts(event Event) bool {
	if event.Severity < r.minimum {
		return false
	}
	if r.categories == nil {
		return true
	}
	_, ok := r.categories[event.Category]
	return ok
}

func (r *Router) route(event Event) {
	if !r.accepts(event) {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.fields)

	r.delivered.Add(1)
	r.mu.Lock()
	r.byCategory[event.Category]++
	r.mu.Unlock()

	for _, lane := range r.lanes {
		lane.offer(event)
	}
}

func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.drop(event)
	}
}

// drop counts a rejected event and warns at most once per DropWarnInterval.
func (r *Router) drop(event Event) {
	r.dropped.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := r.clock.Now().UnixNano()
	next := r.nextDropLog.Load()
	if now < next || !r.nextDropLog.CompareAndSwap(next, now+int64(interval)) {
		return
	}
	r.diag.Warn("logging queue full, dropping events",
		zap.String("type", string(event.Type)),
		zap.String("map", event.Map),
		zap.Uint64("dropped", r.dropped.Load()),
	)
}

// Close stops accepting events, drains the queue into the sinks and closes them.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.stop)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var firstErr error
	for _, lane := range r.lanes {
		if err := lane.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	byCategory := make(map[string]uint64, len(r.byCategory))
	for k, v := range r.byCategory {
		byCategory[k] = v
	}
	r.mu.Unlock()
	return RouterStats{
		EventsTotal:  r.delivered.Load(),
		DroppedTotal: r.dropped.Load(),
		ByCategory:   byCategory,
	}
}

// Sink returns the sink registered under name, or nil.
func (r *Router) Sink(name string) Sink {
	for _, lane := range r.lanes {
		if lane.name == name {
			return lane.sink
		}
	}
	return nil
}

// sinkLane feeds one sink from its own goroutine and backs off after write
// failures, doubling the pause up to 32s.
type sinkLane struct {
	name   string
	sink   Sink
	events chan Event
	diag   *zap.Logger

	failures int
	resumeAt time.Time
}

func newSinkLane(named NamedSink, size int, diag *zap.Logger) *sinkLane {
	return &sinkLane{
		name:   named.Name,
		sink:   named.Sink,
		events: make(chan Event, size),
		diag:   diag.With(zap.String("sink", named.Name)),
	}
}

func (l *sinkLane) offer(event Event) {
	select {
	case l.events <- cloneEvent(event):
	default:
		l.diag.Warn("sink backlog full, dropping event", zap.String("type", string(event.Type)))
	}
}

func (l *sinkLane) run() {
	for event := range l.events {
		if wait := time.Until(l.resumeAt); l.failures > 0 && wait > 0 {
			time.Sleep(wait)
		}
		if err := l.sink.Write(event); err != nil {
			l.failures++
			pause := time.Second << min(l.failures, maxRetryShift)
			l.resumeAt = time.Now().Add(pause)
			l.diag.Error("sink write failed", zap.Error(err), zap.Duration("retry_in", pause))
			continue
		}
		l.failures = 0
	}
}
