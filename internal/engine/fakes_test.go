package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/panel"
)

type scanResult struct {
	entries []fs.Entry
	err     error
}

// scriptedScanner replays queued results per path; the last result repeats.
// A path with a gate blocks every scan until the gate is closed or fed.
type scriptedScanner struct {
	mu      sync.Mutex
	results map[string][]scanResult
	calls   map[string]int
	opts    map[string]fs.ScanOptions
	gates   map[string]chan struct{}
	started chan string
}

func newScriptedScanner() *scriptedScanner {
	return &scriptedScanner{
		results: make(map[string][]scanResult),
		calls:   make(map[string]int),
		opts:    make(map[string]fs.ScanOptions),
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 64),
	}
}

func (s *scriptedScanner) queue(path string, results ...scanResult) {
	s.mu.Lock()
	s.results[path] = append(s.results[path], results...)
	s.mu.Unlock()
}

func (s *scriptedScanner) gate(path string) chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[path] = ch
	s.mu.Unlock()
	return ch
}

func (s *scriptedScanner) Scan(path string, opts fs.ScanOptions) ([]fs.Entry, error) {
	s.mu.Lock()
	s.calls[path]++
	s.opts[path] = opts
	gate := s.gates[path]
	var res scanResult
	if q := s.results[path]; len(q) > 0 {
		res = q[0]
		if len(q) > 1 {
			s.results[path] = q[1:]
		}
	}
	s.mu.Unlock()

	select {
	case s.started <- path:
	default:
	}
	if gate != nil {
		<-gate
	}
	return res.entries, res.err
}

func (s *scriptedScanner) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastOptions returns the options of the most recent scan of path.
func (s *scriptedScanner) LastOptions(path string) fs.ScanOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts[path]
}

// scriptedAccess answers prompts with grant and counts them.
type scriptedAccess struct {
	has      atomic.Bool
	grant    atomic.Bool
	requests atomic.Int32
}

func (a *scriptedAccess) HasAccess(string) bool { return a.has.Load() }

func (a *scriptedAccess) RequestAccessPersisting(ctx context.Context, path string) bool {
	a.requests.Add(1)
	if ctx.Err() != nil {
		return false
	}
	return a.grant.Load()
}

// manualScheduler only ticks when the test says so.
type manualScheduler struct {
	mu      sync.Mutex
	onTick  func()
	started int
	resets  int
	stopped bool
}

func (m *manualScheduler) Start(_ time.Duration, onTick func()) {
	m.mu.Lock()
	m.onTick = onTick
	m.started++
	m.mu.Unlock()
}

func (m *manualScheduler) Reset() {
	m.mu.Lock()
	m.resets++
	m.mu.Unlock()
}

func (m *manualScheduler) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *manualScheduler) Fire() {
	m.mu.Lock()
	f := m.onTick
	stopped := m.stopped
	m.mu.Unlock()
	if f != nil && !stopped {
		f()
	}
}

func (m *manualScheduler) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

type schedulers struct {
	mu   sync.Mutex
	list []*manualScheduler
}

func (s *schedulers) factory() Scheduler {
	m := &manualScheduler{}
	s.mu.Lock()
	s.list = append(s.list, m)
	s.mu.Unlock()
	return m
}

// forSide relies on Start creating schedulers in panel.Sides order.
func (s *schedulers) forSide(side panel.Side) *manualScheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list[side]
}

type event struct {
	side    panel.Side
	entries []fs.Entry
	err     error
}

// recordingObserver queues every notification. holdNext makes the next
// result notification block until the returned release func is called.
type recordingObserver struct {
	events chan event

	mu      sync.Mutex
	hold    chan struct{}
	holding chan struct{}
}

func (o *recordingObserver) holdNext() (holding <-chan struct{}, release func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hold = make(chan struct{})
	o.holding = make(chan struct{})
	hold := o.hold
	return o.holding, func() { close(hold) }
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{events: make(chan event, 64)}
}

func (o *recordingObserver) OnScanResult(side panel.Side, entries []fs.Entry) {
	o.mu.Lock()
	hold, holding := o.hold, o.holding
	o.hold, o.holding = nil, nil
	o.mu.Unlock()
	if hold != nil {
		close(holding)
		<-hold
	}
	o.events <- event{side: side, entries: entries}
}

func (o *recordingObserver) OnScanError(side panel.Side, err error) {
	o.events <- event{side: side, err: err}
}

type fakeWatcher struct {
	mu      sync.Mutex
	watched map[string]int
	ch      chan string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{watched: make(map[string]int), ch: make(chan string, 8)}
}

func (w *fakeWatcher) Watch(path string) error {
	w.mu.Lock()
	w.watched[path]++
	w.mu.Unlock()
	return nil
}

func (w *fakeWatcher) Unwatch(path string) error {
	w.mu.Lock()
	w.watched[path]--
	w.mu.Unlock()
	return nil
}

func (w *fakeWatcher) Notify() <-chan string { return w.ch }

func (w *fakeWatcher) Count(path string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watched[path]
}
