// Package engine keeps the two panels in sync with the filesystem.
//
// Each side runs a small state machine:
//
//	Idle -> Scanning -> Idle
//	Scanning -> RecoveringAccess -> Scanning -> Idle   (one retry after a grant)
//	Scanning -> Idle with error                        (entries are kept)
//
// At most one scan is in flight per side. Triggers that arrive while a side is
// busy are absorbed; a navigation that arrives mid-scan discards the stale
// result and scans the new path once the current scan returns.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/duopane/internal/access"
	"github.com/justyntemme/duopane/internal/cache"
	"github.com/justyntemme/duopane/internal/debug"
	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/history"
	"github.com/justyntemme/duopane/internal/logging"
	"github.com/justyntemme/duopane/internal/metrics"
	"github.com/justyntemme/duopane/internal/panel"
)

// DefaultRefreshInterval is the polling period of each side.
const DefaultRefreshInterval = 60 * time.Second

var (
	// ErrNoHistory is returned by GoBack, GoForward and JumpTo when there is
	// nothing to replay.
	ErrNoHistory = errors.New("no history in that direction")
	// ErrAtRoot is returned by GoUp at the filesystem root.
	ErrAtRoot = errors.New("already at the filesystem root")
	// ErrInvalidSide wraps a side that is neither Left nor Right.
	ErrInvalidSide = errors.New("invalid side")
	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("engine already started")
)

// DirectoryScanner lists one directory.
type DirectoryScanner interface {
	Scan(path string, opts fs.ScanOptions) ([]fs.Entry, error)
}

// Watcher reports directories that changed on disk.
type Watcher interface {
	Watch(path string) error
	Unwatch(path string) error
	Notify() <-chan string
}

// Reason says why a scan was requested.
type Reason int

const (
	ReasonStart Reason = iota
	ReasonTick
	ReasonWatch
	ReasonRefresh
	ReasonNavigate
	ReasonHistory
	ReasonHidden
)

func (r Reason) String() string {
	switch r {
	case ReasonStart:
		return "start"
	case ReasonTick:
		return "tick"
	case ReasonWatch:
		return "watch"
	case ReasonRefresh:
		return "refresh"
	case ReasonNavigate:
		return "navigate"
	case ReasonHistory:
		return "history"
	case ReasonHidden:
		return "hidden"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// userDriven triggers restart the side's timer and may prompt again for a
// path the user already refused.
func (r Reason) userDriven() bool {
	return r >= ReasonRefresh
}

// outdatesScan triggers make a scan already in flight useless: the side moved
// or the listing options changed.
func (r Reason) outdatesScan() bool {
	return r == ReasonNavigate || r == ReasonHistory || r == ReasonHidden
}

// PanelOptions seeds one side.
type PanelOptions struct {
	Path           string
	SortKey        fs.SortKey
	SortDescending bool
	History        history.Snapshot
}

// Options configures an Engine. Scanner is required.
type Options struct {
	Scanner         DirectoryScanner
	Cache           *cache.DirectoryCache
	Access          access.Service // nil: permission errors are reported as-is
	Observer        Observer
	Selections      *history.Selections
	Watcher         Watcher
	NewScheduler    func() Scheduler
	RefreshInterval time.Duration
	HistoryLimit    int
	ShowHidden      bool
	Home            string
	Left            PanelOptions
	Right           PanelOptions
}

type sidePanel struct {
	side panel.Side

	// notifyMu orders publishing and observer calls for the side, so the
	// observer always ends on what the cache holds.
	notifyMu sync.Mutex

	mu       sync.Mutex
	status   panel.Status
	path     string
	entries  []fs.Entry
	sortKey  fs.SortKey
	asc      bool
	lastErr  error
	lastScan time.Time
	pending  bool            // path or options changed while a scan was in flight
	denied   map[string]bool // paths the user refused; cleared by user-driven triggers
	history  *history.Stack
	sched    Scheduler
	closed   bool
}

// Engine coordinates scanning, caching and navigation for both sides.
type Engine struct {
	scanner    DirectoryScanner
	cache      *cache.DirectoryCache
	access     access.Service
	observer   Observer
	selections *history.Selections
	watcher    Watcher
	newSched   func() Scheduler
	interval   time.Duration
	home       string
	showHidden atomic.Bool

	panels [2]*sidePanel

	running  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New validates opts and returns an Engine that is not yet running.
func New(opts Options) (*Engine, error) {
	if opts.Scanner == nil {
		return nil, errors.New("engine: scanner is required")
	}
	if opts.Cache == nil {
		opts.Cache = cache.New()
	}
	if opts.Observer == nil {
		opts.Observer = ObserverFuncs{}
	}
	if opts.Selections == nil {
		opts.Selections = history.NewSelections(history.DefaultSelectionsLimit)
	}
	if opts.NewScheduler == nil {
		opts.NewScheduler = NewTimerScheduler
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Home == "" {
		opts.Home, _ = os.UserHomeDir()
	}

	e := &Engine{
		scanner:    opts.Scanner,
		cache:      opts.Cache,
		access:     opts.Access,
		observer:   opts.Observer,
		selections: opts.Selections,
		watcher:    opts.Watcher,
		newSched:   opts.NewScheduler,
		interval:   opts.RefreshInterval,
		home:       opts.Home,
		ctx:        context.Background(),
		cancel:     func() {},
	}
	e.showHidden.Store(opts.ShowHidden)

	for _, side := range panel.Sides {
		po := opts.Left
		if side == panel.Right {
			po = opts.Right
		}
		path := po.Path
		if path == "" {
			path = opts.Home
		}
		path, err := fs.Canonicalize(path, opts.Home, opts.Home)
		if err != nil {
			return nil, fmt.Errorf("engine: %s path: %w", side, err)
		}
		h := history.NewStack(opts.HistoryLimit)
		h.Restore(po.History)
		e.panels[side] = &sidePanel{
			side:    side,
			path:    path,
			sortKey: po.SortKey,
			asc:     !po.SortDescending,
			denied:  make(map[string]bool),
			history: h,
		}
	}
	return e, nil
}

func (e *Engine) panel(side panel.Side) (*sidePanel, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, int(side))
	}
	return e.panels[side], nil
}

// Prime shows entries for side before the first scan completes. It only
// applies when path is the side's current directory.
func (e *Engine) Prime(side panel.Side, path string, entries []fs.Entry) bool {
	p, err := e.panel(side)
	if err != nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path != path || len(entries) == 0 {
		return false
	}
	sorted := fs.Sort(entries, p.sortKey, p.asc)
	e.cache.Replace(side, sorted)
	p.entries = sorted
	return true
}

// Start arms both timers, attaches the watcher and scans both sides
// immediately.
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrStarted
	}
	e.ctx, e.cancel = context.WithCancel(ctx)

	for _, p := range e.panels {
		p := p
		sched := e.newSched()
		p.mu.Lock()
		p.sched = sched
		path := p.path
		p.mu.Unlock()

		sched.Start(e.interval, func() { e.trigger(p, ReasonTick) })
		e.watch(path)
	}

	if e.watcher != nil {
		e.wg.Add(1)
		go e.watchLoop()
	}

	for _, p := range e.panels {
		e.trigger(p, ReasonStart)
	}
	logging.L().Info("engine started", zap.Duration("interval", e.interval))
	return nil
}

// Stop cancels pending prompts, stops the timers and waits for in-flight
// scans. Later triggers are ignored.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.cancel()
		for _, p := range e.panels {
			p.mu.Lock()
			p.closed = true
			sched := p.sched
			path := p.path
			p.mu.Unlock()
			if sched != nil {
				sched.Stop()
			}
			if e.running.Load() {
				e.unwatch(path)
			}
		}
		e.wg.Wait()
		logging.L().Info("engine stopped")
	})
}

func (e *Engine) watchLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case dir, ok := <-e.watcher.Notify():
			if !ok {
				return
			}
			for _, p := range e.panels {
				p.mu.Lock()
				match := p.path == dir
				p.mu.Unlock()
				if match {
					e.trigger(p, ReasonWatch)
				}
			}
		}
	}
}

func (e *Engine) watch(path string) {
	if e.watcher == nil {
		return
	}
	if err := e.watcher.Watch(path); err != nil {
		debug.Log(debug.WATCH, "engine: cannot watch %q: %v", path, err)
	}
}

func (e *Engine) unwatch(path string) {
	if e.watcher == nil {
		return
	}
	if err := e.watcher.Unwatch(path); err != nil {
		debug.Log(debug.WATCH, "engine: cannot unwatch %q: %v", path, err)
	}
}

func (e *Engine) rewatch(prev, next string) {
	if !e.running.Load() || prev == next {
		return
	}
	e.unwatch(prev)
	e.watch(next)
}

// trigger starts a scan of p unless one is already in flight.
func (e *Engine) trigger(p *sidePanel, reason Reason) {
	if !e.running.Load() {
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if reason.userDriven() {
		delete(p.denied, p.path)
		if p.sched != nil {
			p.sched.Reset()
		}
	}
	if p.status != panel.Idle {
		if reason.outdatesScan() {
			p.pending = true
		}
		status := p.status
		p.mu.Unlock()
		metrics.RecordCoalesced(p.side.String(), reason.String())
		debug.Log(debug.ENGINE, "engine: %s %s trigger coalesced (status %s)", p.side, reason, status)
		return
	}
	p.status = panel.Scanning
	e.wg.Add(1)
	p.mu.Unlock()

	debug.Log(debug.ENGINE, "engine: %s scan started (%s)", p.side, reason)
	go e.run(p)
}

// run owns p from Scanning until it returns to Idle.
func (e *Engine) run(p *sidePanel) {
	defer e.wg.Done()
	for {
		p.mu.Lock()
		path := p.path
		skipPrompt := p.denied[path]
		p.pending = false
		p.mu.Unlock()

		opts := fs.ScanOptions{ShowHidden: e.showHidden.Load()}
		start := time.Now()
		entries, err := e.scanWithRecovery(p, path, opts, skipPrompt)

		outcome := "ok"
		if err != nil {
			outcome = fs.Kind(err).String()
		}
		metrics.RecordScan(p.side.String(), outcome, time.Since(start))

		if !e.complete(p, path, entries, err) {
			return
		}
	}
}

// scanWithRecovery scans path and, on a permission failure, asks for access
// and retries exactly once.
func (e *Engine) scanWithRecovery(p *sidePanel, path string, opts fs.ScanOptions, skipPrompt bool) ([]fs.Entry, error) {
	entries, err := e.scanner.Scan(path, opts)
	if err == nil || !errors.Is(err, fs.ErrPermissionDenied) || e.access == nil {
		return entries, err
	}
	if skipPrompt {
		debug.Log(debug.ACCESS, "engine: %s access to %q was refused earlier", p.side, path)
		return nil, err
	}

	e.setStatus(p, panel.RecoveringAccess)
	granted := e.access.HasAccess(path)
	if !granted {
		granted = e.access.RequestAccessPersisting(e.ctx, path)
	}
	if !granted {
		p.mu.Lock()
		p.denied[path] = true
		p.mu.Unlock()
		logging.L().Info("access refused", zap.String("side", p.side.String()), zap.String("path", path))
		return nil, err
	}

	e.setStatus(p, panel.Scanning)
	debug.Log(debug.ACCESS, "engine: %s retrying %q after grant", p.side, path)
	return e.scanner.Scan(path, opts)
}

func (e *Engine) setStatus(p *sidePanel, s panel.Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// complete publishes a scan outcome and reports whether another scan must
// run because the side moved meanwhile.
func (e *Engine) complete(p *sidePanel, path string, entries []fs.Entry, err error) bool {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.status = panel.Idle
		p.mu.Unlock()
		return false
	}
	if p.path != path {
		// The side moved on; this result is stale.
		p.mu.Unlock()
		debug.Log(debug.ENGINE, "engine: %s discarded result for %q", p.side, path)
		return true
	}

	var sorted []fs.Entry
	if err == nil {
		sorted = fs.Sort(entries, p.sortKey, p.asc)
		e.cache.Replace(p.side, sorted)
		p.entries = sorted
		p.lastErr = nil
		p.lastScan = time.Now()
	} else {
		p.lastErr = err
	}
	p.mu.Unlock()

	if err == nil {
		metrics.SetPanelEntries(p.side.String(), len(sorted))
		debug.Log(debug.ENGINE, "engine: %s %q listed %d entries", p.side, path, len(sorted))
		e.observer.OnScanResult(p.side, sorted)
	} else {
		logging.L().Warn("scan failed",
			zap.String("side", p.side.String()),
			zap.String("path", path),
			zap.String("kind", fs.Kind(err).String()),
			zap.Error(err))
		e.observer.OnScanError(p.side, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending && !p.closed {
		return true
	}
	p.status = panel.Idle
	return false
}

// Navigate moves side to input, which may be relative to the side's current
// directory or start with ~. The target must be an existing directory.
// Returns the canonical path.
func (e *Engine) Navigate(side panel.Side, input string) (string, error) {
	p, err := e.panel(side)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	base := p.path
	p.mu.Unlock()

	target, err := fs.Canonicalize(input, base, e.home)
	if err != nil {
		return "", err
	}
	if err := fs.CheckDir(target); err != nil {
		return "", err
	}
	e.moveTo(p, target)
	return target, nil
}

// GoUp moves side to its parent directory.
func (e *Engine) GoUp(side panel.Side) (string, error) {
	p, err := e.panel(side)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	current := p.path
	p.mu.Unlock()

	parent := fs.Parent(current)
	if parent == current {
		return "", ErrAtRoot
	}
	e.moveTo(p, parent)
	return parent, nil
}

// moveTo records the current directory in history and scans target.
func (e *Engine) moveTo(p *sidePanel, target string) {
	p.mu.Lock()
	prev := p.path
	if prev == target {
		p.mu.Unlock()
		e.trigger(p, ReasonRefresh)
		return
	}
	p.history.Record(prev)
	p.path = target
	p.mu.Unlock()

	debug.Log(debug.HISTORY, "engine: %s %q -> %q", p.side, prev, target)
	e.selections.Add(target)
	e.rewatch(prev, target)
	e.trigger(p, ReasonNavigate)
}

// GoBack replays the previous directory of side without recording it.
func (e *Engine) GoBack(side panel.Side) (string, error) {
	return e.replay(side, (*history.Stack).Back)
}

// GoForward replays the next directory of side without recording it.
func (e *Engine) GoForward(side panel.Side) (string, error) {
	return e.replay(side, (*history.Stack).Forward)
}

func (e *Engine) replay(side panel.Side, step func(*history.Stack, string) (string, bool)) (string, error) {
	p, err := e.panel(side)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	prev := p.path
	target, ok := step(p.history, prev)
	if !ok {
		p.mu.Unlock()
		return "", ErrNoHistory
	}
	p.path = target
	p.mu.Unlock()

	debug.Log(debug.HISTORY, "engine: %s replay %q -> %q", side, prev, target)
	e.selections.Add(target)
	e.rewatch(prev, target)
	e.trigger(p, ReasonHistory)
	return target, nil
}

// JumpTo replays side to target, which must be an entry of its back or
// forward history. Like GoBack it records nothing.
func (e *Engine) JumpTo(side panel.Side, target string) (string, error) {
	return e.replay(side, func(h *history.Stack, current string) (string, bool) {
		return target, h.JumpTo(current, target)
	})
}

// Refresh rescans side now and restarts its timer.
func (e *Engine) Refresh(side panel.Side) error {
	p, err := e.panel(side)
	if err != nil {
		return err
	}
	e.trigger(p, ReasonRefresh)
	return nil
}

// SetSort changes the ordering of both sides.
func (e *Engine) SetSort(key fs.SortKey, ascending bool) {
	for _, side := range panel.Sides {
		e.SetSideSort(side, key, ascending)
	}
}

// SetSideSort reorders the cached entries of side without rescanning.
func (e *Engine) SetSideSort(side panel.Side, key fs.SortKey, ascending bool) error {
	p, err := e.panel(side)
	if err != nil {
		return err
	}
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	p.sortKey = key
	p.asc = ascending
	sorted := fs.Sort(e.cache.Get(side), key, ascending)
	e.cache.Replace(side, sorted)
	p.entries = sorted
	p.mu.Unlock()

	e.observer.OnScanResult(side, sorted)
	return nil
}

// SetShowHidden toggles dotfiles and rescans both sides.
func (e *Engine) SetShowHidden(show bool) {
	if e.showHidden.Swap(show) == show {
		return
	}
	for _, p := range e.panels {
		e.trigger(p, ReasonHidden)
	}
}

// ShowHidden reports whether dotfiles are listed.
func (e *Engine) ShowHidden() bool {
	return e.showHidden.Load()
}

// State returns a copy of side's current state.
func (e *Engine) State(side panel.Side) (panel.State, error) {
	p, err := e.panel(side)
	if err != nil {
		return panel.State{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return panel.State{
		Side:          side,
		Path:          p.path,
		Entries:       append([]fs.Entry(nil), p.entries...),
		SortKey:       p.sortKey,
		SortAscending: p.asc,
		Status:        p.status,
		LastError:     p.lastErr,
		LastScan:      p.lastScan,
		CanGoBack:     p.history.CanBack(),
		CanGoForward:  p.history.CanForward(),
	}, nil
}

// HistorySnapshot copies side's navigation history for persistence.
func (e *Engine) HistorySnapshot(side panel.Side) history.Snapshot {
	p, err := e.panel(side)
	if err != nil {
		return history.Snapshot{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.Snapshot()
}

// BackList returns up to limit back entries of side, most recent first.
func (e *Engine) BackList(side panel.Side, limit int) []string {
	p, err := e.panel(side)
	if err != nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.BackList(limit)
}

// ForwardList returns up to limit forward entries of side, most recent first.
func (e *Engine) ForwardList(side panel.Side, limit int) []string {
	p, err := e.panel(side)
	if err != nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.ForwardList(limit)
}

// Selections returns the recent selections list shared by both sides.
func (e *Engine) Selections() *history.Selections {
	return e.selections
}
