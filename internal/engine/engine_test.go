package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/justyntemme/duopane/internal/cache"
	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/history"
	"github.com/justyntemme/duopane/internal/panel"
)

type harness struct {
	engine  *Engine
	scanner *scriptedScanner
	access  *scriptedAccess
	obs     *recordingObserver
	scheds  *schedulers
	cache   *cache.DirectoryCache
	watcher *fakeWatcher
	left    string
	right   string
}

func files(dir string, names ...string) []fs.Entry {
	out := make([]fs.Entry, len(names))
	for i, n := range names {
		out[i] = fs.Entry{Name: n, Path: filepath.Join(dir, n)}
	}
	return out
}

func entryNames(entries []fs.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		scanner: newScriptedScanner(),
		access:  &scriptedAccess{},
		obs:     newRecordingObserver(),
		scheds:  &schedulers{},
		cache:   cache.New(),
		watcher: newFakeWatcher(),
		left:    filepath.Join(root, "left"),
		right:   filepath.Join(root, "right"),
	}
	for _, d := range []string{h.left, h.right} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	e, err := New(Options{
		Scanner:      h.scanner,
		Cache:        h.cache,
		Access:       h.access,
		Observer:     h.obs,
		Watcher:      h.watcher,
		NewScheduler: h.scheds.factory,
		Home:         root,
		Left:         PanelOptions{Path: h.left},
		Right:        PanelOptions{Path: h.right},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.engine = e
	t.Cleanup(e.Stop)
	return h
}

func (h *harness) start(g *WithT) {
	g.Expect(h.engine.Start(context.Background())).To(Succeed())
}

// next returns the next observer event for side, skipping the other side.
func (h *harness) next(g *WithT, side panel.Side) event {
	var ev event
	g.Eventually(func() bool {
		select {
		case ev = <-h.obs.events:
			return ev.side == side
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond).Should(BeTrue())
	return ev
}

func (h *harness) waitIdle(g *WithT, side panel.Side) {
	g.Eventually(func() panel.Status {
		st, _ := h.engine.State(side)
		return st.Status
	}, 2*time.Second, time.Millisecond).Should(Equal(panel.Idle))
}

func permissionDenied(path string) error {
	return &fs.ScanError{Kind: fs.KindPermissionDenied, Path: path, Err: os.ErrPermission}
}

func TestStartScansBothSidesSorted(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.scanner.queue(h.left, scanResult{entries: []fs.Entry{
		{Name: "b.txt", Path: filepath.Join(h.left, "b.txt")},
		{Name: "sub", Path: filepath.Join(h.left, "sub"), IsDir: true},
		{Name: "A.txt", Path: filepath.Join(h.left, "A.txt")},
	}})
	h.scanner.queue(h.right, scanResult{entries: files(h.right, "r")})

	h.start(g)

	ev := h.next(g, panel.Left)
	g.Expect(ev.err).NotTo(HaveOccurred())
	g.Expect(entryNames(ev.entries)).To(Equal([]string{"sub", "A.txt", "b.txt"}))
	g.Expect(entryNames(h.cache.Get(panel.Left))).To(Equal([]string{"sub", "A.txt", "b.txt"}))

	h.waitIdle(g, panel.Left)
	h.waitIdle(g, panel.Right)
	st, err := h.engine.State(panel.Right)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(entryNames(st.Entries)).To(Equal([]string{"r"}))
	g.Expect(st.LastError).To(BeNil())
	g.Expect(st.LastScan).NotTo(BeZero())
	g.Expect(h.watcher.Count(h.left)).To(Equal(1))

	g.Expect(h.engine.Start(context.Background())).To(MatchError(ErrStarted))
}

func TestPermissionRecoveryPromptsOnceAndRetriesOnce(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.access.grant.Store(true)
	h.scanner.queue(h.left,
		scanResult{err: permissionDenied(h.left)},
		scanResult{entries: files(h.left, "granted.txt")},
	)

	h.start(g)

	ev := h.next(g, panel.Left)
	g.Expect(ev.err).NotTo(HaveOccurred())
	g.Expect(entryNames(ev.entries)).To(Equal([]string{"granted.txt"}))
	h.waitIdle(g, panel.Left)

	g.Expect(h.access.requests.Load()).To(BeEquivalentTo(1))
	g.Expect(h.scanner.Calls(h.left)).To(Equal(2))
}

func TestGrantedRetryThatStillFailsEndsInError(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.access.grant.Store(true)
	h.scanner.queue(h.left, scanResult{err: permissionDenied(h.left)})

	h.start(g)

	ev := h.next(g, panel.Left)
	g.Expect(ev.err).To(MatchError(fs.ErrPermissionDenied))
	h.waitIdle(g, panel.Left)
	g.Expect(h.scanner.Calls(h.left)).To(Equal(2), "exactly one retry")
	g.Expect(h.access.requests.Load()).To(BeEquivalentTo(1))
}

func TestExistingGrantRetriesWithoutPrompt(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.access.has.Store(true)
	h.scanner.queue(h.left,
		scanResult{err: permissionDenied(h.left)},
		scanResult{entries: files(h.left, "x")},
	)

	h.start(g)

	ev := h.next(g, panel.Left)
	g.Expect(ev.err).NotTo(HaveOccurred())
	g.Expect(h.access.requests.Load()).To(BeZero())
}

func TestDenialKeepsStaleEntriesAndIsNotRepromptedOnTicks(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.scanner.queue(h.left,
		scanResult{entries: files(h.left, "old.txt")},
		scanResult{err: permissionDenied(h.left)},
	)

	h.start(g)
	g.Expect(h.next(g, panel.Left).err).NotTo(HaveOccurred())
	h.waitIdle(g, panel.Left)

	h.scheds.forSide(panel.Left).Fire()
	ev := h.next(g, panel.Left)
	g.Expect(ev.err).To(MatchError(fs.ErrPermissionDenied))
	h.waitIdle(g, panel.Left)
	g.Expect(h.access.requests.Load()).To(BeEquivalentTo(1))

	st, _ := h.engine.State(panel.Left)
	g.Expect(entryNames(st.Entries)).To(Equal([]string{"old.txt"}), "entries survive errors")
	g.Expect(st.LastError).To(MatchError(fs.ErrPermissionDenied))
	g.Expect(entryNames(h.cache.Get(panel.Left))).To(Equal([]string{"old.txt"}))

	// Background ticks on a refused path do not prompt again.
	h.scheds.forSide(panel.Left).Fire()
	g.Expect(h.next(g, panel.Left).err).To(HaveOccurred())
	h.waitIdle(g, panel.Left)
	g.Expect(h.access.requests.Load()).To(BeEquivalentTo(1))

	// A manual refresh asks again.
	g.Expect(h.engine.Refresh(panel.Left)).To(Succeed())
	g.Expect(h.next(g, panel.Left).err).To(HaveOccurred())
	h.waitIdle(g, panel.Left)
	g.Expect(h.access.requests.Load()).To(BeEquivalentTo(2))
}

func TestTriggersDuringScanAreCoalesced(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.scanner.queue(h.left, scanResult{entries: files(h.left, "a")})
	gate := h.scanner.gate(h.left)

	h.start(g)
	g.Eventually(func() int { return h.scanner.Calls(h.left) }).Should(Equal(1))

	st, _ := h.engine.State(panel.Left)
	g.Expect(st.Status).To(Equal(panel.Scanning))

	sched := h.scheds.forSide(panel.Left)
	for i := 0; i < 5; i++ {
		sched.Fire()
	}
	g.Expect(h.engine.Refresh(panel.Left)).To(Succeed())
	h.watcher.ch <- h.left

	// Let the watcher loop deliver its trigger.
	time.Sleep(20 * time.Millisecond)
	g.Expect(h.scanner.Calls(h.left)).To(Equal(1))

	close(gate)
	g.Expect(h.next(g, panel.Left).err).NotTo(HaveOccurred())
	h.waitIdle(g, panel.Left)
	g.Consistently(func() int { return h.scanner.Calls(h.left) }, 50*time.Millisecond).Should(Equal(1))
}

func TestNavigateDuringScanDiscardsStaleResult(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	other := filepath.Join(filepath.Dir(h.left), "other")
	g.Expect(os.Mkdir(other, 0o755)).To(Succeed())

	h.scanner.queue(h.left, scanResult{entries: files(h.left, "stale")})
	h.scanner.queue(other, scanResult{entries: files(other, "fresh")})
	gate := h.scanner.gate(h.left)

	h.start(g)
	g.Eventually(func() int { return h.scanner.Calls(h.left) }).Should(Equal(1))

	got, err := h.engine.Navigate(panel.Left, "../other")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(other))
	g.Expect(h.scanner.Calls(other)).To(BeZero(), "single flight per side")

	close(gate)
	ev := h.next(g, panel.Left)
	g.Expect(entryNames(ev.entries)).To(Equal([]string{"fresh"}))
	h.waitIdle(g, panel.Left)

	st, _ := h.engine.State(panel.Left)
	g.Expect(st.Path).To(Equal(other))
	g.Expect(st.CanGoBack).To(BeTrue())
	g.Expect(h.scanner.Calls(other)).To(Equal(1))
	g.Expect(h.watcher.Count(h.left)).To(BeZero())
	g.Expect(h.watcher.Count(other)).To(Equal(1))
}

func TestSortChangeReordersWithoutRescan(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.scanner.queue(h.left, scanResult{entries: []fs.Entry{
		{Name: "small", Path: filepath.Join(h.left, "small"), Size: 1},
		{Name: "big", Path: filepath.Join(h.left, "big"), Size: 100},
		{Name: "dir", Path: filepath.Join(h.left, "dir"), IsDir: true},
	}})

	h.start(g)
	g.Expect(entryNames(h.next(g, panel.Left).entries)).To(Equal([]string{"dir", "big", "small"}))
	h.waitIdle(g, panel.Left)
	h.waitIdle(g, panel.Right)

	h.engine.SetSort(fs.SortBySize, false)
	ev := h.next(g, panel.Left)
	g.Expect(entryNames(ev.entries)).To(Equal([]string{"dir", "big", "small"}))

	g.Expect(h.engine.SetSideSort(panel.Left, fs.SortBySize, true)).To(Succeed())
	ev = h.next(g, panel.Left)
	g.Expect(entryNames(ev.entries)).To(Equal([]string{"dir", "small", "big"}))
	g.Expect(entryNames(h.cache.Get(panel.Left))).To(Equal([]string{"dir", "small", "big"}))

	st, _ := h.engine.State(panel.Left)
	g.Expect(st.SortKey).To(Equal(fs.SortBySize))
	g.Expect(st.SortAscending).To(BeTrue())
	g.Expect(h.scanner.Calls(h.left)).To(Equal(1))
}

func TestNavigationHistoryReplay(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	root := filepath.Dir(h.left)
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	g.Expect(os.Mkdir(a, 0o755)).To(Succeed())
	g.Expect(os.Mkdir(b, 0o755)).To(Succeed())
	h.start(g)
	h.waitIdle(g, panel.Left)

	_, err := h.engine.GoForward(panel.Left)
	g.Expect(err).To(MatchError(ErrNoHistory))

	_, err = h.engine.Navigate(panel.Left, a)
	g.Expect(err).NotTo(HaveOccurred())
	h.waitIdle(g, panel.Left)
	_, err = h.engine.Navigate(panel.Left, b)
	g.Expect(err).NotTo(HaveOccurred())
	h.waitIdle(g, panel.Left)

	size := func() int {
		s := h.engine.HistorySnapshot(panel.Left)
		return len(s.Back) + len(s.Forward)
	}
	g.Expect(size()).To(Equal(2))

	back, err := h.engine.GoBack(panel.Left)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(back).To(Equal(a))
	h.waitIdle(g, panel.Left)
	g.Expect(size()).To(Equal(2))

	fwd, err := h.engine.GoForward(panel.Left)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fwd).To(Equal(b))
	h.waitIdle(g, panel.Left)
	g.Expect(size()).To(Equal(2))

	g.Expect(h.engine.BackList(panel.Left, 0)).To(Equal([]string{a, h.left}))
	g.Expect(h.engine.Selections().Recent()).To(Equal([]string{b, a}))

	up, err := h.engine.GoUp(panel.Left)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(up).To(Equal(root))
	g.Expect(h.engine.ForwardList(panel.Left, 0)).To(BeEmpty())
}

func TestNavigateRejectsInvalidTargets(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.start(g)
	h.waitIdle(g, panel.Left)

	file := filepath.Join(h.left, "plain.txt")
	g.Expect(os.WriteFile(file, nil, 0o644)).To(Succeed())

	_, err := h.engine.Navigate(panel.Left, "missing")
	g.Expect(err).To(MatchError(fs.ErrNotFound))
	_, err = h.engine.Navigate(panel.Left, file)
	g.Expect(err).To(MatchError(fs.ErrInvalidPath))
	_, err = h.engine.Navigate(panel.Left, "")
	g.Expect(err).To(MatchError(fs.ErrInvalidPath))
	_, err = h.engine.Navigate(panel.Side(7), h.right)
	g.Expect(errors.Is(err, ErrInvalidSide)).To(BeTrue())

	st, _ := h.engine.State(panel.Left)
	g.Expect(st.Path).To(Equal(h.left))
	g.Expect(st.CanGoBack).To(BeFalse())
}

func TestUserTriggersResetTimer(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.start(g)
	h.waitIdle(g, panel.Left)

	sched := h.scheds.forSide(panel.Left)
	before := sched.Resets()
	g.Expect(h.engine.Refresh(panel.Left)).To(Succeed())
	g.Expect(sched.Resets()).To(Equal(before + 1))

	h.waitIdle(g, panel.Left)
	sched.Fire()
	g.Expect(sched.Resets()).To(Equal(before+1), "ticks do not reset the timer")
}

func TestShowHiddenRescansBothSides(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.start(g)
	h.waitIdle(g, panel.Left)
	h.waitIdle(g, panel.Right)

	h.engine.SetShowHidden(true)
	g.Expect(h.engine.ShowHidden()).To(BeTrue())
	g.Eventually(func() int { return h.scanner.Calls(h.left) }).Should(Equal(2))
	g.Eventually(func() int { return h.scanner.Calls(h.right) }).Should(Equal(2))

	h.waitIdle(g, panel.Left)
	h.engine.SetShowHidden(true)
	g.Consistently(func() int { return h.scanner.Calls(h.left) }, 30*time.Millisecond).Should(Equal(2))
}

func TestPrimeSeedsBeforeFirstScan(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)

	g.Expect(h.engine.Prime(panel.Left, "/elsewhere", files("/elsewhere", "x"))).To(BeFalse())
	g.Expect(h.engine.Prime(panel.Left, h.left, files(h.left, "z", "a"))).To(BeTrue())

	st, _ := h.engine.State(panel.Left)
	g.Expect(entryNames(st.Entries)).To(Equal([]string{"a", "z"}))
	g.Expect(entryNames(h.cache.Get(panel.Left))).To(Equal([]string{"a", "z"}))
}

func TestRestoredHistory(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	e, err := New(Options{
		Scanner:      newScriptedScanner(),
		NewScheduler: (&schedulers{}).factory,
		Home:         dir,
		Left:         PanelOptions{Path: dir, History: history.Snapshot{Back: []string{"/a", "/b"}}},
		Right:        PanelOptions{Path: dir, SortKey: fs.SortByDate, SortDescending: true},
	})
	g.Expect(err).NotTo(HaveOccurred())

	st, _ := e.State(panel.Left)
	g.Expect(st.CanGoBack).To(BeTrue())
	g.Expect(st.SortAscending).To(BeTrue())
	rs, _ := e.State(panel.Right)
	g.Expect(rs.SortKey).To(Equal(fs.SortByDate))
	g.Expect(rs.SortAscending).To(BeFalse())
}

func TestStopWaitsAndIgnoresLaterTriggers(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	gate := h.scanner.gate(h.left)
	h.start(g)
	g.Eventually(func() int { return h.scanner.Calls(h.left) }).Should(Equal(1))

	stopped := make(chan struct{})
	go func() {
		h.engine.Stop()
		close(stopped)
	}()
	g.Consistently(stopped, 30*time.Millisecond).ShouldNot(BeClosed())
	close(gate)
	g.Eventually(stopped).Should(BeClosed())

	g.Expect(h.engine.Refresh(panel.Left)).To(Succeed())
	g.Consistently(func() int { return h.scanner.Calls(h.left) }, 30*time.Millisecond).Should(Equal(1))
	g.Expect(h.scheds.forSide(panel.Left).stopped).To(BeTrue())
}

func TestNewRequiresScanner(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without a scanner")
	}
}

// lastEvent drains queued notifications and returns the last one for side.
func (h *harness) lastEvent(g *WithT, side panel.Side) event {
	var last event
	found := false
	for {
		select {
		case ev := <-h.obs.events:
			if ev.side == side {
				last, found = ev, true
			}
			continue
		default:
		}
		break
	}
	g.Expect(found).To(BeTrue(), "no notification for %s", side)
	return last
}

func TestScanErrorsKeepStaleEntries(t *testing.T) {
	for _, tc := range []struct {
		name     string
		err      error
		kind     fs.ErrorKind
		sentinel error
	}{
		{"io", errors.New("input/output error"), fs.KindIO, fs.ErrIO},
		{"not found", os.ErrNotExist, fs.KindNotFound, fs.ErrNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := NewWithT(t)
			h := newHarness(t)
			h.scanner.queue(h.left,
				scanResult{entries: files(h.left, "keep.txt")},
				scanResult{err: &fs.ScanError{Kind: tc.kind, Path: h.left, Err: tc.err}},
			)

			h.start(g)
			g.Expect(h.next(g, panel.Left).err).NotTo(HaveOccurred())
			h.waitIdle(g, panel.Left)

			h.scheds.forSide(panel.Left).Fire()
			ev := h.next(g, panel.Left)
			g.Expect(ev.err).To(MatchError(tc.sentinel))
			g.Expect(fs.Kind(ev.err)).To(Equal(tc.kind))
			h.waitIdle(g, panel.Left)

			st, _ := h.engine.State(panel.Left)
			g.Expect(entryNames(st.Entries)).To(Equal([]string{"keep.txt"}))
			g.Expect(fs.Kind(st.LastError)).To(Equal(tc.kind))
			g.Expect(entryNames(h.cache.Get(panel.Left))).To(Equal([]string{"keep.txt"}))
			g.Expect(h.access.requests.Load()).To(BeZero())
			g.Expect(h.scanner.Calls(h.left)).To(Equal(2))
		})
	}
}

func TestHiddenToggleDuringScanRescans(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	gate := h.scanner.gate(h.left)

	h.start(g)
	g.Eventually(func() int { return h.scanner.Calls(h.left) }).Should(Equal(1))
	g.Expect(h.scanner.LastOptions(h.left).ShowHidden).To(BeFalse())

	h.engine.SetShowHidden(true)
	close(gate)

	g.Eventually(func() int { return h.scanner.Calls(h.left) }).Should(Equal(2))
	h.waitIdle(g, panel.Left)
	g.Expect(h.scanner.LastOptions(h.left).ShowHidden).To(BeTrue())
	g.Consistently(func() int { return h.scanner.Calls(h.left) }, 30*time.Millisecond).Should(Equal(2))
}

func TestSortNotificationDoesNotOverwriteNewerScan(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	h.scanner.queue(h.left,
		scanResult{entries: files(h.left, "a")},
		scanResult{entries: files(h.left, "a", "b")},
	)
	h.start(g)
	h.waitIdle(g, panel.Left)
	h.waitIdle(g, panel.Right)

	holding, release := h.obs.holdNext()
	sorted := make(chan error, 1)
	go func() { sorted <- h.engine.SetSideSort(panel.Left, fs.SortByName, true) }()
	g.Eventually(holding).Should(BeClosed())

	// A scan finishing while the sort notification is in flight must be
	// delivered after it.
	h.scheds.forSide(panel.Left).Fire()
	g.Eventually(func() int { return h.scanner.Calls(h.left) }).Should(Equal(2))
	time.Sleep(20 * time.Millisecond)
	release()

	g.Eventually(sorted).Should(Receive(BeNil()))
	h.waitIdle(g, panel.Left)

	g.Expect(entryNames(h.cache.Get(panel.Left))).To(Equal([]string{"a", "b"}))
	g.Expect(entryNames(h.lastEvent(g, panel.Left).entries)).To(Equal([]string{"a", "b"}))
}

func TestJumpToReplaysWithoutRecording(t *testing.T) {
	g := NewWithT(t)
	h := newHarness(t)
	root := filepath.Dir(h.left)
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	g.Expect(os.Mkdir(a, 0o755)).To(Succeed())
	g.Expect(os.Mkdir(b, 0o755)).To(Succeed())
	h.start(g)
	h.waitIdle(g, panel.Left)

	for _, dir := range []string{a, b} {
		_, err := h.engine.Navigate(panel.Left, dir)
		g.Expect(err).NotTo(HaveOccurred())
		h.waitIdle(g, panel.Left)
	}

	got, err := h.engine.JumpTo(panel.Left, h.left)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(h.left))
	h.waitIdle(g, panel.Left)

	st, _ := h.engine.State(panel.Left)
	g.Expect(st.Path).To(Equal(h.left))
	g.Expect(h.engine.BackList(panel.Left, 0)).To(BeEmpty())
	g.Expect(h.engine.ForwardList(panel.Left, 0)).To(Equal([]string{a, b}))
	g.Expect(h.watcher.Count(h.left)).To(Equal(1))
	g.Expect(h.watcher.Count(b)).To(BeZero())

	_, err = h.engine.JumpTo(panel.Left, "/never/visited")
	g.Expect(err).To(MatchError(ErrNoHistory))
	g.Expect(h.engine.ForwardList(panel.Left, 0)).To(HaveLen(2))
}
