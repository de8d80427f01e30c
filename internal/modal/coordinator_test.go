package modal

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// manualToolkit records calls; tests deliver Shown/Hidden themselves.
type manualToolkit struct {
	mu    sync.Mutex
	shows []DialogID
	hides []DialogID
	err   error
}

func (m *manualToolkit) Show(id DialogID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shows = append(m.shows, id)
	return m.err
}

func (m *manualToolkit) Hide(id DialogID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hides = append(m.hides, id)
	return m.err
}

func (m *manualToolkit) showCalls(id DialogID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.shows {
		if s == id {
			n++
		}
	}
	return n
}

func (m *manualToolkit) hideCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hides)
}

// asyncToolkit reports completion after an animation delay, like the real UI.
type asyncToolkit struct {
	c        *Coordinator
	delay    func() time.Duration
	inflight atomic.Int64
}

func (a *asyncToolkit) Show(id DialogID) error {
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Add(-1)
		time.Sleep(a.delay())
		a.c.Shown(id)
	}()
	return nil
}

func (a *asyncToolkit) Hide(id DialogID) error {
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Add(-1)
		time.Sleep(a.delay())
		a.c.Hidden(id)
	}()
	return nil
}

type recorder struct {
	mu sync.Mutex
	ts []Transition
}

func (r *recorder) observe(t Transition) {
	r.mu.Lock()
	r.ts = append(r.ts, t)
	r.mu.Unlock()
}

func (r *recorder) find(id DialogID, to State) (Transition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.ts {
		if t.Dialog == id && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

func newManual(t *testing.T, cfg Config, opts ...Option) (*Coordinator, *Layer, *manualToolkit, *recorder) {
	t.Helper()
	layer := NewLayer()
	tk := &manualToolkit{}
	rec := &recorder{}
	opts = append([]Option{WithConfig(cfg), WithObserver(rec.observe)}, opts...)
	c := New(layer, tk, opts...)
	for _, id := range []DialogID{"a", "b", "c"} {
		require.NoError(t, c.Register(id))
	}
	t.Cleanup(c.Teardown)
	return c, layer, tk, rec
}

func requireState(t *testing.T, c *Coordinator, id DialogID, want State) {
	t.Helper()
	got, err := c.State(id)
	require.NoError(t, err)
	require.Equal(t, want, got, "dialog %s", id)
}

func TestOpenInsertsSingleBackdropAndLocksScroll(t *testing.T) {
	c, layer, tk, _ := newManual(t, DefaultConfig())

	require.NoError(t, c.Open("a"))
	requireState(t, c, "a", Opening)
	require.Equal(t, 1, layer.Len())
	require.True(t, layer.ScrollLocked())
	require.Equal(t, 1, tk.showCalls("a"))

	c.Shown("a")
	requireState(t, c, "a", Open)
	require.Equal(t, 1, layer.Len())
}

func TestOpenIsIdempotent(t *testing.T) {
	c, layer, tk, _ := newManual(t, DefaultConfig())

	require.NoError(t, c.Open("a"))
	require.NoError(t, c.Open("a"))
	require.Equal(t, 1, tk.showCalls("a"))
	require.Equal(t, 1, layer.Len())

	c.Shown("a")
	require.NoError(t, c.Open("a"))
	requireState(t, c, "a", Open)
	require.Equal(t, 1, tk.showCalls("a"))
	require.Equal(t, 1, layer.Len())
}

func TestCloseKeepsBackdropUntilHidden(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	require.NoError(t, c.Open("a"))
	c.Shown("a")

	require.NoError(t, c.Close("a"))
	requireState(t, c, "a", Closing)
	require.Equal(t, 1, layer.Len(), "backdrop must survive the exit animation")

	c.Hidden("a")
	requireState(t, c, "a", Closed)
	require.Equal(t, 0, layer.Len())
	require.False(t, layer.ScrollLocked())

	// closing a closed dialog is a no-op
	require.NoError(t, c.Close("a"))
	requireState(t, c, "a", Closed)
}

func TestCloseUnknownDialogLeavesStateUntouched(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	require.NoError(t, c.Open("a"))
	c.Shown("a")
	before := layer.Backdrops()

	err := c.Close("missing_id")
	require.ErrorIs(t, err, ErrUnknownDialog)
	var unknown *UnknownDialogError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, DialogID("missing_id"), unknown.ID)
	require.Equal(t, "close", unknown.Op)

	require.ErrorIs(t, c.Switch("a", "missing_id", 0), ErrUnknownDialog)
	require.ErrorIs(t, c.Open("missing_id"), ErrUnknownDialog)
	_, err = c.State("missing_id")
	require.ErrorIs(t, err, ErrUnknownDialog)

	requireState(t, c, "a", Open)
	require.Equal(t, before, layer.Backdrops())
	require.True(t, layer.ScrollLocked())
	require.Zero(t, c.Pending())
}

func TestNestedDialogsShareOneBackdrop(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	require.NoError(t, c.Open("a"))
	c.Shown("a")
	require.NoError(t, c.Open("b"))
	c.Shown("b")

	require.Equal(t, 1, layer.Len())
	require.Equal(t, []DialogID{"a", "b"}, c.Stack())
	top, ok := c.Top()
	require.True(t, ok)
	require.Equal(t, DialogID("b"), top)

	require.NoError(t, c.Close("b"))
	c.Hidden("b")
	requireState(t, c, "a", Open)
	require.Equal(t, 1, layer.Len())
	require.True(t, layer.ScrollLocked())
	top, _ = c.Top()
	require.Equal(t, DialogID("a"), top)
}

func TestReopenWhileClosingIgnoresStaleHidden(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	require.NoError(t, c.Open("a"))
	c.Shown("a")
	require.NoError(t, c.Close("a"))

	require.NoError(t, c.Open("a"))
	requireState(t, c, "a", Opening)

	c.Hidden("a") // late signal from the first close
	requireState(t, c, "a", Opening)
	require.Equal(t, 1, layer.Len())

	c.Shown("a")
	requireState(t, c, "a", Open)
	require.Equal(t, 1, layer.Len())
}

func TestWithoutBackdropStillLocksScroll(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	require.NoError(t, c.Register("toast", WithoutBackdrop()))

	require.NoError(t, c.Open("toast"))
	c.Shown("toast")
	require.Equal(t, 0, layer.Len())
	require.True(t, layer.ScrollLocked())
}

func TestBackdropGoesWithLastOwnerUnderPanel(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	require.NoError(t, c.Register("panel", WithoutBackdrop()))

	require.NoError(t, c.Open("a"))
	c.Shown("a")
	require.NoError(t, c.Open("panel"))
	c.Shown("panel")
	require.Equal(t, 1, layer.Len())

	require.NoError(t, c.Close("a"))
	require.NoError(t, c.Open("panel")) // re-open while a animates out
	require.Equal(t, 1, layer.Len())

	c.Hidden("a")
	requireState(t, c, "a", Closed)
	requireState(t, c, "panel", Open)
	require.Equal(t, 0, layer.Len())
	require.True(t, layer.ScrollLocked())

	require.NoError(t, c.Close("panel"))
	c.Hidden("panel")
	require.False(t, layer.ScrollLocked())
}

func TestUnmountedDialogAdvancesLogicalState(t *testing.T) {
	c, layer, tk, _ := newManual(t, DefaultConfig())
	tk.err = ErrNotMounted

	require.NoError(t, c.Open("a"))
	requireState(t, c, "a", Open)
	require.Equal(t, 1, layer.Len())

	require.NoError(t, c.Close("a"))
	requireState(t, c, "a", Closed)
	require.Equal(t, 0, layer.Len())
}

func TestNilToolkitIsHeadless(t *testing.T) {
	layer := NewLayer()
	c := New(layer, nil)
	t.Cleanup(c.Teardown)
	require.NoError(t, c.Register("a"))
	require.NoError(t, c.Register("b"))

	require.NoError(t, c.Open("a"))
	requireState(t, c, "a", Open)

	require.NoError(t, c.Switch("a", "b", 10*time.Millisecond))
	require.Eventually(t, func() bool {
		s, _ := c.State("b")
		return s == Open
	}, time.Second, 5*time.Millisecond)
	requireState(t, c, "a", Closed)
	require.Equal(t, 1, layer.Len())
}

func TestUnregisterForcesClosed(t *testing.T) {
	c, layer, _, rec := newManual(t, DefaultConfig())
	require.NoError(t, c.Open("a"))
	c.Shown("a")

	require.NoError(t, c.Unregister("a"))
	_, err := c.State("a")
	require.ErrorIs(t, err, ErrUnknownDialog)
	require.Equal(t, 0, layer.Len())
	tr, ok := rec.find("a", Closed)
	require.True(t, ok)
	require.True(t, tr.Forced)

	require.ErrorIs(t, c.Unregister("a"), ErrUnknownDialog)
}

func TestNormalizeBackdropsKeepsNewestAndIsIdempotent(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	layer.InsertBackdrop("")
	layer.InsertBackdrop("")
	newest := layer.InsertBackdrop("")

	c.NormalizeBackdrops()
	after := layer.Backdrops()
	require.Len(t, after, 1)
	require.Equal(t, newest.ID, after[0].ID)

	c.NormalizeBackdrops()
	require.Equal(t, after, layer.Backdrops())
}

// staleSurface reports backdrops that another party already removed.
type staleSurface struct {
	*Layer
	ghosts []Backdrop
}

func (s *staleSurface) Backdrops() []Backdrop {
	return append(s.ghosts, s.Layer.Backdrops()...)
}

func TestNormalizeSkipsDetachedBackdrops(t *testing.T) {
	layer := NewLayer()
	surface := &staleSurface{Layer: layer, ghosts: []Backdrop{{ID: "gone", Seq: 0}}}
	tk := &manualToolkit{}
	c := New(surface, tk)
	t.Cleanup(c.Teardown)
	require.NoError(t, c.Register("a"))

	layer.InsertBackdrop("")
	layer.InsertBackdrop("")

	require.NotPanics(t, c.NormalizeBackdrops)
	require.Equal(t, 1, layer.Len())

	require.NoError(t, c.Open("a"))
	c.Shown("a")
	requireState(t, c, "a", Open)
	require.Equal(t, 1, layer.Len())
}

func TestSwitchScenario(t *testing.T) {
	layer := NewLayer()
	tk := &asyncToolkit{delay: func() time.Duration { return 150 * time.Millisecond }}
	rec := &recorder{}
	c := New(layer, tk, WithObserver(rec.observe))
	tk.c = c
	t.Cleanup(c.Teardown)
	require.NoError(t, c.Register("A"))
	require.NoError(t, c.Register("B"))

	require.NoError(t, c.Open("A"))
	require.Eventually(t, func() bool {
		s, _ := c.State("A")
		return s == Open
	}, time.Second, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, c.Switch("A", "B", 200*time.Millisecond))
	require.Eventually(t, func() bool {
		s, _ := c.State("B")
		return s == Open
	}, 2*time.Second, 5*time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)

	requireState(t, c, "A", Closed)
	require.Equal(t, 1, layer.Len())
	require.Equal(t, []DialogID{"B"}, c.Stack())

	closedA, ok := rec.find("A", Closed)
	require.True(t, ok)
	require.False(t, closedA.Forced)
	openingB, ok := rec.find("B", Opening)
	require.True(t, ok)
	require.True(t, closedA.At.Before(openingB.At), "A must be closed before B starts opening")
}

func TestSwitchForcesClosedWhenToolkitIsSilent(t *testing.T) {
	cfg := Config{SettleDelay: 20 * time.Millisecond, SecondaryDelay: 10 * time.Millisecond}
	c, layer, tk, rec := newManual(t, cfg)
	require.NoError(t, c.Open("a"))
	c.Shown("a")

	require.NoError(t, c.Switch("a", "b", 0))
	requireState(t, c, "a", Closing)
	require.Eventually(t, func() bool { return tk.showCalls("b") == 1 }, time.Second, 5*time.Millisecond)

	requireState(t, c, "a", Closed)
	tr, ok := rec.find("a", Closed)
	require.True(t, ok)
	require.True(t, tr.Forced)
	require.Equal(t, 1, layer.Len())

	c.Shown("b")
	c.Hidden("a") // arrives after the forced close
	requireState(t, c, "b", Open)
	requireState(t, c, "a", Closed)
	require.Equal(t, 1, layer.Len())
	require.Equal(t, []DialogID{"b"}, c.Stack())
}

func TestSwitchAbsorbsLateBackdrops(t *testing.T) {
	cfg := Config{SettleDelay: 20 * time.Millisecond, SecondaryDelay: 30 * time.Millisecond}
	layer := NewLayer()
	tk := &manualToolkit{}
	var late []Backdrop
	var lateMu sync.Mutex
	c := New(layer, tk, WithConfig(cfg), WithObserver(func(tr Transition) {
		if tr.Dialog == "a" && tr.To == Closed && tr.Forced {
			// the toolkit's own exit path inserting overlays after the fact
			lateMu.Lock()
			late = append(late, layer.InsertBackdrop(""), layer.InsertBackdrop(""))
			lateMu.Unlock()
		}
	}))
	t.Cleanup(c.Teardown)
	require.NoError(t, c.Register("a"))
	require.NoError(t, c.Register("b"))
	require.NoError(t, c.Open("a"))
	c.Shown("a")

	require.NoError(t, c.Switch("a", "b", 0))
	require.Eventually(t, func() bool { return tk.showCalls("b") == 1 }, time.Second, 5*time.Millisecond)
	c.Shown("b")

	lateMu.Lock()
	require.Len(t, late, 2)
	newest := late[1]
	lateMu.Unlock()
	got := layer.Backdrops()
	require.Len(t, got, 1)
	require.Equal(t, newest.ID, got[0].ID)
	require.True(t, layer.ScrollLocked())
}

func TestSwitchAwaitHiddenEndsSettleEarly(t *testing.T) {
	layer := NewLayer()
	tk := &asyncToolkit{delay: func() time.Duration { return 10 * time.Millisecond }}
	c := New(layer, tk, WithConfig(Config{
		SettleDelay:    5 * time.Second,
		SecondaryDelay: 10 * time.Millisecond,
		AwaitHidden:    true,
	}))
	tk.c = c
	t.Cleanup(c.Teardown)
	require.NoError(t, c.Register("a"))
	require.NoError(t, c.Register("b"))

	require.NoError(t, c.Open("a"))
	require.Eventually(t, func() bool {
		s, _ := c.State("a")
		return s == Open
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Switch("a", "b", 0))
	require.Eventually(t, func() bool {
		s, _ := c.State("b")
		return s == Open
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, layer.Len())
	require.Zero(t, c.Pending())
}

func TestHookFailureFallsBackToNormalize(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	require.NoError(t, c.Register("a", OnShown(func(DialogID) error {
		layer.InsertBackdrop("")
		return errors.New("focus target missing")
	})))
	require.NoError(t, c.Register("b", OnHidden(func(DialogID) error {
		panic("detached view")
	})))

	require.NoError(t, c.Open("a"))
	c.Shown("a")
	requireState(t, c, "a", Open)
	require.Equal(t, 1, layer.Len())

	require.NoError(t, c.Open("b"))
	c.Shown("b")
	require.NoError(t, c.Close("b"))
	require.NotPanics(t, func() { c.Hidden("b") })
	requireState(t, c, "b", Closed)
	require.Equal(t, 1, layer.Len())
}

func TestCleanupIntervalScenario(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	layer.InsertBackdrop("")
	layer.InsertBackdrop("")
	newest := layer.InsertBackdrop("")

	dispose := c.RegisterCleanupInterval(time.Second)
	defer dispose()

	require.Eventually(t, func() bool { return layer.Len() == 1 }, 2*time.Second, 20*time.Millisecond)
	require.Equal(t, newest.ID, layer.Backdrops()[0].ID)
}

func TestCleanupIntervalDispose(t *testing.T) {
	c, layer, _, _ := newManual(t, DefaultConfig())
	dispose := c.RegisterCleanupInterval(10 * time.Millisecond)
	dispose()
	require.NotPanics(t, dispose)

	layer.InsertBackdrop("")
	layer.InsertBackdrop("")
	require.Never(t, func() bool { return layer.Len() != 2 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestCloseAllClearsEverything(t *testing.T) {
	c, layer, tk, rec := newManual(t, Config{SettleDelay: 20 * time.Millisecond})
	require.NoError(t, c.Open("a"))
	c.Shown("a")
	require.NoError(t, c.Open("b"))
	require.NoError(t, c.Switch("b", "c", 0))

	c.CloseAll()
	for _, id := range []DialogID{"a", "b", "c"} {
		requireState(t, c, id, Closed)
	}
	require.Equal(t, 0, layer.Len())
	require.False(t, layer.ScrollLocked())
	require.Empty(t, c.Stack())
	require.Zero(t, c.Pending())
	require.GreaterOrEqual(t, tk.hideCalls(), 2)

	tr, ok := rec.find("a", Closed)
	require.True(t, ok)
	require.True(t, tr.Forced)

	// the cancelled switch must not reopen c
	require.Never(t, func() bool { return tk.showCalls("c") > 0 }, 80*time.Millisecond, 10*time.Millisecond)
}

func TestCloseAllFromHiddenHookStopsSwitch(t *testing.T) {
	cfg := Config{SettleDelay: 20 * time.Millisecond, SecondaryDelay: 10 * time.Millisecond}
	c, layer, tk, _ := newManual(t, cfg)
	require.NoError(t, c.Register("a", OnHidden(func(DialogID) error {
		c.CloseAll()
		return nil
	})))
	require.NoError(t, c.Open("a"))
	c.Shown("a")

	// the toolkit stays silent, so the settle step forces a closed and runs
	// its hook while the switch is in flight
	require.NoError(t, c.Switch("a", "b", 0))
	require.Eventually(t, func() bool {
		st, _ := c.State("a")
		return st == Closed && c.Pending() == 0
	}, time.Second, 5*time.Millisecond)

	require.Never(t, func() bool { return tk.showCalls("b") > 0 }, 80*time.Millisecond, 10*time.Millisecond)
	requireState(t, c, "b", Closed)
	require.Zero(t, c.Pending())
	require.Equal(t, 0, layer.Len())
	require.Empty(t, c.Stack())
}

func TestTeardownCancelsTimersAndIntervals(t *testing.T) {
	c, layer, tk, _ := newManual(t, Config{SettleDelay: 20 * time.Millisecond, SecondaryDelay: 10 * time.Millisecond})
	c.RegisterCleanupInterval(10 * time.Millisecond)
	require.NoError(t, c.Open("a"))
	c.Shown("a")
	require.NoError(t, c.Open("b"))
	require.NoError(t, c.Switch("a", "c", 0))
	hidesBefore := tk.hideCalls()

	c.Teardown()
	require.Zero(t, c.Pending())
	require.Equal(t, 0, layer.Len())
	require.False(t, layer.ScrollLocked())
	for _, id := range []DialogID{"a", "b", "c"} {
		requireState(t, c, id, Closed)
	}
	require.Equal(t, hidesBefore, tk.hideCalls(), "teardown must not drive the toolkit")

	layer.InsertBackdrop("")
	layer.InsertBackdrop("")
	require.Never(t, func() bool {
		return tk.showCalls("c") > 0 || layer.Len() != 2
	}, 80*time.Millisecond, 10*time.Millisecond)

	require.ErrorIs(t, c.Open("a"), ErrTornDown)
	require.ErrorIs(t, c.Close("a"), ErrTornDown)
	require.ErrorIs(t, c.Register("d"), ErrTornDown)
	require.NotPanics(t, c.Teardown)
}

func TestRandomSequencesSettleToOneBackdrop(t *testing.T) {
	layer := NewLayer()
	tk := &asyncToolkit{delay: func() time.Duration { return time.Duration(rand.Intn(4)) * time.Millisecond }}
	c := New(layer, tk, WithConfig(Config{SettleDelay: 15 * time.Millisecond, SecondaryDelay: 5 * time.Millisecond}))
	tk.c = c
	t.Cleanup(c.Teardown)

	ids := []DialogID{"a", "b", "c", "d"}
	for _, id := range ids {
		require.NoError(t, c.Register(id))
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(5) {
		case 0, 1:
			require.NoError(t, c.Open(id))
		case 2:
			require.NoError(t, c.Close(id))
		case 3:
			other := ids[(rng.Intn(len(ids)-1)+1+indexOf(ids, id))%len(ids)]
			require.NoError(t, c.Switch(id, other, 0))
		case 4:
			c.NormalizeBackdrops()
		}
		if rng.Intn(4) == 0 {
			time.Sleep(time.Duration(rng.Intn(3)) * time.Millisecond)
		}
		require.LessOrEqual(t, layer.Len(), 2)
	}

	require.Eventually(t, func() bool {
		return c.Pending() == 0 && tk.inflight.Load() == 0
	}, 5*time.Second, 5*time.Millisecond)

	visible := false
	for _, id := range ids {
		s, err := c.State(id)
		require.NoError(t, err)
		require.Contains(t, []State{Open, Closed}, s, "dialog %s settled in %s", id, s)
		visible = visible || s == Open
	}
	if visible {
		require.Equal(t, 1, layer.Len())
		require.True(t, layer.ScrollLocked())
	} else {
		require.Equal(t, 0, layer.Len())
		require.False(t, layer.ScrollLocked())
	}
}

func indexOf(ids []DialogID, id DialogID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
