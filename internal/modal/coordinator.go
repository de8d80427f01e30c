// Package modal sequences stacked dialogs so that at most one backdrop is
// ever left on the shared surface.
//
// Every open/close/switch request goes through a single Coordinator. It owns
// the visible-dialog stack, the backdrop list and the body scroll lock, and
// it advances each dialog through Closed → Opening → Open → Closing → Closed
// as the toolkit reports its asynchronous animations finishing.
package modal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/attendly/hrdesk/internal/logging"
)

// Coordinator is safe for concurrent use. Timers fire on their own
// goroutines; the toolkit, hooks and observers are always called without the
// coordinator's lock held.
//
// Callers must not issue overlapping transitions for the same dialog pair;
// NormalizeBackdrops is the recovery path when they do.
type Coordinator struct {
	mu        sync.Mutex
	cfg       Config
	surface   Surface
	toolkit   Toolkit
	log       *logging.Logger
	observers []func(Transition)

	dialogs   map[DialogID]*dialog
	stack     []DialogID
	timers    map[uint64]*scheduled
	intervals map[uint64]chan struct{}
	waiters   map[DialogID][]func()
	nextID    uint64
	running   int
	outbox    []Transition
	tornDown  bool
	// epoch advances whenever pending steps are cancelled; a switch step
	// that started before the bump must not schedule or open anything.
	epoch uint64
}

type scheduled struct {
	timer *time.Timer
	fn    func()
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithConfig(cfg Config) Option {
	return func(c *Coordinator) { c.cfg = cfg }
}

func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithObserver registers fn to receive every state transition.
func WithObserver(fn func(Transition)) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, fn) }
}

// New creates a coordinator over surface. A nil toolkit is allowed: every
// dialog is then treated as not mounted and only logical state changes.
func New(surface Surface, toolkit Toolkit, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:       DefaultConfig(),
		surface:   surface,
		toolkit:   toolkit,
		log:       logging.L().With("component", "modal"),
		dialogs:   make(map[DialogID]*dialog),
		timers:    make(map[uint64]*scheduled),
		intervals: make(map[uint64]chan struct{}),
		waiters:   make(map[DialogID][]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg = c.cfg.withDefaults()
	if c.surface == nil {
		c.surface = NewLayer()
	}
	return c
}

// Register adds a dialog, or replaces the options of an existing one while
// keeping its current state.
func (c *Coordinator) Register(id DialogID, opts ...DialogOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return ErrTornDown
	}
	d, ok := c.dialogs[id]
	if !ok {
		d = &dialog{id: id}
		c.dialogs[id] = d
	}
	d.backdrop = true
	d.onShown, d.onHidden = nil, nil
	for _, opt := range opts {
		opt(d)
	}
	return nil
}

// Unregister drops a dialog, forcing it closed first if it is still showing.
func (c *Coordinator) Unregister(id DialogID) error {
	c.mu.Lock()
	d, ok := c.dialogs[id]
	if !ok {
		c.mu.Unlock()
		return &UnknownDialogError{Op: "unregister", ID: id}
	}
	if d.state != Closed {
		c.setStateLocked(d, Closed, true)
		c.popLocked(id)
		c.settleSurfaceLocked()
	}
	delete(c.dialogs, id)
	delete(c.waiters, id)
	c.unlockAndFlush()
	return nil
}

// Open shows a dialog. Opening a dialog that is already open or opening only
// normalizes the backdrop.
func (c *Coordinator) Open(id DialogID) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	d, ok := c.dialogs[id]
	if !ok {
		c.mu.Unlock()
		return &UnknownDialogError{Op: "open", ID: id}
	}
	if d.state.visible() {
		c.ensureBackdropLocked(id)
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(d, Opening, false)
	c.pushLocked(id)
	c.ensureBackdropLocked(id)
	c.unlockAndFlush()

	c.show(id)
	return nil
}

// Close starts hiding a dialog. The backdrop stays until the toolkit reports
// the dialog hidden so the exit animation is not cut short.
func (c *Coordinator) Close(id DialogID) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	d, ok := c.dialogs[id]
	if !ok {
		c.mu.Unlock()
		return &UnknownDialogError{Op: "close", ID: id}
	}
	if !d.state.visible() {
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(d, Closing, false)
	c.unlockAndFlush()

	c.hide(id)
	return nil
}

// Switch closes from and, once its exit transition has settled, opens to.
// The sequence is close → settle → force-normalize → secondary delay →
// normalize → open. A non-positive settle uses the configured SettleDelay.
func (c *Coordinator) Switch(from, to DialogID, settle time.Duration) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	for _, id := range []DialogID{from, to} {
		if _, ok := c.dialogs[id]; !ok {
			c.mu.Unlock()
			return &UnknownDialogError{Op: "switch", ID: id}
		}
	}
	if settle <= 0 {
		settle = c.cfg.SettleDelay
	}
	epoch := c.epoch
	c.mu.Unlock()

	if err := c.Close(from); err != nil {
		return err
	}

	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.epoch != epoch {
		// a close-all ran while from was closing
		c.mu.Unlock()
		return nil
	}
	h := c.scheduleLocked(settle, func() { c.settleSwitch(from, to, epoch) })
	hiddenAlready := false
	if d, ok := c.dialogs[from]; ok && c.cfg.AwaitHidden {
		if d.state == Closed {
			hiddenAlready = true
		} else {
			c.waiters[from] = append(c.waiters[from], func() { c.expedite(h) })
		}
	}
	c.mu.Unlock()

	if hiddenAlready {
		c.expedite(h)
	}
	return nil
}

func (c *Coordinator) settleSwitch(from, to DialogID, epoch uint64) {
	c.mu.Lock()
	if c.tornDown || c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	var hook Hook
	if d, ok := c.dialogs[from]; ok && d.state == Closing {
		c.log.Debugw("dialog still closing after settle delay; forcing closed", "dialog", from)
		c.setStateLocked(d, Closed, true)
		c.popLocked(from)
		hook = d.onHidden
	}
	delete(c.waiters, from)
	c.clearSurfaceLocked()
	c.unlockAndFlush()

	c.runHook("hidden", from, hook)

	c.mu.Lock()
	if !c.tornDown && c.epoch == epoch {
		c.scheduleLocked(c.cfg.SecondaryDelay, func() { c.finishSwitch(to, epoch) })
	}
	c.mu.Unlock()
}

func (c *Coordinator) finishSwitch(to DialogID, epoch uint64) {
	c.mu.Lock()
	if c.tornDown || c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.normalizeLocked()
	c.mu.Unlock()

	if err := c.Open(to); err != nil {
		c.log.Warnw("switch target not opened", "dialog", to, "err", err)
	}
}

// Shown is the toolkit's signal that a dialog finished opening.
func (c *Coordinator) Shown(id DialogID) {
	c.mu.Lock()
	d, ok := c.dialogs[id]
	if c.tornDown || !ok {
		c.mu.Unlock()
		c.log.Debugw("shown signal for inactive dialog ignored", "dialog", id)
		return
	}
	if d.state != Opening {
		state := d.state
		c.mu.Unlock()
		c.log.Debugw("stale shown signal ignored", "dialog", id, "state", state.String())
		return
	}
	c.setStateLocked(d, Open, false)
	c.ensureBackdropLocked(id)
	hook := d.onShown
	c.unlockAndFlush()

	c.runHook("shown", id, hook)
}

// Hidden is the toolkit's signal that a dialog finished closing. This is
// where its backdrop goes away, unless another dialog is still showing.
func (c *Coordinator) Hidden(id DialogID) {
	c.mu.Lock()
	d, ok := c.dialogs[id]
	if c.tornDown || !ok {
		c.mu.Unlock()
		c.log.Debugw("hidden signal for inactive dialog ignored", "dialog", id)
		return
	}
	if d.state != Closing {
		state := d.state
		c.mu.Unlock()
		c.log.Debugw("stale hidden signal ignored", "dialog", id, "state", state.String())
		return
	}
	c.setStateLocked(d, Closed, false)
	c.popLocked(id)
	c.settleSurfaceLocked()
	waiters := c.waiters[id]
	delete(c.waiters, id)
	hook := d.onHidden
	c.unlockAndFlush()

	for _, w := range waiters {
		w()
	}
	c.runHook("hidden", id, hook)
}

// CloseAll forces every dialog closed and clears the surface. Pending
// switches are cancelled so nothing reopens afterwards.
func (c *Coordinator) CloseAll() {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	c.cancelTimersLocked()
	hide := c.closeAllLocked()
	c.unlockAndFlush()

	for _, id := range hide {
		if c.toolkit == nil {
			continue
		}
		if err := c.toolkit.Hide(id); err != nil {
			c.log.Debugw("toolkit hide during close-all failed", "dialog", id, "err", err)
		}
	}
}

// Teardown cancels every pending timer and cleanup interval and force-closes
// all dialogs without touching the toolkit. The coordinator is unusable
// afterwards.
func (c *Coordinator) Teardown() {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	c.cancelTimersLocked()
	for h, stop := range c.intervals {
		close(stop)
		delete(c.intervals, h)
	}
	c.closeAllLocked()
	c.tornDown = true
	c.unlockAndFlush()
}

// NormalizeBackdrops removes all but the most recently inserted backdrop.
// It is idempotent.
func (c *Coordinator) NormalizeBackdrops() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tornDown {
		return
	}
	c.normalizeLocked()
}

// RegisterCleanupInterval runs NormalizeBackdrops every interval until the
// returned disposer is called or the coordinator is torn down. A
// non-positive interval uses the configured CleanupInterval.
func (c *Coordinator) RegisterCleanupInterval(interval time.Duration) (dispose func()) {
	if interval <= 0 {
		interval = c.cfg.CleanupInterval
	}
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return func() {}
	}
	c.nextID++
	h := c.nextID
	stop := make(chan struct{})
	c.intervals[h] = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.NormalizeBackdrops()
			case <-stop:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if ch, ok := c.intervals[h]; ok {
				close(ch)
				delete(c.intervals, h)
			}
		})
	}
}

// State returns the current state of a registered dialog.
func (c *Coordinator) State(id DialogID) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.dialogs[id]
	if !ok {
		return Closed, &UnknownDialogError{Op: "state", ID: id}
	}
	return d.state, nil
}

// Stack returns the dialogs that have not finished closing, bottom first.
func (c *Coordinator) Stack() []DialogID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DialogID, len(c.stack))
	copy(out, c.stack)
	return out
}

// Top returns the topmost dialog that is opening or open.
func (c *Coordinator) Top() (DialogID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.stack) - 1; i >= 0; i-- {
		if d := c.dialogs[c.stack[i]]; d != nil && d.state.visible() {
			return d.id, true
		}
	}
	return "", false
}

// Pending returns the number of scheduled or running transition steps.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers) + c.running
}

func (c *Coordinator) show(id DialogID) {
	err := ErrNotMounted
	if c.toolkit != nil {
		err = c.toolkit.Show(id)
	}
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotMounted) {
		c.log.Debugw("dialog not mounted; advancing logical state only", "dialog", id)
	} else {
		c.log.Warnw("toolkit show failed; advancing logical state only", "dialog", id, "err", err)
	}
	c.Shown(id)
}

func (c *Coordinator) hide(id DialogID) {
	err := ErrNotMounted
	if c.toolkit != nil {
		err = c.toolkit.Hide(id)
	}
	if err == nil {
		return
	}
	if errors.Is(err, ErrNotMounted) {
		c.log.Debugw("dialog not mounted; advancing logical state only", "dialog", id)
	} else {
		c.log.Warnw("toolkit hide failed; advancing logical state only", "dialog", id, "err", err)
	}
	c.Hidden(id)
}

func (c *Coordinator) runHook(event string, id DialogID, h Hook) {
	if h == nil {
		return
	}
	if err := safeCall(h, id); err != nil {
		c.log.Errorw("dialog hook failed; normalizing backdrops", "dialog", id, "event", event, "err", err)
		c.NormalizeBackdrops()
	}
}

func safeCall(h Hook, id DialogID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(id)
}

func (c *Coordinator) closeAllLocked() []DialogID {
	var closed []DialogID
	for i := len(c.stack) - 1; i >= 0; i-- {
		if d := c.dialogs[c.stack[i]]; d != nil && d.state != Closed {
			closed = append(closed, d.id)
			c.setStateLocked(d, Closed, true)
		}
	}
	for _, d := range c.dialogs {
		if d.state != Closed {
			closed = append(closed, d.id)
			c.setStateLocked(d, Closed, true)
		}
	}
	c.stack = nil
	c.waiters = make(map[DialogID][]func())
	c.clearSurfaceLocked()
	return closed
}

// ensureBackdropLocked makes sure exactly one backdrop exists while any
// stacked dialog that has not finished closing wants one, and re-applies the
// scroll lock.
func (c *Coordinator) ensureBackdropLocked(owner DialogID) {
	want := false
	for _, id := range c.stack {
		if d := c.dialogs[id]; d != nil && d.state != Closed && d.backdrop {
			want = true
			break
		}
	}
	if !want {
		// only backdrop-less dialogs remain; they keep the scroll lock
		for _, b := range c.surface.Backdrops() {
			c.removeBackdropLocked(b)
		}
	} else if len(c.surface.Backdrops()) == 0 {
		c.surface.InsertBackdrop(owner)
	}
	if c.anyVisibleLocked() && !c.surface.ScrollLocked() {
		c.surface.LockScroll()
	}
	c.normalizeLocked()
}

// settleSurfaceLocked normalizes while something is showing and clears the
// surface once nothing is.
func (c *Coordinator) settleSurfaceLocked() {
	if c.anyVisibleLocked() {
		top := DialogID("")
		if len(c.stack) > 0 {
			top = c.stack[len(c.stack)-1]
		}
		c.ensureBackdropLocked(top)
		return
	}
	c.clearSurfaceLocked()
}

func (c *Coordinator) normalizeLocked() {
	bs := c.surface.Backdrops()
	if len(bs) <= 1 {
		return
	}
	newest := 0
	for i, b := range bs {
		if b.Seq > bs[newest].Seq {
			newest = i
		}
	}
	for i, b := range bs {
		if i != newest {
			c.removeBackdropLocked(b)
		}
	}
}

func (c *Coordinator) clearSurfaceLocked() {
	for _, b := range c.surface.Backdrops() {
		c.removeBackdropLocked(b)
	}
	c.surface.UnlockScroll()
}

func (c *Coordinator) removeBackdropLocked(b Backdrop) {
	if err := c.surface.RemoveBackdrop(b.ID); err != nil {
		c.log.Debugw("backdrop removal skipped", "backdrop", b.ID, "owner", b.Owner, "err", err)
	}
}

func (c *Coordinator) anyVisibleLocked() bool {
	for _, id := range c.stack {
		if d := c.dialogs[id]; d != nil && d.state.visible() {
			return true
		}
	}
	return false
}

func (c *Coordinator) pushLocked(id DialogID) {
	c.popLocked(id)
	c.stack = append(c.stack, id)
}

func (c *Coordinator) popLocked(id DialogID) {
	for i, sid := range c.stack {
		if sid == id {
			c.stack = append(c.stack[:i], c.stack[i+1:]...)
			return
		}
	}
}

func (c *Coordinator) setStateLocked(d *dialog, to State, forced bool) {
	if d.state == to {
		return
	}
	c.outbox = append(c.outbox, Transition{Dialog: d.id, From: d.state, To: to, Forced: forced, At: time.Now()})
	d.state = to
}

// unlockAndFlush releases the lock and then delivers queued transitions.
func (c *Coordinator) unlockAndFlush() {
	out := c.outbox
	c.outbox = nil
	observers := c.observers
	c.mu.Unlock()
	for _, t := range out {
		for _, fn := range observers {
			fn(t)
		}
	}
}

func (c *Coordinator) scheduleLocked(d time.Duration, fn func()) uint64 {
	c.nextID++
	h := c.nextID
	s := &scheduled{fn: fn}
	s.timer = time.AfterFunc(d, func() { c.fire(h) })
	c.timers[h] = s
	return h
}

func (c *Coordinator) fire(h uint64) {
	c.mu.Lock()
	s, ok := c.timers[h]
	if !ok || c.tornDown {
		c.mu.Unlock()
		return
	}
	delete(c.timers, h)
	c.running++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running--
		c.mu.Unlock()
	}()
	s.fn()
}

// expedite runs a scheduled step now instead of waiting for its timer.
func (c *Coordinator) expedite(h uint64) {
	c.mu.Lock()
	s, ok := c.timers[h]
	if !ok || c.tornDown {
		c.mu.Unlock()
		return
	}
	s.timer.Stop()
	delete(c.timers, h)
	c.running++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running--
		c.mu.Unlock()
	}()
	s.fn()
}

func (c *Coordinator) cancelTimersLocked() {
	c.epoch++
	for h, s := range c.timers {
		s.timer.Stop()
		delete(c.timers, h)
	}
}
