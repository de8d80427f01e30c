package tui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/attendly/hrdesk/internal/modal"
)

// transitionMsg starts a dialog's enter or exit animation.
type transitionMsg struct {
	id   modal.DialogID
	show bool
}

// transitionDoneMsg arrives once the animation has run its course.
type transitionDoneMsg transitionMsg

// stackChangedMsg forces a redraw after the coordinator moved a dialog from
// one of its own timers.
type stackChangedMsg modal.Transition

// dialogHiddenMsg is posted by the OnHidden hook.
type dialogHiddenMsg modal.DialogID

// toolkit is the modal.Toolkit backed by the running program. The
// coordinator calls it from timer goroutines as well as from Update, so it
// only ever posts messages, and posts them asynchronously because
// Program.Send blocks until the event loop receives.
type toolkit struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	mounted map[modal.DialogID]bool
}

func newToolkit() *toolkit {
	return &toolkit{mounted: map[modal.DialogID]bool{}}
}

func (t *toolkit) attach(send func(tea.Msg)) {
	t.mu.Lock()
	t.send = send
	t.mu.Unlock()
}

func (t *toolkit) mount(id modal.DialogID) {
	t.mu.Lock()
	t.mounted[id] = true
	t.mu.Unlock()
}

func (t *toolkit) unmountAll() {
	t.mu.Lock()
	t.mounted = map[modal.DialogID]bool{}
	t.mu.Unlock()
}

func (t *toolkit) Show(id modal.DialogID) error { return t.animate(id, true) }

func (t *toolkit) Hide(id modal.DialogID) error { return t.animate(id, false) }

func (t *toolkit) animate(id modal.DialogID, show bool) error {
	t.mu.Lock()
	ok, send := t.mounted[id], t.send
	t.mu.Unlock()
	if !ok {
		return modal.ErrNotMounted
	}
	if send == nil {
		return fmt.Errorf("%w: no program attached", modal.ErrNotMounted)
	}
	go send(transitionMsg{id: id, show: show})
	return nil
}

// post delivers msg to the program if one is attached.
func (t *toolkit) post(msg tea.Msg) {
	t.mu.Lock()
	send := t.send
	t.mu.Unlock()
	if send != nil {
		go send(msg)
	}
}
