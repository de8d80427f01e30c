package modal

import (
	"sync"

	"github.com/google/uuid"
)

// Backdrop is the dimming overlay rendered behind an open dialog.
type Backdrop struct {
	ID string
	// Owner is the dialog the backdrop was inserted for; empty when the
	// toolkit inserted it on its own.
	Owner DialogID
	Seq   uint64
}

// Surface is the shared render surface: the backdrop list and the body
// scroll lock. Only the Coordinator should mutate it.
type Surface interface {
	InsertBackdrop(owner DialogID) Backdrop
	RemoveBackdrop(id string) error
	// Backdrops returns the live backdrops in insertion order.
	Backdrops() []Backdrop
	LockScroll()
	UnlockScroll()
	ScrollLocked() bool
}

// Layer is the in-memory Surface the terminal UI renders from.
type Layer struct {
	mu           sync.RWMutex
	seq          uint64
	backdrops    []Backdrop
	scrollLocked bool
}

func NewLayer() *Layer { return &Layer{} }

func (l *Layer) InsertBackdrop(owner DialogID) Backdrop {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	b := Backdrop{ID: uuid.NewString(), Owner: owner, Seq: l.seq}
	l.backdrops = append(l.backdrops, b)
	return b
}

func (l *Layer) RemoveBackdrop(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, b := range l.backdrops {
		if b.ID == id {
			l.backdrops = append(l.backdrops[:i], l.backdrops[i+1:]...)
			return nil
		}
	}
	return ErrDetached
}

func (l *Layer) Backdrops() []Backdrop {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Backdrop, len(l.backdrops))
	copy(out, l.backdrops)
	return out
}

// Len returns the number of live backdrops.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.backdrops)
}

func (l *Layer) LockScroll() {
	l.mu.Lock()
	l.scrollLocked = true
	l.mu.Unlock()
}

func (l *Layer) UnlockScroll() {
	l.mu.Lock()
	l.scrollLocked = false
	l.mu.Unlock()
}

func (l *Layer) ScrollLocked() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.scrollLocked
}
