package modal

import "time"

// DialogID identifies a registered dialog.
type DialogID string

// State is a dialog's position in its open/close lifecycle.
type State int

const (
	Closed State = iota
	Opening
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// visible reports whether the dialog is showing or about to show.
func (s State) visible() bool {
	return s == Opening || s == Open
}

// Transition is one state change, delivered to observers after the
// coordinator has released its lock.
type Transition struct {
	Dialog DialogID
	From   State
	To     State
	// Forced is set when the coordinator moved the dialog itself instead of
	// waiting for the toolkit.
	Forced bool
	At     time.Time
}

// Toolkit drives the actual dialog widgets. Show and Hide start the
// widget's animation and return immediately; completion is reported back
// through Coordinator.Shown and Coordinator.Hidden.
type Toolkit interface {
	Show(id DialogID) error
	Hide(id DialogID) error
}

// Hook runs after the toolkit reports that a dialog finished showing or hiding.
type Hook func(id DialogID) error

type dialog struct {
	id       DialogID
	state    State
	backdrop bool
	onShown  Hook
	onHidden Hook
}

// DialogOption configures a dialog at registration.
type DialogOption func(*dialog)

// WithoutBackdrop registers a dialog that renders no backdrop of its own.
func WithoutBackdrop() DialogOption {
	return func(d *dialog) { d.backdrop = false }
}

// OnShown sets the hook run when the dialog has finished opening.
func OnShown(h Hook) DialogOption {
	return func(d *dialog) { d.onShown = h }
}

// OnHidden sets the hook run when the dialog has finished closing.
func OnHidden(h Hook) DialogOption {
	return func(d *dialog) { d.onHidden = h }
}

// Config holds the transition timings. The defaults match a 150ms exit
// animation with some slack.
type Config struct {
	SettleDelay     time.Duration
	SecondaryDelay  time.Duration
	CleanupInterval time.Duration
	// AwaitHidden lets Switch proceed as soon as the closing dialog reports
	// hidden; SettleDelay then acts as an upper bound.
	AwaitHidden bool
}

func DefaultConfig() Config {
	return Config{
		SettleDelay:     200 * time.Millisecond,
		SecondaryDelay:  100 * time.Millisecond,
		CleanupInterval: time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SettleDelay <= 0 {
		c.SettleDelay = def.SettleDelay
	}
	if c.SecondaryDelay <= 0 {
		c.SecondaryDelay = def.SecondaryDelay
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	return c
}
