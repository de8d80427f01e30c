package modal

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDialog matches every *UnknownDialogError.
	ErrUnknownDialog = errors.New("modal: unknown dialog")
	// ErrDetached is returned by a Surface when the backdrop node is gone.
	ErrDetached = errors.New("modal: backdrop already detached")
	// ErrNotMounted is returned by a Toolkit when the dialog element is not rendered.
	ErrNotMounted = errors.New("modal: dialog not mounted")
	// ErrTornDown is returned once the coordinator has been torn down.
	ErrTornDown = errors.New("modal: coordinator torn down")
)

// UnknownDialogError reports an operation on a dialog that was never registered.
type UnknownDialogError struct {
	Op string
	ID DialogID
}

func (e *UnknownDialogError) Error() string {
	return fmt.Sprintf("modal: %s %q: dialog not registered", e.Op, e.ID)
}

func (e *UnknownDialogError) Is(target error) bool {
	return target == ErrUnknownDialog
}
