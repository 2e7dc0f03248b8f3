package lock

import "errors"

// ErrBusy is returned by TryWithLock when the handle is already locked.
var ErrBusy = errors.New("handle is locked")
