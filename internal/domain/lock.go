package domain

import "errors"

// ErrLockHeld is returned when a reservation lock is already held by another party.
var ErrLockHeld = errors.New("lock held")
