package core

import "errors"

// ErrLockHeld is returned by the Sync Service when a job's lock is currently
// held by another owner; the caller should skip the message and rely on the
// bus's redelivery.
var ErrLockHeld = errors.New("job lock held by another owner")

// ErrChildTimeout marks a sub-job whose deadline elapsed before the Scan
// Runner child reported back.
var ErrChildTimeout = errors.New("scan runner did not respond before deadline")
