package lock

import (
	"context"
	"errors"
	"time"
)

// ErrBusy means another worker holds the lock.
var ErrBusy = errors.New("resource is busy, try again")

// Locker hands out short-lived exclusive locks keyed by name.
// Acquire never blocks: it fails with ErrBusy when the key is taken.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

func LoanInitiationKey(loanID string) string { return "lock:loan:initiate:" + loanID }

func UserApplicationKey(userID string) string { return "lock:user:apply:" + userID }
