package gate

import "time"

// Admission gate failure policy, in one auditable place: the rate
// limiter fails OPEN when its shared store faults (the signature and
// network checks remain the trust boundary); the dedup index fails
// CLOSED (see process package), because skipping a duplicate check is
// exactly what double-applies a transaction.

var timeNow = time.Now

func SetTimeNowFn(f func() time.Time) {
	timeNow = f
}

func RestoreTimeNow() {
	timeNow = time.Now
}
