package flow

import "time"

// Outcome labels used for metrics and logs.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeNoOp      = "no_op"
	OutcomeInjected  = "injected_failure"
	OutcomeRejected  = "rejected"
	OutcomeAccepted  = "accepted"

	ModeSync  = "sync"
	ModeAsync = "async"
)

var timeNow = time.Now

func EpochTime() int64 {
	return timeNow().Unix()
}

func SetTimNowFn(f func() time.Time) {
	timeNow = f
}

func RestoreTimeNow() {
	timeNow = time.Now
}

// sleep is the simulated latency primitive. It cannot be interrupted; a scheduled delay always runs to
// completion.
var sleep = time.Sleep

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
