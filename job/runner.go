package job

import (
	"time"
)

// Handle represents one running worker. It is discarded once teardown of the
// run completes.
type Handle interface {
	// Status returns the current lifecycle status.
	Status() Status

	// WaitForStatus blocks until the job reaches target, reaches any
	// terminal status, or the timeout elapses. It returns the last observed
	// status; callers compare it against target.
	WaitForStatus(target Status, timeout time.Duration) Status

	// Kill requests an interrupt-style shutdown. The expected terminal
	// status after a kill is UnsuccessfulFinish.
	Kill()
}

// Runner launches workers. Implementations are external collaborators; the
// harness only observes the lifecycle through the returned Handle.
type Runner interface {
	Launch(cfg Config) (Handle, error)
}
