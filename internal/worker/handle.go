package worker

import (
	"context"
	"sync"
	"time"

	"github.com/hugolhafner/streamtest/job"
)

var _ job.Handle = (*handle)(nil)

type handle struct {
	mu      sync.Mutex
	status  job.Status
	changed chan struct{}

	cancel context.CancelFunc
}

func newHandle(cancel context.CancelFunc) *handle {
	return &handle{
		status:  job.NotStarted,
		changed: make(chan struct{}),
		cancel:  cancel,
	}
}

func (h *handle) setStatus(s job.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.Terminal() {
		return
	}

	h.status = s
	close(h.changed)
	h.changed = make(chan struct{})
}

func (h *handle) Status() job.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.status
}

// WaitForStatus blocks until the target or a terminal status is reached, or
// the timeout elapses, and returns the last observed status.
func (h *handle) WaitForStatus(target job.Status, timeout time.Duration) job.Status {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		h.mu.Lock()
		status := h.status
		changed := h.changed
		h.mu.Unlock()

		if status == target || status.Terminal() {
			return status
		}

		select {
		case <-changed:
		case <-deadline.C:
			return h.Status()
		}
	}
}

// Kill requests interrupt-style shutdown.
func (h *handle) Kill() {
	h.mu.Lock()
	alreadyTerminal := h.status.Terminal()
	if !alreadyTerminal {
		h.status = job.Killing
		close(h.changed)
		h.changed = make(chan struct{})
	}
	h.mu.Unlock()

	if !alreadyTerminal {
		h.cancel()
	}
}
