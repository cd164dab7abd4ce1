package worker

import (
	"time"
)

// periodicCommitter decides when the poll loop should commit marked offsets:
// after maxCount processed records or maxInterval since the last commit,
// whichever comes first.
type periodicCommitter struct {
	maxInterval time.Duration
	maxCount    int

	count      int
	lastCommit time.Time
	channel    chan struct{}
}

func newPeriodicCommitter(maxInterval time.Duration, maxCount int) *periodicCommitter {
	return &periodicCommitter{
		maxInterval: maxInterval,
		maxCount:    maxCount,
		lastCommit:  time.Now(),
		channel:     make(chan struct{}, 1),
	}
}

func (p *periodicCommitter) RecordProcessed(count int) {
	p.count += count
	if p.count > 0 && (p.count >= p.maxCount || time.Since(p.lastCommit) >= p.maxInterval) {
		select {
		case p.channel <- struct{}{}:
		default:
		}

		p.count = 0
		p.lastCommit = time.Now()
	}
}

func (p *periodicCommitter) C() <-chan struct{} {
	return p.channel
}
