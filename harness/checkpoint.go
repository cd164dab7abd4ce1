package harness

import (
	"context"
	"fmt"

	"github.com/hugolhafner/streamtest/checkpoint"
	"github.com/hugolhafner/streamtest/cluster"
	"github.com/hugolhafner/streamtest/kafka"
)

// GroupMembers returns the live member count of the job's consumer group.
func (h *Harness) GroupMembers(ctx context.Context) (int, error) {
	if h.inspector == nil {
		return 0, fmt.Errorf("harness not started")
	}

	return h.inspector.Members(ctx, h.config.JobName)
}

// CommittedCheckpoint snapshots the offsets the job's group has committed.
// Use it after StopJob to assert what the worker durably acknowledged: the
// kill path issues a final commit before the terminal status is reported, so
// the snapshot is stable once StopJob returns.
func (h *Harness) CommittedCheckpoint(ctx context.Context) (*checkpoint.Checkpoint, error) {
	if h.inspector == nil {
		return nil, fmt.Errorf("harness not started")
	}

	return h.inspector.CommittedCheckpoint(ctx, h.config.JobName)
}

// RestoreCheckpoint commits a checkpoint's offsets to the job's group. The
// group must be empty; restoring under a live worker races its own commits.
func (h *Harness) RestoreCheckpoint(ctx context.Context, cp *checkpoint.Checkpoint) error {
	offsets, err := cluster.GroupOffsets(cp)
	if err != nil {
		return err
	}

	client, err := kafka.NewKgoClient(
		kafka.WithBootstrapServers(h.cluster.BrokerAddrs()),
		kafka.WithGroupID(h.config.JobName),
		kafka.WithLogger(h.logger),
	)
	if err != nil {
		return fmt.Errorf("create restore client: %w", err)
	}
	defer client.Close()

	return client.CommitOffsets(ctx, offsets)
}
