package cluster

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hugolhafner/streamtest/checkpoint"
	"github.com/hugolhafner/streamtest/kafka"
	"github.com/hugolhafner/streamtest/logger"
)

// SystemName is the system component of every partition identity the
// inspector emits; the harness runs against a single Kafka-compatible system.
const SystemName = "kafka"

// GroupInspector reads consumer-group state off the ensemble: live membership
// and committed offsets, the latter snapshotted as a checkpoint.
type GroupInspector struct {
	admin  kafka.Admin
	logger logger.Logger
}

func NewGroupInspector(admin kafka.Admin, l logger.Logger) *GroupInspector {
	return &GroupInspector{
		admin:  admin,
		logger: l.With("component", "groups"),
	}
}

// Members returns the group's live member count.
func (g *GroupInspector) Members(ctx context.Context, group string) (int, error) {
	return g.admin.DescribeGroup(ctx, group)
}

// CommittedCheckpoint snapshots the group's committed offsets. An unknown or
// empty group yields an empty checkpoint, not an error.
func (g *GroupInspector) CommittedCheckpoint(ctx context.Context, group string) (*checkpoint.Checkpoint, error) {
	offsets, err := g.admin.FetchOffsets(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("snapshot group %s: %w", group, err)
	}

	offsetMap := make(checkpoint.OffsetMap, len(offsets))
	for tp, at := range offsets {
		ssp := checkpoint.SystemStreamPartition{
			System:    SystemName,
			Stream:    tp.Topic,
			Partition: tp.Partition,
		}
		offsetMap[ssp] = strconv.FormatInt(at, 10)
	}

	g.logger.Debug("snapshotted group offsets", "group", group, "partitions", len(offsetMap))

	return checkpoint.New(offsetMap), nil
}

// GroupOffsets converts a checkpoint snapshot back into per-partition commit
// targets. Entries from other systems are rejected, as are offsets that do not
// parse as integers.
func GroupOffsets(cp *checkpoint.Checkpoint) (map[kafka.TopicPartition]kafka.Offset, error) {
	offsets := make(map[kafka.TopicPartition]kafka.Offset, cp.Len())
	for ssp, raw := range cp.Offsets() {
		if ssp.System != SystemName {
			return nil, fmt.Errorf("checkpoint entry %s: unknown system", ssp)
		}

		at, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("checkpoint entry %s: offset %q: %w", ssp, raw, err)
		}

		tp := kafka.TopicPartition{Topic: ssp.Stream, Partition: ssp.Partition}
		offsets[tp] = kafka.Offset{Offset: at, LeaderEpoch: -1}
	}

	return offsets, nil
}
