package worker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugolhafner/streamtest/kafka"
	"github.com/hugolhafner/streamtest/registry"
)

var _ registry.Task = (*partitionTask)(nil)

// partitionTask is the per-partition task instance the worker registers with
// the harness registry. The name is stable for the run and never reused.
type partitionTask struct {
	name      registry.TaskName
	partition kafka.TopicPartition
	stateDir  string

	sawFirstEvent bool
}

func newPartitionTask(tp kafka.TopicPartition, stateRoot string) *partitionTask {
	return &partitionTask{
		name:      registry.TaskName(fmt.Sprintf("partition-%d", tp.Partition)),
		partition: tp,
		stateDir:  filepath.Join(stateRoot, fmt.Sprintf("task-%d", tp.Partition)),
	}
}

func (t *partitionTask) Name() registry.TaskName {
	return t.name
}

func (t *partitionTask) Partition() kafka.TopicPartition {
	return t.partition
}

// setup is the task's initialization hook: it allocates the task's state
// directory before the registry is told initialization completed.
func (t *partitionTask) setup() error {
	if t.stateDir == "" {
		return nil
	}

	if err := os.MkdirAll(t.stateDir, 0o755); err != nil {
		return fmt.Errorf("create task state dir: %w", err)
	}

	return nil
}
