package mockkafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/hugolhafner/streamtest/kafka"
)

var _ kafka.Admin = (*Admin)(nil)

// Admin is a scriptable admin client. Topic metadata convergence is modeled
// by a per-topic sequence of describe results consumed one per call.
type Admin struct {
	mu sync.Mutex

	created   map[string]int32
	describes map[string][]DescribeResult

	groupMembers map[string]int
	offsets      map[string]map[kafka.TopicPartition]int64

	createErr error
	closed    bool
}

type DescribeResult struct {
	Partitions int
	Err        error
}

func NewAdmin() *Admin {
	return &Admin{
		created:      make(map[string]int32),
		describes:    make(map[string][]DescribeResult),
		groupMembers: make(map[string]int),
		offsets:      make(map[string]map[kafka.TopicPartition]int64),
	}
}

// ScriptDescribes queues describe results for a topic. Once the script is
// exhausted the last result repeats.
func (a *Admin) ScriptDescribes(topic string, results ...DescribeResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.describes[topic] = append(a.describes[topic], results...)
}

func (a *Admin) FailCreates(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.createErr = err
}

func (a *Admin) SetGroupMembers(group string, members int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.groupMembers[group] = members
}

// SetOffsets scripts the committed offsets reported for a group.
func (a *Admin) SetOffsets(group string, offsets map[kafka.TopicPartition]int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	copied := make(map[kafka.TopicPartition]int64, len(offsets))
	for tp, offset := range offsets {
		copied[tp] = offset
	}
	a.offsets[group] = copied
}

func (a *Admin) CreateTopic(ctx context.Context, name string, partitions int32, replication int16) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.createErr != nil {
		return a.createErr
	}

	a.created[name] = partitions
	return nil
}

func (a *Admin) Created(name string) (int32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	partitions, ok := a.created[name]
	return partitions, ok
}

func (a *Admin) DescribeTopic(ctx context.Context, name string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	script := a.describes[name]
	if len(script) == 0 {
		return 0, fmt.Errorf("describe topic %s: not in metadata", name)
	}

	result := script[0]
	if len(script) > 1 {
		a.describes[name] = script[1:]
	}

	return result.Partitions, result.Err
}

func (a *Admin) DescribeGroup(ctx context.Context, group string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.groupMembers[group], nil
}

func (a *Admin) FetchOffsets(ctx context.Context, group string) (map[kafka.TopicPartition]int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make(map[kafka.TopicPartition]int64, len(a.offsets[group]))
	for tp, offset := range a.offsets[group] {
		result[tp] = offset
	}

	return result, nil
}

func (a *Admin) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
}

func (a *Admin) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.closed
}
