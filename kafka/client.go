package kafka

import (
	"context"
	"time"
)

type Client interface {
	Producer
	Consumer

	Ping(ctx context.Context) error
}

type Producer interface {
	// Send publishes one record and waits for the broker acknowledgement.
	Send(ctx context.Context, topic string, key, value []byte, headers []Header) error
	Flush(ctx context.Context) error
	Close()
}

type Consumer interface {
	Subscribe(topics []string, rebalanceCb RebalanceCallback) error
	// Poll returns buffered records, waiting up to timeout when none are
	// pending. A deadline expiry is not an error; it returns an empty batch.
	Poll(ctx context.Context, timeout time.Duration) ([]ConsumerRecord, error)
	MarkRecords(records ...ConsumerRecord)
	Commit(ctx context.Context) error
	Close()
}

type RebalanceCallback interface {
	OnAssigned(partitions []TopicPartition)
	OnRevoked(partitions []TopicPartition)
}

// Admin is the narrow topic/group management surface the harness needs.
type Admin interface {
	// CreateTopic issues the create request without waiting for metadata to
	// propagate; callers validate convergence separately.
	CreateTopic(ctx context.Context, name string, partitions int32, replication int16) error
	// DescribeTopic returns the observed partition count. It may fail
	// transiently while topic metadata is still propagating.
	DescribeTopic(ctx context.Context, name string) (int, error)
	DescribeGroup(ctx context.Context, group string) (members int, err error)
	FetchOffsets(ctx context.Context, group string) (map[TopicPartition]int64, error)
	Close()
}
