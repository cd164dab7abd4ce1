package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/hugolhafner/streamtest/logger"
)

var _ Admin = (*KadmAdmin)(nil)

// KadmAdmin implements Admin on top of franz-go's kadm client.
type KadmAdmin struct {
	client *kgo.Client
	admin  *kadm.Client
	logger logger.Logger
}

func NewKadmAdmin(bootstrapServers []string, l logger.Logger) (*KadmAdmin, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(bootstrapServers...),
		kgo.WithLogger(newKgoLogger(l)),
	)
	if err != nil {
		return nil, fmt.Errorf("create admin client: %w", err)
	}

	return &KadmAdmin{
		client: client,
		admin:  kadm.NewClient(client),
		logger: l,
	}, nil
}

func (a *KadmAdmin) CreateTopic(ctx context.Context, name string, partitions int32, replication int16) error {
	resp, err := a.admin.CreateTopics(ctx, partitions, replication, nil, name)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", name, err)
	}

	topicResp, ok := resp[name]
	if !ok {
		return fmt.Errorf("create topic %s: missing from response", name)
	}

	if topicResp.Err != nil {
		return fmt.Errorf("create topic %s: %w", name, topicResp.Err)
	}

	return nil
}

func (a *KadmAdmin) DescribeTopic(ctx context.Context, name string) (int, error) {
	details, err := a.admin.ListTopics(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("describe topic %s: %w", name, err)
	}

	detail, ok := details[name]
	if !ok {
		return 0, fmt.Errorf("describe topic %s: not in metadata", name)
	}

	if detail.Err != nil {
		return 0, fmt.Errorf("describe topic %s: %w", name, detail.Err)
	}

	return len(detail.Partitions), nil
}

func (a *KadmAdmin) DescribeGroup(ctx context.Context, group string) (int, error) {
	groups, err := a.admin.DescribeGroups(ctx, group)
	if err != nil {
		return 0, fmt.Errorf("describe group %s: %w", group, err)
	}

	described, ok := groups[group]
	if !ok {
		return 0, fmt.Errorf("describe group %s: not in response", group)
	}

	return len(described.Members), nil
}

func (a *KadmAdmin) FetchOffsets(ctx context.Context, group string) (map[TopicPartition]int64, error) {
	offsets, err := a.admin.FetchOffsets(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("fetch offsets for group %s: %w", group, err)
	}

	result := make(map[TopicPartition]int64)
	offsets.Each(
		func(o kadm.OffsetResponse) {
			result[TopicPartition{Topic: o.Topic, Partition: o.Partition}] = o.Offset.At
		},
	)

	return result, nil
}

func (a *KadmAdmin) Close() {
	a.client.Close()
}
