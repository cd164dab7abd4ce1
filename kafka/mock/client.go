package mockkafka

import (
	"context"
	"sync"
	"time"

	"github.com/hugolhafner/streamtest/kafka"
)

var _ kafka.Client = (*Client)(nil)

// ProducedRecord represents a record that was sent via the mock producer.
type ProducedRecord struct {
	Topic string
	Key   []byte
	Value []byte
}

type Client struct {
	mu sync.Mutex

	recordQueues   map[kafka.TopicPartition][]kafka.ConsumerRecord
	queuePositions map[kafka.TopicPartition]int

	producedRecords []ProducedRecord
	markedRecords   []kafka.ConsumerRecord
	commits         int

	subscriptions []string
	rebalanceCb   kafka.RebalanceCallback
	assigned      []kafka.TopicPartition

	sendErr func(topic string, key, value []byte) error
	pollErr func() error

	// onSend fires after a successful Send, before it returns. Tests use it
	// to simulate the worker observing the record.
	onSend func(ProducedRecord)

	subscribed bool
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		recordQueues:   make(map[kafka.TopicPartition][]kafka.ConsumerRecord),
		queuePositions: make(map[kafka.TopicPartition]int),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Seed appends records to a partition's queue for later polls.
func (c *Client) Seed(tp kafka.TopicPartition, records ...kafka.ConsumerRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := int64(len(c.recordQueues[tp]))
	for i, r := range records {
		r.Topic = tp.Topic
		r.Partition = tp.Partition
		if r.Offset == 0 {
			r.Offset = base + int64(i)
		}
		c.recordQueues[tp] = append(c.recordQueues[tp], r)
	}
}

func (c *Client) Subscribe(topics []string, rebalanceCb kafka.RebalanceCallback) error {
	c.mu.Lock()

	if c.subscribed {
		c.mu.Unlock()
		return nil
	}

	c.subscriptions = topics
	c.rebalanceCb = rebalanceCb
	c.subscribed = true

	var partitions []kafka.TopicPartition
	for tp := range c.recordQueues {
		for _, topic := range topics {
			if tp.Topic == topic {
				partitions = append(partitions, tp)
				break
			}
		}
	}
	c.assigned = partitions
	c.mu.Unlock()

	if len(partitions) > 0 && rebalanceCb != nil {
		rebalanceCb.OnAssigned(partitions)
	}

	return nil
}

func (c *Client) Poll(ctx context.Context, timeout time.Duration) ([]kafka.ConsumerRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pollErr != nil {
		if err := c.pollErr(); err != nil {
			return nil, err
		}
	}

	var records []kafka.ConsumerRecord
	for _, tp := range c.assigned {
		queue := c.recordQueues[tp]
		pos := c.queuePositions[tp]
		for ; pos < len(queue); pos++ {
			records = append(records, queue[pos])
		}
		c.queuePositions[tp] = pos
	}

	return records, nil
}

func (c *Client) MarkRecords(records ...kafka.ConsumerRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markedRecords = append(c.markedRecords, records...)
}

func (c *Client) Marked() []kafka.ConsumerRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]kafka.ConsumerRecord{}, c.markedRecords...)
}

func (c *Client) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commits++
	return nil
}

func (c *Client) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.commits
}

func (c *Client) Send(ctx context.Context, topic string, key, value []byte, headers []kafka.Header) error {
	c.mu.Lock()

	if c.sendErr != nil {
		if err := c.sendErr(topic, key, value); err != nil {
			c.mu.Unlock()
			return err
		}
	}

	produced := ProducedRecord{Topic: topic, Key: key, Value: value}
	c.producedRecords = append(c.producedRecords, produced)
	onSend := c.onSend
	c.mu.Unlock()

	if onSend != nil {
		onSend(produced)
	}

	return nil
}

func (c *Client) Produced() []ProducedRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]ProducedRecord{}, c.producedRecords...)
}

func (c *Client) Flush(ctx context.Context) error {
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return nil
}

func (c *Client) Close() {}
