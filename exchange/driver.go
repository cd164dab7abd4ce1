package exchange

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hugolhafner/streamtest/kafka"
	"github.com/hugolhafner/streamtest/logger"
	"github.com/hugolhafner/streamtest/registry"
)

// Driver publishes single records into a job's input topic and corroborates
// receipt through the task registry's gates.
type Driver struct {
	producer kafka.Producer
	registry *registry.Registry

	bootstrapServers []string
	consumerFactory  func(group string) (kafka.Consumer, error)
	timeout          time.Duration
	logger           logger.Logger
}

type DriverOption func(*Driver)

// WithBootstrapServers sets the broker list ReadAll consumers connect to.
func WithBootstrapServers(servers []string) DriverOption {
	return func(d *Driver) {
		d.bootstrapServers = servers
	}
}

// WithConsumerFactory overrides how ReadAll builds its consumer.
func WithConsumerFactory(fn func(group string) (kafka.Consumer, error)) DriverOption {
	return func(d *Driver) {
		d.consumerFactory = fn
	}
}

func WithTimeout(d time.Duration) DriverOption {
	return func(drv *Driver) {
		if d > 0 {
			drv.timeout = d
		}
	}
}

func WithLogger(l logger.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = l.With("component", "exchange")
	}
}

func NewDriver(producer kafka.Producer, reg *registry.Registry, opts ...DriverOption) *Driver {
	d := &Driver{
		producer: producer,
		registry: reg,
		timeout:  registry.DefaultTimeout,
		logger:   logger.NewNoopLogger(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.consumerFactory == nil {
		d.consumerFactory = func(group string) (kafka.Consumer, error) {
			return kafka.NewKgoClient(
				kafka.WithBootstrapServers(d.bootstrapServers),
				kafka.WithGroupID(group),
				kafka.WithStartAtEarliest(),
				kafka.WithLogger(d.logger),
			)
		}
	}

	return d
}

// Send publishes one record synchronously, waits for the owning task to
// observe it, and asserts the received payload equals the sent payload by
// value. The task's message-received gate is rearmed before the record is
// produced, so a signal left over from an earlier round cannot satisfy this
// round's wait.
func (d *Driver) Send(ctx context.Context, topic string, payload []byte, task registry.TaskName) error {
	d.registry.RearmMessageReceived(task)

	if err := d.producer.Send(ctx, topic, nil, payload, nil); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}

	if err := d.registry.AwaitMessageReceived(task, d.timeout); err != nil {
		return fmt.Errorf("message not observed by task: %w", err)
	}

	received, ok := d.registry.LastReceived(task)
	if !ok {
		return fmt.Errorf("task %s signaled receipt but recorded no payload", task)
	}

	if !bytes.Equal(received.Value, payload) {
		return fmt.Errorf(
			"payload mismatch: sent %q, task %s observed %q", payload, task, received.Value,
		)
	}

	return nil
}
