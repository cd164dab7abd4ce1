package exchange_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hugolhafner/streamtest/exchange"
	"github.com/hugolhafner/streamtest/kafka"
	mockkafka "github.com/hugolhafner/streamtest/kafka/mock"
	"github.com/hugolhafner/streamtest/registry"
)

type stubTask struct {
	name registry.TaskName
}

func (s stubTask) Name() registry.TaskName         { return s.name }
func (s stubTask) Partition() kafka.TopicPartition { return kafka.TopicPartition{Topic: "input"} }

// echoWorker simulates the worker side: every produced record is immediately
// observed by the owning task.
func echoWorker(reg *registry.Registry, task registry.TaskName) mockkafka.Option {
	offset := int64(0)
	return mockkafka.WithOnSend(
		func(r mockkafka.ProducedRecord) {
			reg.SignalMessageReceived(
				task, kafka.ConsumerRecord{
					Topic:  r.Topic,
					Key:    r.Key,
					Value:  r.Value,
					Offset: offset,
				},
			)
			offset++
		},
	)
}

func TestDriver_SendCorroboratesReceipt(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	_, err := reg.Register(stubTask{name: "partition-0"})
	require.NoError(t, err)

	producer := mockkafka.NewClient(echoWorker(reg, "partition-0"))
	driver := exchange.NewDriver(producer, reg, exchange.WithTimeout(5*time.Second))

	require.NoError(t, driver.Send(context.Background(), "input", []byte("hello"), "partition-0"))

	produced := producer.Produced()
	require.Len(t, produced, 1)
	require.Equal(t, []byte("hello"), produced[0].Value)
}

func TestDriver_SendSuccessiveRounds(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	_, err := reg.Register(stubTask{name: "partition-0"})
	require.NoError(t, err)

	producer := mockkafka.NewClient(echoWorker(reg, "partition-0"))
	driver := exchange.NewDriver(producer, reg, exchange.WithTimeout(5*time.Second))

	require.NoError(t, driver.Send(context.Background(), "input", []byte("hello"), "partition-0"))
	require.NoError(t, driver.Send(context.Background(), "input", []byte("world"), "partition-0"))

	// The second round's value replaces the first; "hello" is never
	// re-observed.
	got, ok := reg.LastReceived("partition-0")
	require.True(t, ok)
	require.Equal(t, []byte("world"), got.Value)
}

func TestDriver_SendFailsOnPayloadMismatch(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	_, err := reg.Register(stubTask{name: "partition-0"})
	require.NoError(t, err)

	// The worker observes a corrupted payload.
	producer := mockkafka.NewClient(
		mockkafka.WithOnSend(
			func(r mockkafka.ProducedRecord) {
				reg.SignalMessageReceived(
					"partition-0", kafka.ConsumerRecord{Topic: r.Topic, Value: []byte("corrupted")},
				)
			},
		),
	)
	driver := exchange.NewDriver(producer, reg, exchange.WithTimeout(5*time.Second))

	err = driver.Send(context.Background(), "input", []byte("hello"), "partition-0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "payload mismatch")
}

func TestDriver_SendFailsWhenProduceFails(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	_, err := reg.Register(stubTask{name: "partition-0"})
	require.NoError(t, err)

	produceErr := errors.New("broker unavailable")
	producer := mockkafka.NewClient(
		mockkafka.WithSendError(
			func(topic string, key, value []byte) error {
				return produceErr
			},
		),
	)
	driver := exchange.NewDriver(producer, reg, exchange.WithTimeout(time.Second))

	err = driver.Send(context.Background(), "input", []byte("hello"), "partition-0")
	require.ErrorIs(t, err, produceErr)
}

func TestDriver_SendTimesOutWithoutReceipt(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	_, err := reg.Register(stubTask{name: "partition-0"})
	require.NoError(t, err)

	// No worker observes anything.
	producer := mockkafka.NewClient()
	driver := exchange.NewDriver(producer, reg, exchange.WithTimeout(50*time.Millisecond))

	err = driver.Send(context.Background(), "input", []byte("hello"), "partition-0")
	require.Error(t, err)
	require.ErrorIs(t, err, registry.ErrGateTimeout)
}

func TestDriver_SendRearmsBeforeProducing(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	_, err := reg.Register(stubTask{name: "partition-0"})
	require.NoError(t, err)

	// A stale signal from before the send must not satisfy the send's wait.
	reg.SignalMessageReceived(
		"partition-0", kafka.ConsumerRecord{Topic: "input", Value: []byte("stale")},
	)

	producer := mockkafka.NewClient()
	driver := exchange.NewDriver(producer, reg, exchange.WithTimeout(50*time.Millisecond))

	err = driver.Send(context.Background(), "input", []byte("fresh"), "partition-0")
	require.Error(t, err)
	require.ErrorIs(t, err, registry.ErrGateTimeout)
}
