package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/hugolhafner/streamtest/kafka"
)

const (
	// The first poll waits for group assignment and the initial fetch; later
	// polls only drain already-flowing records.
	initialPollTimeout = 10 * time.Second
	drainPollTimeout   = 100 * time.Millisecond
)

// Message is one decoded entry of a topic read. A nil Value is a tombstone.
type Message struct {
	Key    []byte
	Value  []byte
	Offset int64
}

// Reader is a lazy, finite, non-restartable sequence over one topic from the
// earliest retained offset up to a target offset inclusive. It has no retry
// budget: each step is bounded only by its poll timeout and the caller's
// context, so it should only be used once completion is already guaranteed by
// prior synchronization.
type Reader struct {
	consumer  kafka.Consumer
	maxOffset int64

	buffered []kafka.ConsumerRecord
	polled   bool
	done     bool
	err      error
}

// ReadAll opens a reader over topic under the given consumer group identity.
func (d *Driver) ReadAll(ctx context.Context, topic string, maxOffsetInclusive int64, group string) (*Reader, error) {
	consumer, err := d.consumerFactory(group)
	if err != nil {
		return nil, fmt.Errorf("create reader consumer: %w", err)
	}

	if err := consumer.Subscribe([]string{topic}, nil); err != nil {
		consumer.Close()
		return nil, fmt.Errorf("subscribe reader to %s: %w", topic, err)
	}

	return &Reader{
		consumer:  consumer,
		maxOffset: maxOffsetInclusive,
	}, nil
}

// Next returns the next message. It reports false once a record at or beyond
// the target offset has been observed, or on error (see Err). A finished
// reader stays finished.
func (r *Reader) Next(ctx context.Context) (Message, bool) {
	for {
		if len(r.buffered) > 0 {
			record := r.buffered[0]
			r.buffered = r.buffered[1:]

			if record.Offset > r.maxOffset {
				r.done = true
				return Message{}, false
			}

			if record.Offset == r.maxOffset {
				r.done = true
			}

			return Message{Key: record.Key, Value: record.Value, Offset: record.Offset}, true
		}

		if r.done || r.err != nil {
			return Message{}, false
		}

		timeout := drainPollTimeout
		if !r.polled {
			timeout = initialPollTimeout
		}

		records, err := r.consumer.Poll(ctx, timeout)
		if err != nil {
			r.err = err
			return Message{}, false
		}
		r.polled = true
		r.buffered = records

		if ctx.Err() != nil {
			r.err = ctx.Err()
			return Message{}, false
		}
	}
}

// Err returns the error that terminated the read, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Close() {
	r.consumer.Close()
}

// Collect drains the reader into a slice of values, tombstones preserved as
// nil entries.
func (r *Reader) Collect(ctx context.Context) ([][]byte, error) {
	var values [][]byte
	for {
		msg, ok := r.Next(ctx)
		if !ok {
			break
		}
		values = append(values, msg.Value)
	}

	return values, r.Err()
}
