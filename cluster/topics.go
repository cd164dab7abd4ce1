package cluster

import (
	"context"
	"fmt"
	"time"

	"github.com/hugolhafner/dskit/backoff"

	"github.com/hugolhafner/streamtest/kafka"
	"github.com/hugolhafner/streamtest/logger"
)

const (
	// Topic creation is asynchronous at the broker layer; metadata may lag
	// the create response. Validation polls up to the attempt budget instead
	// of sleeping a fixed interval.
	validateAttempts = 10
	validateInterval = 500 * time.Millisecond
	describeTimeout  = 500 * time.Millisecond
)

// TopicValidator issues create requests and polls metadata until partition
// counts converge or the retry budget is exhausted.
type TopicValidator struct {
	admin   kafka.Admin
	logger  logger.Logger
	backoff backoff.Backoff
}

func NewTopicValidator(admin kafka.Admin, l logger.Logger) *TopicValidator {
	return &TopicValidator{
		admin:   admin,
		logger:  l.With("component", "topics"),
		backoff: backoff.NewFixed(validateInterval),
	}
}

// CreateTopic issues the create request. It does not wait for the topic
// metadata to propagate; call Validate before using the topic.
func (v *TopicValidator) CreateTopic(ctx context.Context, name string, partitions int32, replication int16) error {
	v.logger.Info("creating topic", "topic", name, "partitions", partitions, "replication", replication)
	return v.admin.CreateTopic(ctx, name, partitions, replication)
}

// Validate polls topic metadata until the observed partition count equals
// expected. Transient describe failures are logged and retried; exhausting
// the attempt budget without convergence is fatal and reports the attempt
// count.
func (v *TopicValidator) Validate(ctx context.Context, name string, expectedPartitions int) error {
	for attempt := 1; attempt <= validateAttempts; attempt++ {
		dctx, cancel := context.WithTimeout(ctx, describeTimeout)
		count, err := v.admin.DescribeTopic(dctx, name)
		cancel()

		switch {
		case err != nil:
			v.logger.Debug("describe topic failed, retrying", "topic", name, "attempt", attempt, "error", err)
		case count == expectedPartitions:
			v.logger.Info("topic metadata converged", "topic", name, "partitions", count, "attempts", attempt)
			return nil
		default:
			v.logger.Debug(
				"partition count not yet converged",
				"topic", name, "attempt", attempt, "expected", expectedPartitions, "observed", count,
			)
		}

		if attempt == validateAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("validate topic %s: %w", name, ctx.Err())
		case <-time.After(v.backoff.Next(uint(attempt))):
		}
	}

	return fmt.Errorf(
		"topic %s did not reach %d partitions after %d attempts",
		name, expectedPartitions, validateAttempts,
	)
}
