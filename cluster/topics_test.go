package cluster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugolhafner/streamtest/cluster"
	mockkafka "github.com/hugolhafner/streamtest/kafka/mock"
	"github.com/hugolhafner/streamtest/logger"
)

func TestTopicValidator_CreateTopic(t *testing.T) {
	t.Parallel()

	admin := mockkafka.NewAdmin()
	validator := cluster.NewTopicValidator(admin, logger.NewNoopLogger())

	require.NoError(t, validator.CreateTopic(context.Background(), "input", 4, 1))

	partitions, ok := admin.Created("input")
	require.True(t, ok)
	require.Equal(t, int32(4), partitions)
}

func TestTopicValidator_ValidateConvergesImmediately(t *testing.T) {
	t.Parallel()

	admin := mockkafka.NewAdmin()
	admin.ScriptDescribes("input", mockkafka.DescribeResult{Partitions: 4})

	validator := cluster.NewTopicValidator(admin, logger.NewNoopLogger())
	require.NoError(t, validator.Validate(context.Background(), "input", 4))
}

func TestTopicValidator_ValidateRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	admin := mockkafka.NewAdmin()
	admin.ScriptDescribes(
		"input",
		mockkafka.DescribeResult{Err: errors.New("metadata not yet available")},
		mockkafka.DescribeResult{Err: errors.New("metadata not yet available")},
		mockkafka.DescribeResult{Partitions: 2},
		mockkafka.DescribeResult{Partitions: 4},
	)

	validator := cluster.NewTopicValidator(admin, logger.NewNoopLogger())
	require.NoError(t, validator.Validate(context.Background(), "input", 4))
}

func TestTopicValidator_ValidateExhaustsBudget(t *testing.T) {
	t.Parallel()

	admin := mockkafka.NewAdmin()
	// Metadata never converges: the partition count stays wrong.
	admin.ScriptDescribes("input", mockkafka.DescribeResult{Partitions: 1})

	validator := cluster.NewTopicValidator(admin, logger.NewNoopLogger())

	err := validator.Validate(context.Background(), "input", 4)
	require.Error(t, err)
	require.Contains(t, err.Error(), "after 10 attempts")
	require.Contains(t, err.Error(), "input")
}

func TestTopicValidator_ValidateStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	admin := mockkafka.NewAdmin()
	admin.ScriptDescribes("input", mockkafka.DescribeResult{Partitions: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	validator := cluster.NewTopicValidator(admin, logger.NewNoopLogger())

	err := validator.Validate(ctx, "input", 4)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
