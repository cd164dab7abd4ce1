package cluster_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hugolhafner/streamtest/cluster"
	mocklogger "github.com/hugolhafner/streamtest/logger/mock"
)

func TestCluster_StartAndTeardown(t *testing.T) {
	t.Parallel()

	c := cluster.New(cluster.WithBrokers(3))
	require.NoError(t, c.Start())
	defer c.Teardown()

	addrs := c.BrokerAddrs()
	require.Len(t, addrs, 3)
	for _, addr := range addrs {
		require.NotEmpty(t, addr)
	}

	stateRoot := c.StateRoot()
	require.NotEmpty(t, stateRoot)
	info, err := os.Stat(stateRoot)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	c.Teardown()

	_, err = os.Stat(stateRoot)
	require.True(t, os.IsNotExist(err), "state root should be removed by teardown")
}

func TestCluster_StateRootsUniquePerRun(t *testing.T) {
	t.Parallel()

	first := cluster.New()
	require.NoError(t, first.Start())
	defer first.Teardown()

	second := cluster.New()
	require.NoError(t, second.Start())
	defer second.Teardown()

	require.NotEqual(t, first.StateRoot(), second.StateRoot())
}

func TestCluster_DoubleStartPanics(t *testing.T) {
	t.Parallel()

	c := cluster.New()
	require.NoError(t, c.Start())
	defer c.Teardown()

	require.Panics(
		t, func() {
			_ = c.Start()
		},
	)
}

func TestCluster_TeardownIdempotent(t *testing.T) {
	t.Parallel()

	c := cluster.New()
	require.NoError(t, c.Start())

	c.Teardown()
	c.Teardown() // second call is a no-op
}

func TestCluster_StartAfterTeardown(t *testing.T) {
	t.Parallel()

	c := cluster.New()
	require.NoError(t, c.Start())
	c.Teardown()

	require.NoError(t, c.Start())
	defer c.Teardown()

	require.NotEmpty(t, c.BrokerAddrs())
}

func TestCluster_AdminDescribesCreatedTopic(t *testing.T) {
	t.Parallel()

	log := mocklogger.New()
	c := cluster.New(cluster.WithLogger(log))
	require.NoError(t, c.Start())
	defer c.Teardown()

	admin, err := c.Admin()
	require.NoError(t, err)

	validator := cluster.NewTopicValidator(admin, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, validator.CreateTopic(ctx, "cluster-test-topic", 2, 1))
	require.NoError(t, validator.Validate(ctx, "cluster-test-topic", 2))
}

func TestCluster_AdminBeforeStartFails(t *testing.T) {
	t.Parallel()

	c := cluster.New()

	_, err := c.Admin()
	require.Error(t, err)
}
