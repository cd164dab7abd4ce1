package harness_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hugolhafner/streamtest/checkpoint"
	"github.com/hugolhafner/streamtest/harness"
	"github.com/hugolhafner/streamtest/internal/worker"
	"github.com/hugolhafner/streamtest/job"
	"github.com/hugolhafner/streamtest/kafka"
	"github.com/hugolhafner/streamtest/registry"
)

// capture collects every value the worker under test processes.
type capture struct {
	mu     sync.Mutex
	values [][]byte
}

func (c *capture) process(ctx context.Context, record kafka.ConsumerRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = append(c.values, append([]byte(nil), record.Value...))
	return nil
}

func (c *capture) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([][]byte{}, c.values...)
}

func workerFactory(c *capture) harness.RunnerFactory {
	return func(reg *registry.Registry) job.Runner {
		return worker.New(reg, worker.WithProcessFunc(c.process))
	}
}

func TestHarness_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded cluster test in short mode")
	}

	c := &capture{}
	h := harness.New(
		workerFactory(c),
		harness.WithJobName("e2e-job"),
		harness.WithInputTopic("e2e-input"),
	)

	err := h.Run(context.Background(), func(ctx context.Context, h *harness.Harness) error {
		require.NoError(t, h.Send(ctx, []byte("hello")))
		require.NoError(t, h.Send(ctx, []byte("world")))

		values := c.snapshot()
		require.Equal(t, [][]byte{[]byte("hello"), []byte("world")}, values)

		// The second round corroborated against "world"; the first round's
		// payload is never re-observed.
		task, err := h.Task()
		require.NoError(t, err)
		last, ok := h.Registry().LastReceived(task)
		require.True(t, ok)
		require.Equal(t, []byte("world"), last.Value)

		return h.StopJob(ctx)
	})
	require.NoError(t, err)
}

func TestHarness_RegistrationCardinality(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded cluster test in short mode")
	}

	c := &capture{}
	h := harness.New(workerFactory(c), harness.WithJobName("cardinality-job"))

	err := h.Run(context.Background(), func(ctx context.Context, h *harness.Harness) error {
		require.Equal(t, 1, h.Registry().Len())

		// Start already consumed the registration signals; waiting for a
		// second task that never arrives must time out, not satisfy itself
		// from the first run's signals.
		err := h.Registry().AwaitAllRegistered(2, 200*time.Millisecond)
		require.Error(t, err)
		require.Contains(t, err.Error(), "1 remaining")

		return nil
	})
	require.NoError(t, err)
}

func TestHarness_ReadAllObservesProducedRecords(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded cluster test in short mode")
	}

	c := &capture{}
	h := harness.New(
		workerFactory(c),
		harness.WithJobName("readall-job"),
		harness.WithInputTopic("readall-input"),
	)

	err := h.Run(context.Background(), func(ctx context.Context, h *harness.Harness) error {
		require.NoError(t, h.Send(ctx, []byte("first")))
		require.NoError(t, h.Send(ctx, []byte("second")))

		reader, err := h.ReadAll(ctx, "readall-input", 1, "readall-verifier")
		require.NoError(t, err)
		defer reader.Close()

		values, err := reader.Collect(ctx)
		require.NoError(t, err)
		require.Equal(t, [][]byte{[]byte("first"), []byte("second")}, values)

		return nil
	})
	require.NoError(t, err)
}

func TestHarness_StopJobReportsUnsuccessfulFinish(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded cluster test in short mode")
	}

	c := &capture{}
	h := harness.New(workerFactory(c), harness.WithJobName("stop-job"))

	err := h.Run(context.Background(), func(ctx context.Context, h *harness.Harness) error {
		require.NoError(t, h.Send(ctx, []byte("hello")))
		return h.StopJob(ctx)
	})
	require.NoError(t, err)

	// Stopping twice is an error: the handle is consumed by the first stop.
	require.Error(t, h.StopJob(context.Background()))
}

func TestHarness_CommittedCheckpointAfterKill(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded cluster test in short mode")
	}

	c := &capture{}
	h := harness.New(
		workerFactory(c),
		harness.WithJobName("commit-job"),
		harness.WithInputTopic("commit-input"),
		harness.WithReplication(1),
	)

	err := h.Run(context.Background(), func(ctx context.Context, h *harness.Harness) error {
		members, err := h.GroupMembers(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, members)

		require.NoError(t, h.Send(ctx, []byte("hello")))
		require.NoError(t, h.Send(ctx, []byte("world")))
		require.NoError(t, h.StopJob(ctx))

		// The kill path commits marked offsets before the terminal status, so
		// both records are acknowledged: the committed offset is the next one
		// to consume.
		cp, err := h.CommittedCheckpoint(ctx)
		require.NoError(t, err)

		offset, ok := cp.Offset(
			checkpoint.SystemStreamPartition{System: "kafka", Stream: "commit-input", Partition: 0},
		)
		require.True(t, ok)
		require.Equal(t, "2", offset)

		return nil
	})
	require.NoError(t, err)
}

func TestHarness_RestoreCheckpointRewindsGroup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded cluster test in short mode")
	}

	c := &capture{}
	h := harness.New(
		workerFactory(c),
		harness.WithJobName("restore-job"),
		harness.WithInputTopic("restore-input"),
	)

	err := h.Run(context.Background(), func(ctx context.Context, h *harness.Harness) error {
		require.NoError(t, h.Send(ctx, []byte("hello")))
		require.NoError(t, h.Send(ctx, []byte("world")))
		require.NoError(t, h.StopJob(ctx))

		awaitEmptyGroup(t, ctx, h)

		// Persist the snapshot through the wire codec, rewind every partition
		// to zero, and commit the rewound checkpoint back to the group.
		snapshot, err := h.CommittedCheckpoint(ctx)
		require.NoError(t, err)

		codec := checkpoint.NewJSONCodec()
		data, err := codec.Encode(snapshot)
		require.NoError(t, err)
		persisted, err := codec.Decode(data)
		require.NoError(t, err)

		rewound := persisted.Offsets()
		for ssp := range rewound {
			rewound[ssp] = "0"
		}
		require.NoError(t, h.RestoreCheckpoint(ctx, checkpoint.New(rewound)))

		restored, err := h.CommittedCheckpoint(ctx)
		require.NoError(t, err)
		offset, ok := restored.Offset(
			checkpoint.SystemStreamPartition{System: "kafka", Stream: "restore-input", Partition: 0},
		)
		require.True(t, ok)
		require.Equal(t, "0", offset)

		return nil
	})
	require.NoError(t, err)
}

// awaitEmptyGroup polls group membership until the stopped worker's leave has
// propagated; committing from outside the group races a live member.
func awaitEmptyGroup(t *testing.T, ctx context.Context, h *harness.Harness) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for {
		members, err := h.GroupMembers(ctx)
		require.NoError(t, err)
		if members == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("group still has %d members", members)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func TestHarness_CloseRemovesStateRoot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded cluster test in short mode")
	}

	c := &capture{}
	h := harness.New(workerFactory(c), harness.WithJobName("state-job"))

	require.NoError(t, h.Start(context.Background()))

	stateRoot := h.Cluster().StateRoot()
	_, err := os.Stat(stateRoot)
	require.NoError(t, err)

	h.Close()
	h.Close() // idempotent

	_, err = os.Stat(stateRoot)
	require.True(t, os.IsNotExist(err))
}

func TestHarness_StartInjectsJobConfig(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded cluster test in short mode")
	}

	c := &capture{}
	h := harness.New(
		workerFactory(c),
		harness.WithJobName("config-job"),
		harness.WithInputTopic("config-input"),
		harness.WithJobConfig(job.Config{"custom.key": "custom-value"}),
	)
	defer h.Close()

	require.NoError(t, h.Start(context.Background()))

	cfg := h.JobConfig()
	require.Equal(t, "config-job", cfg[job.KeyJobName])
	require.Equal(t, "config-input", cfg[job.KeyInputTopic])
	require.Equal(t, "custom-value", cfg["custom.key"])
	require.NotEmpty(t, cfg[job.KeyBootstrapServers])
	require.Equal(t, h.Cluster().StateRoot(), cfg[job.KeyStateDir])
}

func TestHarness_StartTwiceFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded cluster test in short mode")
	}

	c := &capture{}
	h := harness.New(workerFactory(c), harness.WithJobName("double-start-job"))
	defer h.Close()

	require.NoError(t, h.Start(context.Background()))
	require.Error(t, h.Start(context.Background()))
}
