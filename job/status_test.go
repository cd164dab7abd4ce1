package job_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugolhafner/streamtest/job"
)

func TestStatus_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "not-started", job.NotStarted.String())
	require.Equal(t, "running", job.Running.String())
	require.Equal(t, "killing", job.Killing.String())
	require.Equal(t, "unsuccessful-finish", job.UnsuccessfulFinish.String())
	require.Equal(t, "successful-finish", job.SuccessfulFinish.String())
	require.Equal(t, "unknown", job.Status(99).String())
}

func TestStatus_Terminal(t *testing.T) {
	t.Parallel()

	for _, s := range []job.Status{job.NotStarted, job.Starting, job.Running, job.Killing, job.Completing} {
		require.False(t, s.Terminal(), "%s should not be terminal", s)
	}

	require.True(t, job.UnsuccessfulFinish.Terminal())
	require.True(t, job.SuccessfulFinish.Terminal())
}

func TestConfig_CloneAndMerge(t *testing.T) {
	t.Parallel()

	base := job.Config{"a": "1", "b": "2"}

	cloned := base.Clone()
	cloned["a"] = "changed"
	require.Equal(t, "1", base["a"])

	merged := base.Merge(job.Config{"b": "3", "c": "4"})
	require.Equal(t, job.Config{"a": "1", "b": "3", "c": "4"}, merged)
	require.Equal(t, job.Config{"a": "1", "b": "2"}, base)
}
