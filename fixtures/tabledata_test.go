package fixtures_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hugolhafner/streamtest/fixtures"
)

func TestGeneratePageViews(t *testing.T) {
	t.Parallel()

	views := fixtures.GeneratePageViews(50)
	require.Len(t, views, 50)

	for _, v := range views {
		require.NotEmpty(t, v.PageKey)
		require.GreaterOrEqual(t, v.MemberID, 0)
		require.Less(t, v.MemberID, 10)
	}
}

func TestGeneratePageViewsWithDistinctKeys(t *testing.T) {
	t.Parallel()

	views := fixtures.GeneratePageViewsWithDistinctKeys(20)
	require.Len(t, views, 20)

	seen := make(map[int]bool, len(views))
	for _, v := range views {
		require.False(t, seen[v.MemberID])
		seen[v.MemberID] = true
	}
}

func TestGeneratePartitionedPageViews(t *testing.T) {
	t.Parallel()

	views, err := fixtures.GeneratePartitionedPageViews(40, 4)
	require.NoError(t, err)
	require.Len(t, views, 4)

	for p := 0; p < 4; p++ {
		require.Len(t, views[p], 10)
	}
}

func TestGeneratePartitionedPageViews_UnevenSplit(t *testing.T) {
	t.Parallel()

	_, err := fixtures.GeneratePartitionedPageViews(10, 3)
	require.Error(t, err)

	_, err = fixtures.GeneratePartitionedPageViews(10, 0)
	require.Error(t, err)
}

func TestGenerateProfiles(t *testing.T) {
	t.Parallel()

	profiles := fixtures.GenerateProfiles(10)
	require.Len(t, profiles, 10)

	for i, p := range profiles {
		require.Equal(t, i, p.MemberID)
		require.NotEmpty(t, p.Company)
	}
}

func TestGeneratePartitionedProfiles(t *testing.T) {
	t.Parallel()

	profiles, err := fixtures.GeneratePartitionedProfiles(100, 4)
	require.NoError(t, err)

	total := 0
	seen := make(map[int]bool)
	for _, ps := range profiles {
		for _, p := range ps {
			require.False(t, seen[p.MemberID])
			seen[p.MemberID] = true
			total++
		}
	}
	require.Equal(t, 100, total)
}

func TestGeneratePartitionedProfiles_StableAssignment(t *testing.T) {
	t.Parallel()

	first, err := fixtures.GeneratePartitionedProfiles(50, 3)
	require.NoError(t, err)
	second, err := fixtures.GeneratePartitionedProfiles(50, 3)
	require.NoError(t, err)

	// Companies are random but the member-to-partition assignment is a pure
	// function of the member id.
	for p, ps := range first {
		require.Len(t, second[p], len(ps))
		for i := range ps {
			require.Equal(t, ps[i].MemberID, second[p][i].MemberID)
		}
	}

	_, err = fixtures.GeneratePartitionedProfiles(10, 0)
	require.Error(t, err)
}

func TestPageViewSerdeRoundTrip(t *testing.T) {
	t.Parallel()

	s := fixtures.PageViewSerde()
	view := fixtures.PageView{PageKey: "inbox", MemberID: 7}

	data, err := s.Serialise("page-views", view)
	require.NoError(t, err)
	require.JSONEq(t, `{"pageKey":"inbox","memberId":7}`, string(data))

	decoded, err := s.Deserialise("page-views", data)
	require.NoError(t, err)
	require.Equal(t, view, decoded)
}

func TestProfileSerdeRoundTrip(t *testing.T) {
	t.Parallel()

	s := fixtures.ProfileSerde()
	profile := fixtures.Profile{MemberID: 3, Company: "LKND"}

	data, err := s.Serialise("profiles", profile)
	require.NoError(t, err)
	require.JSONEq(t, `{"memberId":3,"company":"LKND"}`, string(data))

	decoded, err := s.Deserialise("profiles", data)
	require.NoError(t, err)
	require.Equal(t, profile, decoded)
}
