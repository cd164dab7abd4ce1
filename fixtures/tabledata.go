package fixtures

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/hugolhafner/streamtest/serde"
)

// Synthetic page-view and profile records for table/join style tests. Pure
// data construction; no harness state.

type PageView struct {
	PageKey  string `json:"pageKey"`
	MemberID int    `json:"memberId"`
}

type Profile struct {
	MemberID int    `json:"memberId"`
	Company  string `json:"company"`
}

type EnrichedPageView struct {
	PageView
	Company string `json:"company"`
}

func PageViewSerde() serde.Serde[PageView] {
	return serde.JSON[PageView]()
}

func ProfileSerde() serde.Serde[Profile] {
	return serde.JSON[Profile]()
}

var pageKeys = []string{"inbox", "home", "search", "pymk", "group", "job"}

var companies = []string{"MSFT", "LKND", "GOOG", "FB", "AMZN", "CSCO"}

// GeneratePageViews returns count page views with random page keys and member
// ids in [0, 10).
func GeneratePageViews(count int) []PageView {
	views := make([]PageView, count)
	for i := range views {
		views[i] = PageView{
			PageKey:  pageKeys[rand.Intn(len(pageKeys))],
			MemberID: rand.Intn(10),
		}
	}

	return views
}

// GeneratePageViewsWithDistinctKeys returns count page views whose member ids
// are the distinct values [0, count).
func GeneratePageViewsWithDistinctKeys(count int) []PageView {
	views := make([]PageView, count)
	for i := range views {
		views[i] = PageView{
			PageKey:  pageKeys[rand.Intn(len(pageKeys))],
			MemberID: i,
		}
	}

	return views
}

// GeneratePartitionedPageViews spreads page views with the same member id
// across partitions so repartitioning operators have something to move.
// Member ids cycle through [0, 10); partitionCount must divide count evenly.
func GeneratePartitionedPageViews(count, partitionCount int) (map[int][]PageView, error) {
	if partitionCount <= 0 || count%partitionCount != 0 {
		return nil, fmt.Errorf("partition count %d must divide %d page views evenly", partitionCount, count)
	}

	perPartition := count / partitionCount
	views := make(map[int][]PageView, partitionCount)
	for p := 0; p < partitionCount; p++ {
		views[p] = make([]PageView, 0, perPartition)
	}

	for i := 0; i < count; i++ {
		views[i/perPartition] = append(
			views[i/perPartition], PageView{
				PageKey:  pageKeys[rand.Intn(len(pageKeys))],
				MemberID: i % 10,
			},
		)
	}

	return views, nil
}

// GenerateProfiles returns one profile per member id in [0, count).
func GenerateProfiles(count int) []Profile {
	profiles := make([]Profile, count)
	for i := range profiles {
		profiles[i] = Profile{
			MemberID: i,
			Company:  companies[rand.Intn(len(companies))],
		}
	}

	return profiles
}

// GeneratePartitionedProfiles assigns one profile per member id in
// [0, count) to a partition derived from a hash of the member id, matching
// the partitioner a producer keyed on member id would use.
func GeneratePartitionedProfiles(count, partitionCount int) (map[int][]Profile, error) {
	if partitionCount <= 0 {
		return nil, fmt.Errorf("partition count must be positive, got %d", partitionCount)
	}

	profiles := make(map[int][]Profile, partitionCount)
	for i := 0; i < count; i++ {
		profile := Profile{
			MemberID: i,
			Company:  companies[rand.Intn(len(companies))],
		}

		p := int(memberIDHash(i) % uint32(partitionCount))
		profiles[p] = append(profiles[p], profile)
	}

	return profiles, nil
}

func memberIDHash(memberID int) uint32 {
	h := fnv.New32a()
	var buf [4]byte
	buf[0] = byte(memberID >> 24)
	buf[1] = byte(memberID >> 16)
	buf[2] = byte(memberID >> 8)
	buf[3] = byte(memberID)
	_, _ = h.Write(buf[:])
	return h.Sum32()
}
