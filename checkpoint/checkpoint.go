package checkpoint

import (
	"fmt"
)

// SystemStreamPartition identifies one partition of a stream within a system.
type SystemStreamPartition struct {
	System    string
	Stream    string
	Partition int32
}

func (ssp SystemStreamPartition) String() string {
	return fmt.Sprintf("%s.%s-%d", ssp.System, ssp.Stream, ssp.Partition)
}

// OffsetMap maps partitions to their last processed offsets. Keys are unique;
// no ordering is assumed by consumers.
type OffsetMap map[SystemStreamPartition]string

// Checkpoint is an immutable snapshot of an OffsetMap. Construction copies the
// input so the snapshot is unaffected by later mutation of the source map.
type Checkpoint struct {
	offsets OffsetMap
}

func New(offsets OffsetMap) *Checkpoint {
	copied := make(OffsetMap, len(offsets))
	for ssp, offset := range offsets {
		copied[ssp] = offset
	}

	return &Checkpoint{offsets: copied}
}

// Offsets returns a copy of the snapshot's offset map.
func (c *Checkpoint) Offsets() OffsetMap {
	copied := make(OffsetMap, len(c.offsets))
	for ssp, offset := range c.offsets {
		copied[ssp] = offset
	}

	return copied
}

// Offset returns the offset for one partition, if present.
func (c *Checkpoint) Offset(ssp SystemStreamPartition) (string, bool) {
	offset, ok := c.offsets[ssp]
	return offset, ok
}

func (c *Checkpoint) Len() int {
	return len(c.offsets)
}
