package checkpoint

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Codec encodes checkpoints for persistence and decodes persisted bytes back.
type Codec interface {
	Encode(c *Checkpoint) ([]byte, error)
	Decode(data []byte) (*Checkpoint, error)
}

// DecodeError reports malformed non-nil checkpoint bytes. Nil input is not an
// error: Decode(nil) returns a nil checkpoint.
type DecodeError struct {
	cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode checkpoint: %v", e.cause)
}

func (e *DecodeError) Unwrap() error {
	return e.cause
}

var _ Codec = JSONCodec{}

// JSONCodec serializes a checkpoint as a JSON array of partition entries.
// Entries are sorted before marshalling so encoding is deterministic per
// logical content.
type JSONCodec struct{}

func NewJSONCodec() JSONCodec {
	return JSONCodec{}
}

type offsetEntry struct {
	System    string `json:"system"`
	Stream    string `json:"stream"`
	Partition int32  `json:"partition"`
	Offset    string `json:"offset"`
}

func (JSONCodec) Encode(c *Checkpoint) ([]byte, error) {
	if c == nil {
		return nil, nil
	}

	entries := make([]offsetEntry, 0, c.Len())
	for ssp, offset := range c.offsets {
		entries = append(
			entries, offsetEntry{
				System:    ssp.System,
				Stream:    ssp.Stream,
				Partition: ssp.Partition,
				Offset:    offset,
			},
		)
	}

	sort.Slice(
		entries, func(i, j int) bool {
			if entries[i].System != entries[j].System {
				return entries[i].System < entries[j].System
			}
			if entries[i].Stream != entries[j].Stream {
				return entries[i].Stream < entries[j].Stream
			}
			return entries[i].Partition < entries[j].Partition
		},
	)

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}

	return data, nil
}

func (JSONCodec) Decode(data []byte) (*Checkpoint, error) {
	if data == nil {
		return nil, nil
	}

	var entries []offsetEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &DecodeError{cause: err}
	}

	offsets := make(OffsetMap, len(entries))
	for _, e := range entries {
		ssp := SystemStreamPartition{System: e.System, Stream: e.Stream, Partition: e.Partition}
		if _, exists := offsets[ssp]; exists {
			return nil, &DecodeError{cause: fmt.Errorf("duplicate partition entry %s", ssp)}
		}
		offsets[ssp] = e.Offset
	}

	return New(offsets), nil
}
