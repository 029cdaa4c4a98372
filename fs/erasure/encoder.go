// Package erasure implements Reed-Solomon erasure coding of stored values into framed shards,
// each shard prefixed by metadata used to detect and repair bitrot.
package erasure

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// Coder splits values into data and parity shards and back.
type Coder struct {
	DataShardsCount   int
	ParityShardsCount int
	encoder           reedsolomon.Encoder
}

const (
	// MetaDataSize is the value size (8 bytes) + checksum (16 bytes) = 24 bytes.
	MetaDataSize = 8 + md5.Size
)

// NewCoder instantiates an erasure coder.
func NewCoder(dataShards int, parityShards int) (*Coder, error) {
	if dataShards <= 0 || parityShards < 0 {
		return nil, fmt.Errorf("data shards must be positive and parity shards non negative, got %d and %d", dataShards, parityShards)
	}
	if (dataShards + parityShards) > 256 {
		return nil, fmt.Errorf("sum of data and parity shards cannot exceed 256")
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Coder{
		DataShardsCount:   dataShards,
		ParityShardsCount: parityShards,
		encoder:           enc,
	}, nil
}

// ShardsCount returns the total number of shards a value is split into.
func (c *Coder) ShardsCount() int {
	return c.DataShardsCount + c.ParityShardsCount
}

// Encode splits data into data and parity shards, each framed with its metadata.
func (c *Coder) Encode(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("can't erasure encode empty data")
	}
	shards, err := c.encoder.Split(data)
	if err != nil {
		return nil, err
	}
	if err := c.encoder.Encode(shards); err != nil {
		return nil, err
	}
	framed := make([][]byte, len(shards))
	for i := range shards {
		framed[i] = Frame(len(data), shards[i])
	}
	return framed, nil
}

// Frame prefixes a shard with the original value size and a checksum covering both.
func Frame(dataSize int, shard []byte) []byte {
	r := make([]byte, MetaDataSize+len(shard))
	binary.BigEndian.PutUint64(r, uint64(dataSize))
	copy(r[MetaDataSize:], shard)
	copy(r[8:MetaDataSize], checksumOf(r[:8], shard))
	return r
}

func checksumOf(size []byte, shard []byte) []byte {
	h := md5.New()
	h.Write(size)
	h.Write(shard)
	return h.Sum(nil)
}

// unframe splits a framed shard. ok is false when the frame is too short or fails its checksum.
func unframe(framed []byte) (dataSize int, shard []byte, ok bool) {
	if len(framed) < MetaDataSize {
		return 0, nil, false
	}
	shard = framed[MetaDataSize:]
	if !bytes.Equal(framed[8:MetaDataSize], checksumOf(framed[:8], shard)) {
		return 0, nil, false
	}
	return int(binary.BigEndian.Uint64(framed)), shard, true
}
