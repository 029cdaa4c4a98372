package erasure

import (
	"bytes"
	"fmt"
	log "log/slog"
)

// DecodeResult is the outcome of Decode.
type DecodeResult struct {
	Data []byte
	// Indices of shards that were missing or corrupted and got reconstructed.
	// Callers can rewrite them to repair the stored copy.
	ReconstructedShardsIndices []int
}

// Decode reverses Encode. Missing shards are passed as nil. Up to ParityShardsCount missing or
// corrupted shards are reconstructed.
func (c *Coder) Decode(framed [][]byte) (*DecodeResult, error) {
	if len(framed) != c.ShardsCount() {
		return nil, fmt.Errorf("expected %d shards, got %d", c.ShardsCount(), len(framed))
	}

	r := &DecodeResult{}
	shards := make([][]byte, len(framed))
	dataSize := -1
	for i := range framed {
		ds, shard, ok := unframe(framed[i])
		if !ok {
			if framed[i] != nil {
				log.Info(fmt.Sprintf("shard %d failed checksum, reconstructing it", i))
			}
			r.ReconstructedShardsIndices = append(r.ReconstructedShardsIndices, i)
			continue
		}
		dataSize = ds
		shards[i] = shard
	}
	if len(r.ReconstructedShardsIndices) > c.ParityShardsCount {
		return nil, fmt.Errorf("%d of %d shards are missing or corrupted, at most %d can be reconstructed",
			len(r.ReconstructedShardsIndices), len(shards), c.ParityShardsCount)
	}
	if len(r.ReconstructedShardsIndices) > 0 {
		if err := c.encoder.Reconstruct(shards); err != nil {
			return nil, fmt.Errorf("reconstruct failed, error: %w", err)
		}
	}
	if ok, err := c.encoder.Verify(shards); !ok {
		return nil, fmt.Errorf("shards verification failed, error: %v", err)
	}

	var b bytes.Buffer
	if err := c.encoder.Join(&b, shards, dataSize); err != nil {
		return nil, fmt.Errorf("join failed, error: %w", err)
	}
	r.Data = b.Bytes()
	return r, nil
}
