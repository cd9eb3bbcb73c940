package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// RawSample is one raw measurement as written to the audit archive.
type RawSample struct {
	Config     string  `json:"config"`
	Metric     string  `json:"metric"`
	Repetition int     `json:"repetition"`
	Value      float64 `json:"value"`
}

// Archive streams raw samples as lz4-compressed JSONL so a full sweep
// (120 configurations x 50 repetitions x 4 metrics) stays cheap to
// keep alongside the aggregate table. Writes happen strictly after a
// configuration's measurement finishes, never inside the measured
// path. Safe for concurrent use.
type Archive struct {
	mu  sync.Mutex
	zw  *lz4.Writer
	enc *json.Encoder
}

// NewArchive wraps w in an lz4 stream. Close flushes the compressor;
// closing the underlying writer is the caller's job.
func NewArchive(w io.Writer) *Archive {
	zw := lz4.NewWriter(w)
	return &Archive{zw: zw, enc: json.NewEncoder(zw)}
}

// Append writes one sample line.
func (a *Archive) Append(s RawSample) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.enc.Encode(s); err != nil {
		return fmt.Errorf("metrics: archive sample: %w", err)
	}
	return nil
}

// AppendBucket writes a whole drained bucket in insertion order.
func (a *Archive) AppendBucket(config, metric string, values []float64) error {
	for i, v := range values {
		if err := a.Append(RawSample{Config: config, Metric: metric, Repetition: i, Value: v}); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the lz4 stream.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.zw.Close(); err != nil {
		return fmt.Errorf("metrics: close archive: %w", err)
	}
	return nil
}
