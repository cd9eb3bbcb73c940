// Package metrics accumulates raw measurement samples per
// (configuration, metric) key and archives them for offline audit.
package metrics

import (
	"sync"
)

// Canonical metric names. Sessions report one value per metric per
// repetition, so a configuration's bucket holds exactly one sample
// per completed repetition.
const (
	KEMLatencyMS    = "kem_ms"
	CipherLatencyMS = "cipher_ms"
	KEMBandwidth    = "kem_bw"
	MsgBandwidth    = "msg_bw"
)

// Names lists the canonical metrics in recording order.
var Names = []string{KEMLatencyMS, CipherLatencyMS, KEMBandwidth, MsgBandwidth}

// Key identifies a sample bucket.
type Key struct {
	Config string
	Metric string
}

// Collector is an append-only store of samples, ordered by insertion
// within each key. The append path is mutex-guarded so repetitions of
// different configurations may record concurrently; contention is low
// because writers touch disjoint keys.
type Collector struct {
	mu      sync.Mutex
	samples map[Key][]float64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{samples: make(map[Key][]float64)}
}

// Record appends one sample.
func (c *Collector) Record(config, metric string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := Key{config, metric}
	c.samples[k] = append(c.samples[k], value)
}

// MergeTotals records one repetition's per-metric totals in canonical
// metric order. Callers must only merge repetitions that completed;
// aborted repetitions never reach the collector.
func (c *Collector) MergeTotals(config string, totals map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range Names {
		v, ok := totals[name]
		if !ok {
			continue
		}
		k := Key{config, name}
		c.samples[k] = append(c.samples[k], v)
	}
}

// Drain returns a copy of the samples for a key, in insertion order.
// The collector's own storage is unaffected; the statistics engine
// consumes the copy.
func (c *Collector) Drain(config, metric string) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.samples[Key{config, metric}]
	return append([]float64(nil), s...)
}

// Count returns the number of samples recorded for a key.
func (c *Collector) Count(config, metric string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples[Key{config, metric}])
}
