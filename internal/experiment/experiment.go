// Package experiment runs the full-factorial benchmark sweep: every
// combination of usage scenario, traffic pattern, key-agreement
// protocol and cipher, repeated enough times for the statistics
// engine, with per-configuration seed derivation so a run is
// reproducible from a single master seed.
package experiment

import (
	"fmt"
	"log/slog"

	"github.com/mdo-br/ADS-Matrix-PQC/internal/crypto"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/metrics"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/stats"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/traffic"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/workload"
)

const (
	// DefaultRepetitions is the per-configuration repetition count.
	DefaultRepetitions = 50
	// DefaultRetryLimit bounds attempts per repetition before the
	// configuration is declared failed.
	DefaultRetryLimit = 3
)

// Configuration is one cell of the factorial design.
type Configuration struct {
	Scenario  workload.Scenario
	Pattern   traffic.Pattern
	Agreement crypto.Agreement
	Cipher    crypto.Cipher
}

// ID is the configuration's stable string key, used for collector
// buckets, archive lines and log records.
func (c Configuration) ID() string {
	return fmt.Sprintf("%s/%s/%s/%s", c.Scenario, c.Pattern, c.Agreement, c.Cipher)
}

// less orders configurations by scenario, then pattern, then
// agreement, then cipher, matching factor declaration order.
func (c Configuration) less(o Configuration) bool {
	if c.Scenario != o.Scenario {
		return c.Scenario < o.Scenario
	}
	if c.Pattern != o.Pattern {
		return c.Pattern < o.Pattern
	}
	if c.Agreement != o.Agreement {
		return c.Agreement < o.Agreement
	}
	return c.Cipher < o.Cipher
}

// Options configures a sweep. The zero value plus a master seed is a
// full production run.
type Options struct {
	// Repetitions per configuration; defaults to DefaultRepetitions.
	Repetitions int
	// MasterSeed roots all derived seeds. The same master seed
	// reproduces every message sequence and traffic trace bit for
	// bit; wall-clock latencies still vary with the host.
	MasterSeed uint64
	// Deterministic forces a single worker and factor-declaration
	// execution order, for golden-output comparisons.
	Deterministic bool
	// Workers sizes the pool; defaults to 4. Ignored when
	// Deterministic is set.
	Workers int
	// RetryLimit bounds attempts per repetition; defaults to
	// DefaultRetryLimit.
	RetryLimit int

	// Provider overrides the crypto provider for every session. When
	// nil each worker builds its own Suite.
	Provider crypto.Provider

	// Factor subsets. Empty means the full factor.
	Scenarios  []workload.Scenario
	Patterns   []traffic.Pattern
	Agreements []crypto.Agreement
	Ciphers    []crypto.Cipher

	Logger  *slog.Logger
	Archive *metrics.Archive
}

// AggregateRecord is one output row: the configuration, its scenario
// parameters, and the adaptive summary of each metric across
// completed repetitions.
type AggregateRecord struct {
	Config Configuration

	NumMessages     int
	MsgsPerRotation int
	Rotations       int

	KEMLatency    stats.Summary
	CipherLatency stats.Summary
	KEMBandwidth  stats.Summary
	MsgBandwidth  stats.Summary

	// Mean per-repetition message counts by type. Voice notes are
	// tallied as text.
	TextMsgs   float64
	ImageMsgs  float64
	FileMsgs   float64
	SystemMsgs float64
}

// FailedConfiguration records a cell excluded from the aggregate
// table. The rest of the sweep is unaffected.
type FailedConfiguration struct {
	Config Configuration
	Reason string
}

// Result is a completed sweep.
type Result struct {
	RunID      string
	MasterSeed uint64

	Records []AggregateRecord
	Failed  []FailedConfiguration
}

// enumerate expands the (possibly subset) factors into the full cross
// product, in factor declaration order.
func enumerate(o Options) []Configuration {
	scenarios := o.Scenarios
	if len(scenarios) == 0 {
		scenarios = workload.Scenarios()
	}
	patterns := o.Patterns
	if len(patterns) == 0 {
		patterns = traffic.Patterns()
	}
	agreements := o.Agreements
	if len(agreements) == 0 {
		agreements = crypto.Agreements()
	}
	ciphers := o.Ciphers
	if len(ciphers) == 0 {
		ciphers = crypto.Ciphers()
	}

	configs := make([]Configuration, 0, len(scenarios)*len(patterns)*len(agreements)*len(ciphers))
	for _, s := range scenarios {
		for _, p := range patterns {
			for _, a := range agreements {
				for _, c := range ciphers {
					configs = append(configs, Configuration{s, p, a, c})
				}
			}
		}
	}
	return configs
}
