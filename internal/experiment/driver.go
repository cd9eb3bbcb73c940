package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mdo-br/ADS-Matrix-PQC/internal/crypto"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/metrics"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/session"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/stats"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/workload"
)

const defaultWorkers = 4

// splitmix64 is the seed-derivation mixer. One step advances the
// state by the golden-gamma constant and scrambles it; distinct
// inputs give statistically independent outputs, so every
// (configuration, repetition, attempt) triple owns its own stream.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// deriveSeed maps (master, configuration index, repetition, attempt)
// to a session seed. Retries use a fresh stream so a seed-dependent
// failure does not repeat verbatim.
func deriveSeed(master uint64, cfgIdx, rep, attempt int) int64 {
	h := splitmix64(master ^ splitmix64(uint64(cfgIdx)))
	h = splitmix64(h + uint64(rep))
	h = splitmix64(h + uint64(attempt)<<32)
	return int64(h >> 1) // keep seeds non-negative
}

// configOutcome is one worker's finished cell.
type configOutcome struct {
	record AggregateRecord
	failed *FailedConfiguration
}

// Run executes the sweep and returns the aggregate table, sorted by
// factor order, plus the cells that failed. A context cancellation
// stops scheduling new configurations and returns the partial result
// with ctx.Err().
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Repetitions <= 0 {
		opts.Repetitions = DefaultRepetitions
	}
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = DefaultRetryLimit
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if opts.Deterministic {
		workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	configs := enumerate(opts)

	// Execution order is shuffled so long scenarios spread across the
	// pool; derived seeds key on the declaration-order index, so the
	// shuffle never changes results.
	order := make([]int, len(configs))
	for i := range order {
		order[i] = i
	}
	if !opts.Deterministic {
		rand.New(rand.NewSource(int64(opts.MasterSeed))).Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	result := Result{
		RunID:      uuid.NewString(),
		MasterSeed: opts.MasterSeed,
	}
	log.Info("sweep starting",
		"run_id", result.RunID,
		"configurations", len(configs),
		"repetitions", opts.Repetitions,
		"workers", workers,
		"master_seed", opts.MasterSeed)

	collector := metrics.NewCollector()

	jobs := make(chan int)
	outcomes := make(chan configOutcome)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			provider := opts.Provider
			if provider == nil {
				suite, err := crypto.NewSuite()
				if err != nil {
					log.Error("suite construction failed, worker idle", "err", err)
					return
				}
				provider = suite
			}
			for idx := range jobs {
				outcomes <- runConfiguration(ctx, opts, configs[idx], idx, provider, collector, log)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, idx := range order {
			select {
			case jobs <- idx:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for out := range outcomes {
		if out.failed != nil {
			result.Failed = append(result.Failed, *out.failed)
			continue
		}
		result.Records = append(result.Records, out.record)
	}

	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].Config.less(result.Records[j].Config)
	})
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].Config.less(result.Failed[j].Config)
	})

	if opts.Archive != nil {
		if err := archiveSweep(opts.Archive, result.Records, collector); err != nil {
			return result, err
		}
	}

	if err := ctx.Err(); err != nil {
		log.Warn("sweep cancelled", "completed", len(result.Records), "failed", len(result.Failed))
		return result, err
	}
	log.Info("sweep finished", "records", len(result.Records), "failed", len(result.Failed))
	return result, nil
}

// runConfiguration measures every repetition of one cell and folds
// the samples into an aggregate record. A repetition that keeps
// failing past the retry limit fails the whole cell; its samples are
// discarded so partial cells never reach the statistics engine.
func runConfiguration(ctx context.Context, opts Options, cfg Configuration, cfgIdx int, provider crypto.Provider, collector *metrics.Collector, log *slog.Logger) configOutcome {
	id := cfg.ID()

	var (
		rotations int
		text, img int
		file, sys int
		lastErr   error
		completed int
	)

	for rep := 0; rep < opts.Repetitions; rep++ {
		if err := ctx.Err(); err != nil {
			return failOutcome(cfg, fmt.Sprintf("cancelled after %d repetitions: %v", completed, err))
		}

		var res session.Result
		var err error
		for attempt := 0; attempt < opts.RetryLimit; attempt++ {
			runner, rerr := session.NewRunner(session.Config{
				Scenario:  cfg.Scenario,
				Pattern:   cfg.Pattern,
				Agreement: cfg.Agreement,
				Cipher:    cfg.Cipher,
				Provider:  provider,
				Seed:      deriveSeed(opts.MasterSeed, cfgIdx, rep, attempt),
			})
			if rerr != nil {
				// Construction errors are configuration defects;
				// retrying cannot help.
				return failOutcome(cfg, rerr.Error())
			}
			res, err = runner.Run()
			if err == nil {
				break
			}
			log.Warn("repetition failed",
				"config", id, "repetition", rep, "attempt", attempt+1, "err", err)
		}
		if err != nil {
			lastErr = err
			break
		}

		collector.MergeTotals(id, res.Totals)
		rotations = res.Rotations
		text += res.TextMsgs
		img += res.ImageMsgs
		file += res.FileMsgs
		sys += res.SystemMsgs
		completed++
	}

	if lastErr != nil {
		return failOutcome(cfg, fmt.Sprintf("repetition %d exhausted %d attempts: %v", completed, opts.RetryLimit, lastErr))
	}

	n := float64(completed)
	rec := AggregateRecord{
		Config:          cfg,
		NumMessages:     cfg.Scenario.MessageCount(),
		MsgsPerRotation: cfg.Scenario.RotationInterval(),
		Rotations:       rotations,
		KEMLatency:      stats.Summarize(collector.Drain(id, metrics.KEMLatencyMS)),
		CipherLatency:   stats.Summarize(collector.Drain(id, metrics.CipherLatencyMS)),
		KEMBandwidth:    stats.Summarize(collector.Drain(id, metrics.KEMBandwidth)),
		MsgBandwidth:    stats.Summarize(collector.Drain(id, metrics.MsgBandwidth)),
		TextMsgs:        float64(text) / n,
		ImageMsgs:       float64(img) / n,
		FileMsgs:        float64(file) / n,
		SystemMsgs:      float64(sys) / n,
	}
	log.Debug("configuration aggregated",
		"config", id,
		"kem_ms_central", rec.KEMLatency.Central,
		"cipher_ms_central", rec.CipherLatency.Central,
		"moderate_outliers", rec.KEMLatency.ModerateOutliers)
	return configOutcome{record: rec}
}

func failOutcome(cfg Configuration, reason string) configOutcome {
	return configOutcome{failed: &FailedConfiguration{Config: cfg, Reason: reason}}
}

// archiveSweep writes every successful cell's raw buckets, in record
// order, for offline reanalysis.
func archiveSweep(a *metrics.Archive, records []AggregateRecord, collector *metrics.Collector) error {
	for _, rec := range records {
		id := rec.Config.ID()
		for _, name := range metrics.Names {
			if err := a.AppendBucket(id, name, collector.Drain(id, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// RotationsFor returns the exact agreement count a scenario incurs:
// the initial establishment plus one rotation per full interval among
// the remaining messages.
func RotationsFor(s workload.Scenario) int {
	return 1 + (s.MessageCount()-1)/s.RotationInterval()
}
