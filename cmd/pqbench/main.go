// Command pqbench runs the full-factorial crypto benchmark sweep and
// writes the aggregate result table as CSV.
//
// Flags may also come from the environment (PQBENCH_* variables,
// optionally via a dotenv file); an explicit flag always wins.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mdo-br/ADS-Matrix-PQC/internal/experiment"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/metrics"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/report"
)

func main() {
	var (
		reps          = flag.Int("reps", experiment.DefaultRepetitions, "repetitions per configuration")
		seed          = flag.Uint64("seed", 0, "master seed (0 picks a time-based seed)")
		deterministic = flag.Bool("deterministic", false, "single worker, fixed execution order")
		workers       = flag.Int("workers", 0, "worker pool size (0 uses the default)")
		out           = flag.String("out", "results.csv", "result table path (- for stdout)")
		extended      = flag.String("extended", "", "also write the diagnostic table here")
		raw           = flag.String("raw", "", "also write the lz4 raw-sample archive here")
		envFile       = flag.String("env", "", "dotenv file to load (default: .env if present)")
		verbose       = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
			os.Exit(2)
		}
	} else {
		// Best effort; a missing .env is not an error.
		_ = godotenv.Load()
	}
	applyEnvFallbacks(reps, seed, deterministic, workers, out, extended, raw, verbose)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
		log.Info("no master seed given, using time-based seed", "seed", *seed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := experiment.Options{
		Repetitions:   *reps,
		MasterSeed:    *seed,
		Deterministic: *deterministic,
		Workers:       *workers,
		Logger:        log,
	}

	var rawFile *os.File
	if *raw != "" {
		f, err := os.Create(*raw)
		if err != nil {
			log.Error("create raw archive", "path", *raw, "err", err)
			os.Exit(1)
		}
		rawFile = f
		opts.Archive = metrics.NewArchive(f)
	}

	res, err := experiment.Run(ctx, opts)
	if opts.Archive != nil {
		if cerr := opts.Archive.Close(); cerr != nil {
			log.Error("close raw archive", "err", cerr)
		}
		if cerr := rawFile.Close(); cerr != nil {
			log.Error("close raw archive file", "err", cerr)
		}
	}
	if err != nil {
		log.Error("sweep did not finish", "err", err, "records", len(res.Records))
		if len(res.Records) == 0 {
			os.Exit(1)
		}
		// A partial table is still worth writing.
	}

	for _, f := range res.Failed {
		log.Warn("configuration failed", "config", f.Config.ID(), "reason", f.Reason)
	}

	if err := writeTable(*out, res.Records, report.WriteCSV); err != nil {
		log.Error("write result table", "path", *out, "err", err)
		os.Exit(1)
	}
	if *extended != "" {
		if err := writeTable(*extended, res.Records, report.WriteExtendedCSV); err != nil {
			log.Error("write diagnostic table", "path", *extended, "err", err)
			os.Exit(1)
		}
	}

	log.Info("done",
		"run_id", res.RunID,
		"seed", res.MasterSeed,
		"records", len(res.Records),
		"failed", len(res.Failed),
		"out", *out)
	if len(res.Failed) > 0 && len(res.Records) == 0 {
		os.Exit(1)
	}
}

func writeTable(path string, records []experiment.AggregateRecord, write func(w io.Writer, records []experiment.AggregateRecord) error) error {
	if path == "-" {
		return write(os.Stdout, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// applyEnvFallbacks fills in flags the command line left untouched
// from PQBENCH_* environment variables.
func applyEnvFallbacks(reps *int, seed *uint64, deterministic *bool, workers *int, out, extended, raw *string, verbose *bool) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if v := os.Getenv("PQBENCH_REPS"); v != "" && !set["reps"] {
		if n, err := strconv.Atoi(v); err == nil {
			*reps = n
		}
	}
	if v := os.Getenv("PQBENCH_SEED"); v != "" && !set["seed"] {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*seed = n
		}
	}
	if v := os.Getenv("PQBENCH_DETERMINISTIC"); v != "" && !set["deterministic"] {
		if b, err := strconv.ParseBool(v); err == nil {
			*deterministic = b
		}
	}
	if v := os.Getenv("PQBENCH_WORKERS"); v != "" && !set["workers"] {
		if n, err := strconv.Atoi(v); err == nil {
			*workers = n
		}
	}
	if v := os.Getenv("PQBENCH_OUT"); v != "" && !set["out"] {
		*out = v
	}
	if v := os.Getenv("PQBENCH_EXTENDED"); v != "" && !set["extended"] {
		*extended = v
	}
	if v := os.Getenv("PQBENCH_RAW"); v != "" && !set["raw"] {
		*raw = v
	}
	if v := os.Getenv("PQBENCH_VERBOSE"); v != "" && !set["v"] {
		if b, err := strconv.ParseBool(v); err == nil {
			*verbose = b
		}
	}
}
