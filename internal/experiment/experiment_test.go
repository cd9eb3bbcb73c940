package experiment

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/mdo-br/ADS-Matrix-PQC/internal/crypto"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/metrics"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/traffic"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/workload"
)

// stubProvider is a cheap deterministic provider; FailCipher marks
// one cipher whose round-trips always fail.
type stubProvider struct {
	FailCipher crypto.Cipher
	hasFail    bool
}

func (s *stubProvider) Agree(a crypto.Agreement) (crypto.AgreeResult, error) {
	n := 32
	if a == crypto.AgreementHybrid {
		n = 2304
	}
	return crypto.AgreeResult{Latency: time.Microsecond, Bytes: n}, nil
}

func (s *stubProvider) RoundTrip(c crypto.Cipher, key, plaintext []byte) (crypto.CipherResult, error) {
	if s.hasFail && c == s.FailCipher {
		return crypto.CipherResult{}, crypto.ErrDecryptionFailed
	}
	return crypto.CipherResult{Latency: time.Microsecond, CiphertextBytes: len(plaintext) + 28}, nil
}

func TestEnumerateFullFactorial(t *testing.T) {
	configs := enumerate(Options{})
	want := len(workload.Scenarios()) * len(traffic.Patterns()) *
		len(crypto.Agreements()) * len(crypto.Ciphers())
	if len(configs) != want {
		t.Fatalf("enumerated %d configurations, want %d", len(configs), want)
	}

	seen := make(map[string]bool, len(configs))
	for _, c := range configs {
		if seen[c.ID()] {
			t.Fatalf("duplicate configuration %s", c.ID())
		}
		seen[c.ID()] = true
	}
}

func TestDeriveSeedIndependence(t *testing.T) {
	seen := make(map[int64]bool)
	for cfg := 0; cfg < 10; cfg++ {
		for rep := 0; rep < 10; rep++ {
			for attempt := 0; attempt < 3; attempt++ {
				s := deriveSeed(42, cfg, rep, attempt)
				if s < 0 {
					t.Fatalf("negative seed for (%d,%d,%d)", cfg, rep, attempt)
				}
				if seen[s] {
					t.Fatalf("seed collision at (%d,%d,%d)", cfg, rep, attempt)
				}
				seen[s] = true
			}
		}
	}
	if deriveSeed(42, 1, 2, 0) != deriveSeed(42, 1, 2, 0) {
		t.Fatal("seed derivation is not a pure function")
	}
}

func TestRotationsFor(t *testing.T) {
	cases := map[workload.Scenario]int{
		workload.SmallChat:     1,
		workload.MediumGroup:   5,
		workload.LargeChannel:  20,
		workload.SystemChannel: 100,
	}
	for s, want := range cases {
		if got := RotationsFor(s); got != want {
			t.Errorf("%s: rotations = %d, want %d", s, got, want)
		}
	}
}

func TestSweepDeterministicForMasterSeed(t *testing.T) {
	opts := Options{
		Repetitions:   3,
		MasterSeed:    1234,
		Deterministic: true,
		Provider:      &stubProvider{},
		Scenarios:     []workload.Scenario{workload.SmallChat},
		Patterns:      []traffic.Pattern{traffic.Constant, traffic.Random},
	}

	a, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(a.Records) != len(b.Records) || len(a.Records) != 2*2*3 {
		t.Fatalf("record counts %d and %d, want %d", len(a.Records), len(b.Records), 12)
	}
	if a.RunID == b.RunID {
		t.Fatal("run IDs must be unique per sweep")
	}
	for i := range a.Records {
		ra, rb := a.Records[i], b.Records[i]
		if ra.Config != rb.Config {
			t.Fatalf("record %d ordering diverged: %s vs %s", i, ra.Config.ID(), rb.Config.ID())
		}
		// Counts and bandwidth are seed-determined; latency is
		// wall-clock and excluded from the comparison.
		if ra.MsgBandwidth != rb.MsgBandwidth {
			t.Errorf("%s: msg_bw summary diverged", ra.Config.ID())
		}
		if ra.TextMsgs != rb.TextMsgs || ra.ImageMsgs != rb.ImageMsgs {
			t.Errorf("%s: type tallies diverged", ra.Config.ID())
		}
	}
}

func TestSweepRecordsSortedAndComplete(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Repetitions: 2,
		MasterSeed:  9,
		Workers:     4,
		Provider:    &stubProvider{},
		Scenarios:   []workload.Scenario{workload.SmallChat, workload.MediumGroup},
		Patterns:    []traffic.Pattern{traffic.Burst},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != 2*1*2*3 {
		t.Fatalf("got %d records, want 12", len(res.Records))
	}
	for i := 1; i < len(res.Records); i++ {
		if !res.Records[i-1].Config.less(res.Records[i].Config) {
			t.Fatalf("records out of order at %d: %s >= %s",
				i, res.Records[i-1].Config.ID(), res.Records[i].Config.ID())
		}
	}
	for _, rec := range res.Records {
		if rec.KEMBandwidth.SampleSize != 2 {
			t.Errorf("%s: kem_bw sample size %d, want 2", rec.Config.ID(), rec.KEMBandwidth.SampleSize)
		}
		if rec.Rotations != RotationsFor(rec.Config.Scenario) {
			t.Errorf("%s: rotations %d, want %d",
				rec.Config.ID(), rec.Rotations, RotationsFor(rec.Config.Scenario))
		}
	}
}

func TestFailedConfigurationExcludedSweepContinues(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Repetitions: 2,
		MasterSeed:  5,
		Workers:     2,
		RetryLimit:  2,
		Provider:    &stubProvider{FailCipher: crypto.CipherMegolm, hasFail: true},
		Scenarios:   []workload.Scenario{workload.SmallChat},
		Patterns:    []traffic.Pattern{traffic.Constant},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 2 agreements x 3 ciphers; the Megolm cells fail, the rest land.
	if len(res.Records) != 4 {
		t.Fatalf("got %d records, want 4", len(res.Records))
	}
	if len(res.Failed) != 2 {
		t.Fatalf("got %d failed cells, want 2", len(res.Failed))
	}
	for _, rec := range res.Records {
		if rec.Config.Cipher == crypto.CipherMegolm {
			t.Fatalf("failed cell %s leaked into the records", rec.Config.ID())
		}
	}
	for _, f := range res.Failed {
		if f.Config.Cipher != crypto.CipherMegolm {
			t.Fatalf("unexpected failed cell %s", f.Config.ID())
		}
		if !strings.Contains(f.Reason, "attempts") {
			t.Fatalf("reason %q does not mention exhausted attempts", f.Reason)
		}
	}
}

func TestSweepArchivesRawSamples(t *testing.T) {
	var buf bytes.Buffer
	archive := metrics.NewArchive(&buf)

	const reps = 3
	res, err := Run(context.Background(), Options{
		Repetitions: reps,
		MasterSeed:  77,
		Provider:    &stubProvider{},
		Scenarios:   []workload.Scenario{workload.SmallChat},
		Patterns:    []traffic.Pattern{traffic.Constant},
		Agreements:  []crypto.Agreement{crypto.AgreementClassical},
		Ciphers:     []crypto.Cipher{crypto.CipherAESGCM},
		Archive:     archive,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := archive.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(res.Records))
	}

	var lines int
	sc := bufio.NewScanner(lz4.NewReader(&buf))
	for sc.Scan() {
		var s metrics.RawSample
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if s.Config != res.Records[0].Config.ID() {
			t.Fatalf("sample for unknown configuration %q", s.Config)
		}
		lines++
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if want := reps * len(metrics.Names); lines != want {
		t.Fatalf("archived %d samples, want %d", lines, want)
	}
}

func TestCancelledContextStopsScheduling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, Options{
		Repetitions: 2,
		Provider:    &stubProvider{},
	})
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	if len(res.Records) != 0 {
		t.Fatalf("cancelled sweep produced %d records", len(res.Records))
	}
}
