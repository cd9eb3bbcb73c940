package metrics

import (
	"bufio"
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pierrec/lz4/v4"
)

func TestRecordPreservesInsertionOrder(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 10; i++ {
		c.Record("cfg", KEMLatencyMS, float64(i))
	}
	got := c.Drain("cfg", KEMLatencyMS)
	if len(got) != 10 {
		t.Fatalf("drained %d samples, want 10", len(got))
	}
	for i, v := range got {
		if v != float64(i) {
			t.Fatalf("sample %d = %v, order not preserved", i, v)
		}
	}
}

func TestDrainReturnsCopy(t *testing.T) {
	c := NewCollector()
	c.Record("cfg", MsgBandwidth, 1)
	a := c.Drain("cfg", MsgBandwidth)
	a[0] = 99
	b := c.Drain("cfg", MsgBandwidth)
	if b[0] != 1 {
		t.Fatal("Drain exposed internal storage")
	}
}

func TestMergeTotalsCanonicalOrder(t *testing.T) {
	c := NewCollector()
	for rep := 0; rep < 3; rep++ {
		c.MergeTotals("cfg", map[string]float64{
			KEMLatencyMS:    float64(rep),
			CipherLatencyMS: float64(rep) * 10,
			KEMBandwidth:    32,
			MsgBandwidth:    float64(rep) * 100,
		})
	}
	for _, name := range Names {
		if n := c.Count("cfg", name); n != 3 {
			t.Fatalf("%s: count %d, want 3", name, n)
		}
	}
	if got := c.Drain("cfg", CipherLatencyMS); got[2] != 20 {
		t.Fatalf("merge order broken: %v", got)
	}
}

func TestConcurrentAppend(t *testing.T) {
	c := NewCollector()
	const writers = 8
	const perWriter = 500

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			cfg := []string{"a", "b"}[w%2]
			for i := 0; i < perWriter; i++ {
				c.Record(cfg, KEMBandwidth, float64(i))
			}
		}(w)
	}
	wg.Wait()

	total := c.Count("a", KEMBandwidth) + c.Count("b", KEMBandwidth)
	if total != writers*perWriter {
		t.Fatalf("lost samples under concurrency: %d != %d", total, writers*perWriter)
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	a := NewArchive(&buf)
	if err := a.AppendBucket("cfg", KEMLatencyMS, []float64{1.5, 2.5, 3.5}); err != nil {
		t.Fatalf("AppendBucket: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sc := bufio.NewScanner(lz4.NewReader(&buf))
	var samples []RawSample
	for sc.Scan() {
		var s RawSample
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(samples) != 3 {
		t.Fatalf("read %d samples, want 3", len(samples))
	}
	if samples[1].Repetition != 1 || samples[1].Value != 2.5 {
		t.Fatalf("sample 1 = %+v", samples[1])
	}
	if samples[0].Config != "cfg" || samples[0].Metric != KEMLatencyMS {
		t.Fatalf("sample 0 key = %+v", samples[0])
	}
}
