package traffic

import (
	"testing"
	"time"
)

var testStart = time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC)

// tick runs the generator over n ticks of the given step and returns
// the send decisions.
func tick(g *Generator, n int, step time.Duration) []bool {
	out := make([]bool, n)
	now := testStart
	for i := 0; i < n; i++ {
		now = now.Add(step)
		out[i] = g.ShouldSend(now)
	}
	return out
}

func TestConstantFiresAtInterval(t *testing.T) {
	g := NewGenerator(Constant, 1, testStart)
	decisions := tick(g, 100, 10*time.Millisecond)

	sends := 0
	for i, d := range decisions {
		if d {
			sends++
			// 100ms interval at 10ms ticks: fires on every 10th tick
			if (i+1)%10 != 0 {
				t.Fatalf("constant fired at tick %d", i)
			}
		}
	}
	if sends != 10 {
		t.Fatalf("constant sent %d messages over 1s, want 10", sends)
	}
}

func TestBurstBudgetAndCooldown(t *testing.T) {
	g := NewGenerator(Burst, 2, testStart)
	decisions := tick(g, 500, 10*time.Millisecond)

	// Leading run fires back to back within the budget bounds.
	lead := 0
	for _, d := range decisions {
		if !d {
			break
		}
		lead++
	}
	if lead < burstMinSize || lead > burstMaxSize {
		t.Fatalf("leading burst of %d outside [%d, %d]", lead, burstMinSize, burstMaxSize)
	}

	// After the budget the generator must stay quiet for the cooldown:
	// 1s at 10ms ticks is at least 99 silent ticks.
	silent := 0
	for _, d := range decisions[lead:] {
		if d {
			break
		}
		silent++
	}
	if silent < 99 {
		t.Fatalf("cooldown lasted only %d ticks", silent)
	}
}

func TestDeterminismForFixedSeed(t *testing.T) {
	for _, p := range Patterns() {
		a := NewGenerator(p, 99, testStart)
		b := NewGenerator(p, 99, testStart)
		da := tick(a, 1000, 10*time.Millisecond)
		db := tick(b, 1000, 10*time.Millisecond)
		for i := range da {
			if da[i] != db[i] {
				t.Fatalf("%v: decision %d diverged for identical seeds", p, i)
			}
		}
	}
}

func TestGeneratorsDoNotShareState(t *testing.T) {
	a := NewGenerator(Burst, 5, testStart)
	b := NewGenerator(Burst, 5, testStart)

	// Interleave a's ticks with extra b traffic; a must behave as if
	// b did not exist.
	solo := NewGenerator(Burst, 5, testStart)
	now := testStart
	for i := 0; i < 300; i++ {
		now = now.Add(10 * time.Millisecond)
		want := solo.ShouldSend(now)
		got := a.ShouldSend(now)
		b.ShouldSend(now)
		b.ShouldSend(now.Add(time.Millisecond))
		if got != want {
			t.Fatalf("tick %d: interleaved generator diverged", i)
		}
	}
}

func TestRandomFireRate(t *testing.T) {
	g := NewGenerator(Random, 7, testStart)
	decisions := tick(g, 10000, 10*time.Millisecond)
	sends := 0
	for _, d := range decisions {
		if d {
			sends++
		}
	}
	rate := float64(sends) / float64(len(decisions))
	if rate < 0.27 || rate > 0.33 {
		t.Fatalf("random fire rate %.3f outside [0.27, 0.33]", rate)
	}
}

func TestPeriodicOscillates(t *testing.T) {
	g := NewGenerator(Periodic, 13, testStart)
	// One full 10s period at 10ms ticks.
	decisions := tick(g, 1000, 10*time.Millisecond)

	firstHalf, secondHalf := 0, 0
	for i, d := range decisions {
		if !d {
			continue
		}
		if i < 500 {
			firstHalf++
		} else {
			secondHalf++
		}
	}
	if firstHalf+secondHalf == 0 {
		t.Fatal("periodic never fired over a full period")
	}
	// Rising sine phase front-loads the first half of the period.
	if firstHalf <= secondHalf {
		t.Fatalf("expected front-loaded sends, got %d then %d", firstHalf, secondHalf)
	}
}

func TestRealisticFollowsTimeOfDay(t *testing.T) {
	business := NewGenerator(Realistic, 21, time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC))
	night := NewGenerator(Realistic, 21, time.Date(2025, 7, 14, 2, 0, 0, 0, time.UTC))

	countSends := func(g *Generator, start time.Time) int {
		now := start
		sends := 0
		for i := 0; i < 2000; i++ {
			now = now.Add(10 * time.Millisecond)
			if g.ShouldSend(now) {
				sends++
			}
		}
		return sends
	}

	day := countSends(business, time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC))
	late := countSends(night, time.Date(2025, 7, 14, 2, 0, 0, 0, time.UTC))
	if day <= late {
		t.Fatalf("business hours (%d sends) not busier than late night (%d)", day, late)
	}
}
