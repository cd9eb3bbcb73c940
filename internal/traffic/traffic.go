// Package traffic gates message emission over a virtual simulation
// clock. Each pattern is a small per-instance state machine: no two
// generators share mutable state, and a fixed seed plus a fixed tick
// sequence reproduces the exact same send decisions.
package traffic

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Pattern identifies a traffic rhythm.
type Pattern uint8

const (
	Constant Pattern = iota
	Burst
	Periodic
	Random
	Realistic
)

func (p Pattern) String() string {
	switch p {
	case Constant:
		return "Constant"
	case Burst:
		return "Burst"
	case Periodic:
		return "Periodic"
	case Random:
		return "Random"
	case Realistic:
		return "Realistic"
	default:
		return fmt.Sprintf("Pattern(%d)", uint8(p))
	}
}

// Patterns returns all patterns in enumeration order.
func Patterns() []Pattern {
	return []Pattern{Constant, Burst, Periodic, Random, Realistic}
}

const (
	constantInterval = 100 * time.Millisecond
	burstCooldown    = time.Second
	burstMinSize     = 5
	burstMaxSize     = 10
	periodicPeriod   = 10 * time.Second
	periodicPeak     = 0.3
	randomFireProb   = 0.3
)

// Generator decides, tick by tick, whether the next message should be
// emitted. Not safe for concurrent use; each session owns one.
type Generator struct {
	pattern Pattern
	rng     *rand.Rand

	lastSend time.Time
	lastTick time.Time

	// burst state
	burstBudget int
	burstCount  int

	// periodic state
	phase float64
}

// NewGenerator creates a generator for a pattern. start anchors the
// first interval and, for Realistic, the time-of-day bucket.
func NewGenerator(p Pattern, seed int64, start time.Time) *Generator {
	return &Generator{
		pattern:  p,
		rng:      rand.New(rand.NewSource(seed)),
		lastSend: start,
		lastTick: start,
	}
}

// ShouldSend reports whether a message should be emitted at now.
// It must be called once per simulation tick with non-decreasing
// timestamps.
func (g *Generator) ShouldSend(now time.Time) bool {
	defer func() { g.lastTick = now }()

	switch g.pattern {
	case Constant:
		return g.constantSend(now)
	case Burst:
		return g.burstSend(now)
	case Periodic:
		return g.periodicSend(now, 1.0)
	case Random:
		return g.randomSend(now, 1.0)
	case Realistic:
		return g.realisticSend(now)
	default:
		return false
	}
}

func (g *Generator) constantSend(now time.Time) bool {
	if now.Sub(g.lastSend) >= constantInterval {
		g.lastSend = now
		return true
	}
	return false
}

// burstSend fires a full burst back to back, then pauses for the
// cooldown before drawing a fresh burst budget. Mirrors the burst
// versus regular treatments of Rammos et al. (2021).
func (g *Generator) burstSend(now time.Time) bool {
	if g.burstBudget == 0 {
		g.burstBudget = burstMinSize + g.rng.Intn(burstMaxSize-burstMinSize+1)
	}
	if g.burstCount < g.burstBudget {
		g.burstCount++
		g.lastSend = now
		return true
	}
	if now.Sub(g.lastSend) >= burstCooldown {
		g.burstCount = 0
		g.burstBudget = 0
		g.lastSend = now
		return true
	}
	return false
}

// periodicSend models a heartbeat: the fire probability follows a
// sinusoid over a fixed period, advanced by the elapsed time since the
// previous tick.
func (g *Generator) periodicSend(now time.Time, weight float64) bool {
	elapsed := now.Sub(g.lastTick).Seconds()
	g.phase += elapsed * (2 * math.Pi / periodicPeriod.Seconds())
	prob := (math.Sin(g.phase) + 1) / 2 * periodicPeak * weight
	if g.rng.Float64() < prob {
		g.lastSend = now
		return true
	}
	return false
}

func (g *Generator) randomSend(now time.Time, weight float64) bool {
	if g.rng.Float64() < randomFireProb*weight {
		g.lastSend = now
		return true
	}
	return false
}

// realisticSend approximates human usage rhythms: the hour of the
// virtual day selects which pattern logic is consulted and how hard
// it is damped. Business hours behave bursty, evenings chatter
// randomly, nights fall back to a damped heartbeat.
func (g *Generator) realisticSend(now time.Time) bool {
	hour := now.UTC().Hour()
	switch {
	case hour >= 8 && hour < 18:
		return g.burstSend(now)
	case hour >= 18 && hour < 23:
		return g.randomSend(now, 0.6)
	default:
		return g.periodicSend(now, 0.2)
	}
}
