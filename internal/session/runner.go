package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/mdo-br/ADS-Matrix-PQC/internal/crypto"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/metrics"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/traffic"
	"github.com/mdo-br/ADS-Matrix-PQC/internal/workload"
)

var (
	// ErrStalled reports a traffic pattern that stopped firing long
	// enough that the session cannot make progress.
	ErrStalled = errors.New("session: traffic generator stalled")
	// ErrPrimitive wraps a failing crypto primitive call.
	ErrPrimitive = errors.New("session: primitive failure")
)

const (
	// DefaultTick is the virtual-clock step between traffic decisions.
	DefaultTick = 10 * time.Millisecond
	// stallLimit bounds consecutive silent ticks before aborting.
	stallLimit = 1_000_000
)

// DefaultStart anchors the virtual clock on a weekday morning so the
// Realistic pattern starts inside business hours; sessions are short
// enough (minutes of virtual time) that the bucket stays stable.
var DefaultStart = time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC)

// Config describes one session repetition.
type Config struct {
	Scenario  workload.Scenario
	Pattern   traffic.Pattern
	Agreement crypto.Agreement
	Cipher    crypto.Cipher

	Provider crypto.Provider
	Seed     int64

	// Start and Tick default to DefaultStart and DefaultTick.
	Start time.Time
	Tick  time.Duration
}

// Result is the outcome of one completed session.
type Result struct {
	Rotations int
	Messages  int

	TextMsgs   int
	ImageMsgs  int
	FileMsgs   int
	SystemMsgs int

	// Totals holds the session's accumulated value for each canonical
	// metric: KEM and cipher wall-clock milliseconds, KEM and message
	// bandwidth bytes.
	Totals map[string]float64

	FinalState State
}

// Runner executes one session as an explicit state machine. A runner
// is single-use: Run drives it from Idle to a terminal state.
type Runner struct {
	cfg    Config
	state  State
	policy *RotationPolicy

	messages *workload.Generator
	gate     *traffic.Generator

	key    [32]byte
	now    time.Time
	tick   time.Duration
	totals map[string]float64
}

// NewRunner validates the configuration and builds the generators.
// A malformed scenario distribution fails here, before any
// measurement.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Provider == nil {
		return nil, errors.New("session: nil crypto provider")
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultStart
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}

	msgs, err := workload.NewGenerator(cfg.Scenario, cfg.Seed)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:      cfg,
		state:    StateIdle,
		policy:   NewRotationPolicy(cfg.Scenario.RotationInterval(), DefaultTimeThreshold),
		messages: msgs,
		gate:     traffic.NewGenerator(cfg.Pattern, cfg.Seed+1, cfg.Start),
		now:      cfg.Start,
		tick:     cfg.Tick,
		totals: map[string]float64{
			metrics.KEMLatencyMS:    0,
			metrics.CipherLatencyMS: 0,
			metrics.KEMBandwidth:    0,
			metrics.MsgBandwidth:    0,
		},
	}, nil
}

// State returns the current lifecycle state.
func (r *Runner) State() State { return r.state }

func (r *Runner) transition(next State) error {
	if !r.state.CanTransition(next) {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, r.state, next)
	}
	r.state = next
	return nil
}

// abort forces the terminal failure state, bypassing nothing: every
// non-terminal state may abort.
func (r *Runner) abort() {
	if !r.state.Terminal() {
		r.state = StateAborted
	}
}

// agree performs one key agreement, records its samples and re-arms
// the rotation policy.
func (r *Runner) agree() error {
	res, err := r.cfg.Provider.Agree(r.cfg.Agreement)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrimitive, err)
	}
	r.key = res.Key
	r.totals[metrics.KEMLatencyMS] += float64(res.Latency) / float64(time.Millisecond)
	r.totals[metrics.KEMBandwidth] += float64(res.Bytes)
	r.policy.Reset(r.now)
	return nil
}

// Run drives the session to completion and returns its result. On a
// primitive failure the session ends Aborted and the staged totals
// must be discarded by the caller; nothing has touched the shared
// collector.
func (r *Runner) Run() (Result, error) {
	result := Result{Totals: r.totals}

	if err := r.transition(StateEstablished); err != nil {
		return result, err
	}
	if err := r.agree(); err != nil {
		r.abort()
		result.FinalState = r.state
		return result, err
	}
	result.Rotations = 1

	if err := r.transition(StateExchanging); err != nil {
		return result, err
	}

	target := r.cfg.Scenario.MessageCount()
	silent := 0
	for result.Messages < target {
		r.now = r.now.Add(r.tick)
		if !r.gate.ShouldSend(r.now) {
			silent++
			if silent > stallLimit {
				r.abort()
				result.FinalState = r.state
				return result, fmt.Errorf("%w: %d silent ticks in %v", ErrStalled, silent, r.cfg.Pattern)
			}
			continue
		}
		silent = 0

		if r.policy.Due(r.now) {
			if err := r.transition(StateRotating); err != nil {
				return result, err
			}
			if err := r.agree(); err != nil {
				r.abort()
				result.FinalState = r.state
				return result, err
			}
			result.Rotations++
			if err := r.transition(StateExchanging); err != nil {
				return result, err
			}
		}

		msg := r.messages.Generate()
		rt, err := r.cfg.Provider.RoundTrip(r.cfg.Cipher, r.key[:], msg.Payload)
		if err != nil {
			r.abort()
			result.FinalState = r.state
			return result, fmt.Errorf("%w: %v", ErrPrimitive, err)
		}

		r.totals[metrics.CipherLatencyMS] += float64(rt.Latency) / float64(time.Millisecond)
		r.totals[metrics.MsgBandwidth] += float64(rt.CiphertextBytes)

		switch msg.Type {
		case workload.Image:
			result.ImageMsgs++
		case workload.File:
			result.FileMsgs++
		case workload.System:
			result.SystemMsgs++
		default:
			// Text; voice notes tally as text in the output table.
			result.TextMsgs++
		}

		r.policy.OnMessage()
		result.Messages++
	}

	if err := r.transition(StateComplete); err != nil {
		return result, err
	}
	result.FinalState = r.state
	return result, nil
}
