// Package workload synthesizes message streams for the benchmark.
//
// Message type mixes and size distributions follow the empirical
// instant-messaging characterization literature (Seufert et al. 2015,
// 2023; Xiao et al. 2007; Keshvadi et al. 2020; Zhang et al. 2015;
// Deng et al. 2017): mostly short text, occasional media, scenario
// dependent proportions of files and system notifications.
package workload

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrBadDistribution reports a scenario profile whose categorical
// weights do not sum to 1. It is a construction-time failure; a
// generator is never built from a malformed profile.
var ErrBadDistribution = errors.New("workload: type distribution weights do not sum to 1")

const weightTolerance = 1e-9

// Scenario identifies a usage scenario: a room shape with its own
// message mix, message-count target and key-rotation interval.
type Scenario uint8

const (
	SmallChat Scenario = iota
	MediumGroup
	LargeChannel
	SystemChannel
)

func (s Scenario) String() string {
	switch s {
	case SmallChat:
		return "SmallChat"
	case MediumGroup:
		return "MediumGroup"
	case LargeChannel:
		return "LargeChannel"
	case SystemChannel:
		return "SystemChannel"
	default:
		return fmt.Sprintf("Scenario(%d)", uint8(s))
	}
}

// Scenarios returns all scenarios in enumeration order.
func Scenarios() []Scenario {
	return []Scenario{SmallChat, MediumGroup, LargeChannel, SystemChannel}
}

// MessageCount returns the per-session message target.
func (s Scenario) MessageCount() int {
	switch s {
	case SmallChat:
		return 100
	case MediumGroup:
		return 250
	case LargeChannel:
		return 500
	case SystemChannel:
		return 1000
	default:
		return 0
	}
}

// RotationInterval returns the key-rotation interval in messages,
// mirroring Matrix/Element rotation practice per room size.
func (s Scenario) RotationInterval() int {
	switch s {
	case SmallChat:
		return 100
	case MediumGroup:
		return 50
	case LargeChannel:
		return 25
	case SystemChannel:
		return 10
	default:
		return 0
	}
}

// MessageType classifies a synthesized message.
type MessageType uint8

const (
	Text MessageType = iota
	Image
	File
	System
	Voice
)

func (t MessageType) String() string {
	switch t {
	case Text:
		return "text"
	case Image:
		return "image"
	case File:
		return "file"
	case System:
		return "system"
	case Voice:
		return "voice"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// Message is one synthesized message ready for encryption.
type Message struct {
	Type    MessageType
	Payload []byte
}

// Size returns the payload size in bytes.
func (m Message) Size() int { return len(m.Payload) }

// TypeWeight pairs a message type with its draw probability.
type TypeWeight struct {
	Type   MessageType
	Weight float64
}

// Profile is a scenario's categorical message-type distribution.
type Profile struct {
	Types []TypeWeight
}

func (p Profile) validate() error {
	sum := 0.0
	for _, tw := range p.Types {
		sum += tw.Weight
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: sum=%v", ErrBadDistribution, sum)
	}
	return nil
}

// profileFor returns the empirical message mix for a scenario.
func profileFor(s Scenario) Profile {
	switch s {
	case SmallChat:
		// P2P and small groups: text dominates, media occasional.
		return Profile{Types: []TypeWeight{
			{Text, 0.85}, {Image, 0.12}, {Voice, 0.03},
		}}
	case MediumGroup:
		// Coordination groups share more media and documents.
		return Profile{Types: []TypeWeight{
			{Text, 0.70}, {Image, 0.18}, {File, 0.07}, {Voice, 0.05},
		}}
	case LargeChannel:
		// Large channels carry structured content and moderation noise.
		return Profile{Types: []TypeWeight{
			{Text, 0.60}, {Image, 0.22}, {File, 0.08}, {System, 0.10},
		}}
	case SystemChannel:
		// Automation-heavy rooms: logs, notifications, log dumps.
		return Profile{Types: []TypeWeight{
			{Text, 0.25}, {System, 0.50}, {File, 0.15}, {Image, 0.10},
		}}
	default:
		return Profile{}
	}
}

// Generator produces messages for one scenario from a seeded PRNG.
// Identical seed and scenario produce an identical message sequence.
// Not safe for concurrent use; each session owns its own generator.
type Generator struct {
	profile Profile
	rng     *rand.Rand
}

// NewGenerator builds a generator for a scenario's empirical profile.
func NewGenerator(s Scenario, seed int64) (*Generator, error) {
	return NewGeneratorWithProfile(profileFor(s), seed)
}

// NewGeneratorWithProfile builds a generator from an explicit profile,
// validating the distribution before any message is produced.
func NewGeneratorWithProfile(p Profile, seed int64) (*Generator, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Generator{
		profile: p,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Generate draws the next message: type from the categorical
// distribution, then size from the type's bucketed size distribution.
func (g *Generator) Generate() Message {
	t := g.drawType()
	return Message{Type: t, Payload: g.buildPayload(t)}
}

func (g *Generator) drawType() MessageType {
	v := g.rng.Float64()
	cum := 0.0
	for _, tw := range g.profile.Types {
		cum += tw.Weight
		if v < cum {
			return tw.Type
		}
	}
	// Floating accumulation can land v a hair above the final cum.
	return g.profile.Types[len(g.profile.Types)-1].Type
}

func (g *Generator) buildPayload(t MessageType) []byte {
	switch t {
	case Text:
		return g.textPayload(g.sampleSize(textBuckets, textMin, textMax))
	case Image:
		return g.randomPayload(g.sampleSize(imageBuckets, imageMin, imageMax))
	case File:
		return g.randomPayload(g.sampleSize(fileBuckets, fileMin, fileMax))
	case Voice:
		return g.randomPayload(g.sampleSize(voiceBuckets, voiceMin, voiceMax))
	case System:
		return []byte(systemCatalog[g.rng.Intn(len(systemCatalog))])
	default:
		return nil
	}
}

func (g *Generator) randomPayload(size int) []byte {
	buf := make([]byte, size)
	g.rng.Read(buf)
	return buf
}
