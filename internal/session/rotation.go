package session

import "time"

// DefaultTimeThreshold is the Megolm-style temporal rotation bound.
const DefaultTimeThreshold = 7 * 24 * time.Hour

// RotationPolicy decides when the session key must be replaced:
// after a fixed number of messages, after a time threshold, or
// whichever of the two triggers first. The message counter always
// stays in [0, MessageThreshold) between messages; it is reset on
// every rotation.
type RotationPolicy struct {
	MessageThreshold int
	TimeThreshold    time.Duration // 0 disables the temporal trigger

	msgs         int
	lastRotation time.Time
}

// NewRotationPolicy builds a hybrid policy. messageThreshold <= 0
// disables the count trigger; timeThreshold 0 disables the temporal
// trigger.
func NewRotationPolicy(messageThreshold int, timeThreshold time.Duration) *RotationPolicy {
	return &RotationPolicy{
		MessageThreshold: messageThreshold,
		TimeThreshold:    timeThreshold,
	}
}

// Due reports whether a rotation must happen before the next message.
func (p *RotationPolicy) Due(now time.Time) bool {
	if p.MessageThreshold > 0 && p.msgs >= p.MessageThreshold {
		return true
	}
	if p.TimeThreshold > 0 && now.Sub(p.lastRotation) >= p.TimeThreshold {
		return true
	}
	return false
}

// Reset zeroes the message counter and re-anchors the temporal
// trigger. Called after every key agreement, including the initial
// session establishment.
func (p *RotationPolicy) Reset(now time.Time) {
	p.msgs = 0
	p.lastRotation = now
}

// OnMessage advances the message counter.
func (p *RotationPolicy) OnMessage() {
	p.msgs++
}

// Pending returns the messages processed since the last rotation.
func (p *RotationPolicy) Pending() int { return p.msgs }
