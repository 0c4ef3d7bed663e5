package pipeline

import (
	"math/rand/v2"
	"time"
)

// ExpirationPolicy decides whether a cached response is expired.
type ExpirationPolicy interface {
	// IsExpired reports whether a response that expires at expiresAt is expired at now.
	IsExpired(now, expiresAt time.Time) bool
}

// GeneralExpirationPolicy expires a response at its expiration time.
type GeneralExpirationPolicy struct{}

var _ ExpirationPolicy = GeneralExpirationPolicy{}

// IsExpired reports whether now has reached expiresAt.
func (GeneralExpirationPolicy) IsExpired(now, expiresAt time.Time) bool {
	return !expiresAt.After(now)
}

// NeverExpirationPolicy keeps responses until they are invalidated.
type NeverExpirationPolicy struct{}

var _ ExpirationPolicy = NeverExpirationPolicy{}

// IsExpired always returns false.
func (NeverExpirationPolicy) IsExpired(time.Time, time.Time) bool {
	return false
}

// EarlyExpirationPolicy expires a response up to Duration before its expiration time with the probability of Percentage.
// It spreads the reloads of popular responses over time.
type EarlyExpirationPolicy struct {
	// Duration is how much earlier a response can expire.
	Duration time.Duration

	// Percentage is the probability of the early expiration, in the range of [0, 1].
	Percentage float64

	// Random is the random number generator.
	// If nil, it uses system default random generator.
	Random *rand.Rand
}

var _ ExpirationPolicy = (*EarlyExpirationPolicy)(nil)

// IsExpired reports whether the response is expired, shifting now by Duration with the probability of Percentage.
func (p *EarlyExpirationPolicy) IsExpired(now, expiresAt time.Time) bool {
	if p.randFloat64() < p.Percentage {
		now = now.Add(p.Duration)
	}
	return !expiresAt.After(now)
}

func (p *EarlyExpirationPolicy) randFloat64() float64 {
	if p.Random == nil {
		return rand.Float64()
	}
	return p.Random.Float64()
}
