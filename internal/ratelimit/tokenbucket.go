// Package ratelimit implements a token bucket rate limiter, external to
// the storage engine itself but persistable through it.
package ratelimit

import (
	"encoding/binary"
	"errors"

	"github.com/siltkv/siltkv/internal/record"
)

// ErrShortBucket is returned when a byte slice is too small to hold a
// serialized TokenBucket.
var ErrShortBucket = errors.New("ratelimit: token bucket data too short")

// TokenBucket grants up to Capacity tokens, refilling at RefillRate
// tokens per second, lazily computed on each Allow call.
type TokenBucket struct {
	Capacity       uint64
	Tokens         uint64
	RefillRate     uint64
	lastRefillTime uint64
	clock          record.Clock
}

// New creates a full bucket with the given capacity and per-second
// refill rate, timestamped by clock.
func New(capacity, refillRate uint64, clock record.Clock) *TokenBucket {
	return &TokenBucket{
		Capacity:       capacity,
		Tokens:         capacity,
		RefillRate:     refillRate,
		lastRefillTime: clock.Now(),
		clock:          clock,
	}
}

// NewDefault returns a bucket matching the original engine's defaults:
// capacity 100, refill rate 10/s.
func NewDefault(clock record.Clock) *TokenBucket {
	return New(100, 10, clock)
}

// Allow attempts to withdraw n tokens, refilling first. It reports
// whether the withdrawal succeeded.
func (b *TokenBucket) Allow(n uint64) bool {
	b.refill()
	if b.Tokens >= n {
		b.Tokens -= n
		return true
	}
	return false
}

func (b *TokenBucket) refill() {
	now := b.clock.Now()
	elapsedMicros := now - b.lastRefillTime
	secondsElapsed := float64(elapsedMicros) / 1_000_000.0

	add := uint64(float64(b.RefillRate) * secondsElapsed)
	b.Tokens += add
	if b.Tokens > b.Capacity {
		b.Tokens = b.Capacity
	}
	b.lastRefillTime = now
}

// Serialize writes [capacity:8][tokens:8][last_refill:8][refill_rate:8].
func (b *TokenBucket) Serialize() []byte {
	out := make([]byte, 32)
	binary.LittleEndian.PutUint64(out[0:8], b.Capacity)
	binary.LittleEndian.PutUint64(out[8:16], b.Tokens)
	binary.LittleEndian.PutUint64(out[16:24], b.lastRefillTime)
	binary.LittleEndian.PutUint64(out[24:32], b.RefillRate)
	return out
}

// Deserialize parses the output of Serialize, attaching clock for
// subsequent refills.
func Deserialize(data []byte, clock record.Clock) (*TokenBucket, error) {
	if len(data) < 32 {
		return nil, ErrShortBucket
	}

	return &TokenBucket{
		Capacity:       binary.LittleEndian.Uint64(data[0:8]),
		Tokens:         binary.LittleEndian.Uint64(data[8:16]),
		lastRefillTime: binary.LittleEndian.Uint64(data[16:24]),
		RefillRate:     binary.LittleEndian.Uint64(data[24:32]),
		clock:          clock,
	}, nil
}
