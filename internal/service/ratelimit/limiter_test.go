package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllow(t *testing.T) {
	clock := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	l := New(2, 1)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "bucket drained")
	assert.True(t, l.Allow("b"), "keys are independent")

	clock = clock.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	clock = clock.Add(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "refill is capped at capacity")
}

func TestLimiterSweep(t *testing.T) {
	clock := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	l := New(1, 1)
	l.now = func() time.Time { return clock }

	l.Allow("old")
	clock = clock.Add(10 * time.Minute)
	l.Allow("new")

	assert.Equal(t, 1, l.Sweep(5*time.Minute))
	assert.Len(t, l.m, 1)
}
