package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyAllows(t *testing.T) {
	p := Policy{MaxAttempts: 3, Interval: time.Second}

	assert.False(t, p.Allows(0))
	assert.True(t, p.Allows(1))
	assert.True(t, p.Allows(3))
	assert.False(t, p.Allows(4))
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{MaxAttempts: 2, Interval: 250 * time.Millisecond}

	assert.Equal(t, 250*time.Millisecond, p.Delay(1))
	assert.Equal(t, 250*time.Millisecond, p.Delay(2))
	assert.Equal(t, time.Duration(0), p.Delay(3))
}

func TestPolicyExhausted(t *testing.T) {
	p := Policy{MaxAttempts: 2, Interval: time.Second}

	assert.False(t, p.Exhausted(0))
	assert.False(t, p.Exhausted(1))
	assert.True(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(5))
}

func TestZeroPolicyAllowsNothing(t *testing.T) {
	var p Policy

	assert.False(t, p.Allows(1))
	assert.True(t, p.Exhausted(0))
}
