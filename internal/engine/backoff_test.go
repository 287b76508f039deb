package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstantBackoff(t *testing.T) {
	b := NewConstantBackoff(250 * time.Millisecond)

	assert.Equal(t, 250*time.Millisecond, b.Delay(1))
	assert.Equal(t, 250*time.Millisecond, b.Delay(5))
}

func TestExponentialBackoff(t *testing.T) {
	b := NewExponentialBackoff(100*time.Millisecond, time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 400 * time.Millisecond},
		{attempt: 4, want: 800 * time.Millisecond},
		{attempt: 5, want: time.Second}, // capped at Max
		{attempt: 10, want: time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestDefaultBackoff(t *testing.T) {
	b := DefaultBackoff()

	assert.Equal(t, 500*time.Millisecond, b.Delay(1))
	assert.Equal(t, b.Delay(1), b.Delay(3), "default is a fixed delay")
}
