package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffExponentialSchedule(t *testing.T) {
	assert.Equal(t, 1*time.Second, backoffDelay(1, nil))
	assert.Equal(t, 2*time.Second, backoffDelay(2, nil))
	assert.Equal(t, 4*time.Second, backoffDelay(3, nil))
	assert.Equal(t, 8*time.Second, backoffDelay(4, nil))
}

func TestBackoffNeverExceedsCeiling(t *testing.T) {
	for retry := 1; retry < 100; retry++ {
		assert.LessOrEqual(t, backoffDelay(retry, nil), backoffCeil, "retry %d", retry)
	}
}

func TestBackoffWaitHintPrecedence(t *testing.T) {
	hinted := &Error{Kind: KindRateLimitExceeded, WaitHint: 20 * time.Second}
	assert.Equal(t, 20*time.Second, backoffDelay(1, hinted))

	// hint wins over a larger exponential delay too
	assert.Equal(t, 20*time.Second, backoffDelay(6, hinted))
}

func TestBackoffWaitHintCapped(t *testing.T) {
	hinted := &Error{Kind: KindRateLimitExceeded, WaitHint: 10 * time.Minute}
	assert.Equal(t, backoffCeil, backoffDelay(1, hinted))
}

func TestBackoffNoHintFallsThrough(t *testing.T) {
	plain := &Error{Kind: KindServerError}
	assert.Equal(t, 2*time.Second, backoffDelay(2, plain))
}
