package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRetryDelay(t *testing.T) {
	assert.Equal(t, 5*time.Second, NextRetryDelay(1))
	assert.Equal(t, 10*time.Second, NextRetryDelay(2))
	assert.Equal(t, 15*time.Second, NextRetryDelay(3))

	// Out-of-range counts are clamped to the first step.
	assert.Equal(t, 5*time.Second, NextRetryDelay(0))
	assert.Equal(t, 5*time.Second, NextRetryDelay(-1))
}
