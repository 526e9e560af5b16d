package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnRateLimiter_SlidingWindow(t *testing.T) {
	req := require.New(t)
	now := time.Unix(1000, 0)
	rl := NewConnRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	req.True(rl.Allow("a"))
	req.True(rl.Allow("a"))
	req.False(rl.Allow("a"))

	// other connections have their own window
	req.True(rl.Allow("b"))

	now = now.Add(1500 * time.Millisecond)
	req.True(rl.Allow("a"))
}

func TestConnRateLimiter_Forget(t *testing.T) {
	rl := NewConnRateLimiter(1, time.Minute)

	require.True(t, rl.Allow("a"))
	require.False(t, rl.Allow("a"))

	rl.Forget("a")
	require.True(t, rl.Allow("a"))
}
