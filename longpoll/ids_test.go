package longpoll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockIDs_StrictlyIncreasingWithinOneMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	ids := &ClockIDs{now: func() time.Time { return fixed }}

	require.Equal(t, int64(1_700_000_000_000), ids.NextID())
	require.Equal(t, int64(1_700_000_000_001), ids.NextID())
	require.Equal(t, int64(1_700_000_000_002), ids.NextID())
}

func TestClockIDs_FollowsClock(t *testing.T) {
	now := time.UnixMilli(1_000)
	ids := &ClockIDs{now: func() time.Time { return now }}

	require.Equal(t, int64(1_000), ids.NextID())
	now = now.Add(50 * time.Millisecond)
	require.Equal(t, int64(1_050), ids.NextID())

	// clock stepping backwards must not produce a repeat
	now = time.UnixMilli(900)
	require.Equal(t, int64(1_051), ids.NextID())
}

func TestClockIDs_Default(t *testing.T) {
	ids := NewClockIDs()
	before := time.Now().UnixMilli()
	id := ids.NextID()
	require.GreaterOrEqual(t, id, before)
	require.Less(t, id, int64(1)<<53)
}

func TestSnowflakeIDs(t *testing.T) {
	ids, err := NewSnowflakeIDs(1)
	require.NoError(t, err)

	seen := make(map[int64]bool)
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		id := ids.NextID()
		require.False(t, seen[id])
		require.Greater(t, id, prev)
		seen[id] = true
		prev = id
	}

	_, err = NewSnowflakeIDs(5000)
	require.ErrorIs(t, err, NewError(ErrorInvalidConfig, ""))
}
