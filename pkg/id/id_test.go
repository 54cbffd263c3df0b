package id

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunID(t *testing.T) {
	t.Run("round_trips_start_time", func(t *testing.T) {
		start := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
		runID, err := NewRunID(start)
		require.NoError(t, err)
		require.True(t, IsValid(runID))

		got, err := StartTime(runID)
		require.NoError(t, err)
		require.True(t, start.Equal(got))
	})

	t.Run("rejects_non_ids", func(t *testing.T) {
		require.False(t, IsValid("foobar"))
		_, err := StartTime("foobar")
		require.Error(t, err)
	})

	t.Run("no_collisions_and_ordered", func(t *testing.T) {
		now := time.Now()
		ids := make([]string, 0, 10000)
		seen := make(map[string]struct{}, 10000)
		for range 10000 {
			runID, err := NewRunID(now)
			require.NoError(t, err)
			ids = append(ids, runID)
			seen[runID] = struct{}{}
		}
		require.Len(t, seen, 10000)
		require.True(t, slices.IsSorted(ids))
	})
}
