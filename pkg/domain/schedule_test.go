package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairedSchedule_Lifecycle(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)

	s, err := NewPairedSchedule("S1", "corr-1", "C1", start, end)
	require.NoError(t, err)
	assert.Equal(t, ScheduleStatusPending, s.Status())

	require.NoError(t, s.Activate(start))
	assert.Equal(t, ScheduleStatusActive, s.Status())

	err = s.Complete(start.Add(time.Hour))
	require.Error(t, err, "cannot complete a paired schedule before end_at")

	require.NoError(t, s.Complete(end))
	assert.Equal(t, ScheduleStatusCompleted, s.Status())
}

func TestPairedSchedule_EndMustBeAfterStart(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err := NewPairedSchedule("S1", "corr-1", "C1", start, start)
	require.Error(t, err)
}

func TestSingleSchedule_ActivateThenComplete(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSingleSchedule("S1", "corr-1", "P1", start)
	require.NoError(t, err)

	require.NoError(t, s.Activate(start))
	require.NoError(t, s.Complete(start))
	assert.Equal(t, ScheduleStatusCompleted, s.Status())
}

func TestSchedule_CannotActivateBeforeStart(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s, _ := NewSingleSchedule("S1", "corr-1", "P1", start)

	err := s.Activate(start.Add(-time.Hour))
	require.Error(t, err)
}

func TestSchedule_CancelPendingOrActive(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s, _ := NewSingleSchedule("S1", "corr-1", "P1", start)
	require.NoError(t, s.Cancel())
	assert.Equal(t, ScheduleStatusCancelled, s.Status())

	err := s.Cancel()
	require.Error(t, err, "a cancelled schedule cannot be cancelled again")
}

func TestSchedule_CannotCancelCompleted(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s, _ := NewSingleSchedule("S1", "corr-1", "P1", start)
	require.NoError(t, s.Activate(start))
	require.NoError(t, s.Complete(start))

	err := s.Cancel()
	require.Error(t, err)
}

func TestSchedule_SnapshotRoundTrip(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC)
	s, _ := NewPairedSchedule("S1", "corr-1", "C1", start, end)
	require.NoError(t, s.Activate(start))

	payload, err := s.ToSnapshot()
	require.NoError(t, err)

	loaded, err := LoadScheduleFromSnapshot(payload)
	require.NoError(t, err)
	assert.Equal(t, s.Status(), loaded.Status())
	assert.Equal(t, s.Kind(), loaded.Kind())
	assert.True(t, s.StartAt().Equal(loaded.StartAt()))
	require.NotNil(t, loaded.EndAt())
	assert.True(t, s.EndAt().Equal(*loaded.EndAt()))
}
