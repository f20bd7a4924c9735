package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connwatch/internal/models"
)

func TestAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transitions.json")

	s, err := NewTransitionStorage(path, 0)
	require.NoError(t, err)

	_, ok := s.Latest()
	assert.False(t, ok)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Append(models.Transition{State: models.StateAvailable, At: now, Cause: "initial"}))
	require.NoError(t, s.Append(models.Transition{State: models.StateUnavailable, At: now.Add(time.Minute), Cause: "network lost: eth0"}))

	reloaded, err := NewTransitionStorage(path, 0)
	require.NoError(t, err)

	history := reloaded.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.StateAvailable, history[0].State)
	assert.Equal(t, models.StateUnavailable, history[1].State)
	assert.Equal(t, "network lost: eth0", history[1].Cause)

	latest, ok := reloaded.Latest()
	require.True(t, ok)
	assert.True(t, latest.At.Equal(now.Add(time.Minute)))
}

func TestHistoryLimitEnforced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transitions.json")

	s, err := NewTransitionStorage(path, 3)
	require.NoError(t, err)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(models.Transition{
			State: models.StateAvailable,
			At:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	history := s.History()
	require.Len(t, history, 3)
	assert.True(t, history[0].At.Equal(base.Add(2*time.Minute)))
}

func TestLoadNormalizesUnknownStates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transitions.json")
	raw := `[{"state":"limited","at":"2026-01-02T15:04:05Z"}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s, err := NewTransitionStorage(path, 0)
	require.NoError(t, err)

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, models.StateUnavailable, history[0].State)
}

func TestCorruptHistoryFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transitions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewTransitionStorage(path, 0)
	assert.Error(t, err)
}
