package monitor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connwatch/internal/models"
	"connwatch/internal/platform"
	"connwatch/internal/storage"
)

func TestMonitorRecordsInitialState(t *testing.T) {
	fake := platform.NewFake()
	fake.SetActive(platform.Network{Index: 2, Name: "eth0"}, true)

	m := New(fake, nil, 16)
	require.NoError(t, m.Start())
	defer m.Stop()

	require.Eventually(t, func() bool {
		latest, ok := m.Latest()
		return ok && latest.State == models.StateAvailable
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, models.StateAvailable, m.Current())
}

func TestMonitorRecordsTransitionsInOrder(t *testing.T) {
	fake := platform.NewFake()
	eth := platform.Network{Index: 2, Name: "eth0"}

	m := New(fake, nil, 16)
	require.NoError(t, m.Start())
	defer m.Stop()

	fake.FireAvailable(eth)
	fake.FireLost(eth)
	fake.FireAvailable(eth)

	require.Eventually(t, func() bool {
		return len(m.History()) == 4 // seed + three events
	}, time.Second, 5*time.Millisecond)

	history := m.History()
	want := []models.ConnectivityState{
		models.StateUnavailable, // seed: no active network at start
		models.StateAvailable,
		models.StateUnavailable,
		models.StateAvailable,
	}
	for i, expected := range want {
		assert.Equal(t, expected, history[i].State, "transition %d", i)
	}
}

func TestMonitorNotifiesListeners(t *testing.T) {
	fake := platform.NewFake()
	eth := platform.Network{Index: 2, Name: "eth0"}

	m := New(fake, nil, 16)
	require.NoError(t, m.Start())
	defer m.Stop()

	// Let the subscription seed land before listening, so the first
	// delivered update is the fired event.
	require.Eventually(t, func() bool {
		_, ok := m.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)

	updates, remove := m.AddListener(4)
	defer remove()

	fake.FireAvailable(eth)

	select {
	case got := <-updates:
		assert.Equal(t, models.StateAvailable, got.State)
	case <-time.After(time.Second):
		t.Fatal("listener did not receive the transition")
	}

	remove()
	fake.FireLost(eth)

	require.Eventually(t, func() bool {
		latest, ok := m.Latest()
		return ok && latest.State == models.StateUnavailable
	}, time.Second, 5*time.Millisecond)

	select {
	case got := <-updates:
		t.Fatalf("removed listener still received %v", got.State)
	default:
	}
}

func TestMonitorPersistsTransitions(t *testing.T) {
	fake := platform.NewFake()
	eth := platform.Network{Index: 2, Name: "eth0"}

	path := filepath.Join(t.TempDir(), "transitions.json")
	store, err := storage.NewTransitionStorage(path, 16)
	require.NoError(t, err)

	m := New(fake, store, 16)
	require.NoError(t, m.Start())

	fake.FireAvailable(eth)
	require.Eventually(t, func() bool {
		return len(m.History()) == 2
	}, time.Second, 5*time.Millisecond)
	m.Stop()

	reloaded, err := storage.NewTransitionStorage(path, 16)
	require.NoError(t, err)
	persisted := reloaded.History()
	require.Len(t, persisted, 2)
	assert.Equal(t, models.StateUnavailable, persisted[0].State)
	assert.Equal(t, models.StateAvailable, persisted[1].State)
}

func TestMonitorPreloadsPersistedHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transitions.json")
	store, err := storage.NewTransitionStorage(path, 16)
	require.NoError(t, err)
	require.NoError(t, store.Append(models.Transition{
		State: models.StateAvailable,
		At:    time.Now().UTC().Add(-time.Hour),
	}))

	m := New(platform.NewFake(), store, 16)
	latest, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, models.StateAvailable, latest.State)
}
