package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connwatch/internal/history"
	"connwatch/internal/models"
	"connwatch/internal/monitor"
	"connwatch/internal/peers"
	"connwatch/internal/platform"
)

func newTestServer(t *testing.T, fake *platform.Fake) (*httptest.Server, *monitor.Monitor) {
	t.Helper()

	m := monitor.New(fake, nil, 32)
	require.NoError(t, m.Start())
	t.Cleanup(m.Stop)

	require.Eventually(t, func() bool {
		_, ok := m.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)

	s := New(":0", peers.Node{ID: "test-node", Name: "test-node"}, m, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func getJSON(t *testing.T, url string, dest any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestStateEndpoint(t *testing.T) {
	fake := platform.NewFake()
	fake.SetActive(platform.Network{Index: 2, Name: "eth0"}, true)
	ts, _ := newTestServer(t, fake)

	var payload struct {
		State models.ConnectivityState `json:"state"`
		Label string                   `json:"label"`
	}
	getJSON(t, ts.URL+"/api/state", &payload)
	assert.Equal(t, models.StateAvailable, payload.State)
	assert.Equal(t, "Connected", payload.Label)
}

func TestStateEndpointWithoutNetwork(t *testing.T) {
	ts, _ := newTestServer(t, platform.NewFake())

	var payload struct {
		State models.ConnectivityState `json:"state"`
		Label string                   `json:"label"`
	}
	getJSON(t, ts.URL+"/api/state", &payload)
	assert.Equal(t, models.StateUnavailable, payload.State)
	assert.Equal(t, "Unavailable", payload.Label)
}

func TestHistoryEndpoint(t *testing.T) {
	fake := platform.NewFake()
	eth := platform.Network{Index: 2, Name: "eth0"}
	ts, m := newTestServer(t, fake)

	fake.FireAvailable(eth)
	require.Eventually(t, func() bool {
		return len(m.History()) == 2
	}, time.Second, 5*time.Millisecond)

	var transitions []models.Transition
	getJSON(t, ts.URL+"/api/history", &transitions)
	require.Len(t, transitions, 2)
	assert.Equal(t, models.StateUnavailable, transitions[0].State)
	assert.Equal(t, models.StateAvailable, transitions[1].State)
}

func TestNodeStateEndpoint(t *testing.T) {
	fake := platform.NewFake()
	fake.SetActive(platform.Network{Index: 2, Name: "eth0"}, true)
	ts, _ := newTestServer(t, fake)

	var resp peers.NodeStateResponse
	getJSON(t, ts.URL+"/api/node/state", &resp)
	assert.Equal(t, "test-node", resp.Node.ID)
	assert.Equal(t, models.StateAvailable, resp.State)
	assert.Equal(t, "Connected", resp.Label)
}

func TestClusterEndpointWithoutPeerService(t *testing.T) {
	ts, _ := newTestServer(t, platform.NewFake())

	var snapshot peers.ClusterSnapshot
	getJSON(t, ts.URL+"/api/cluster", &snapshot)
	require.Len(t, snapshot.Nodes, 1)
	assert.Equal(t, "local", snapshot.Nodes[0].Source)
	assert.Equal(t, models.StateUnavailable, snapshot.Nodes[0].State)
}

func TestTimelineEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, platform.NewFake())

	var payload struct {
		Buckets []struct {
			State string `json:"state"`
		} `json:"buckets"`
	}
	getJSON(t, ts.URL+"/api/timeline?buckets=6", &payload)
	assert.Len(t, payload.Buckets, 6)
}

func TestTimelineEndpointClampsBucketCount(t *testing.T) {
	ts, _ := newTestServer(t, platform.NewFake())

	var payload struct {
		Buckets []struct {
			State string `json:"state"`
		} `json:"buckets"`
	}
	getJSON(t, ts.URL+"/api/timeline?buckets=2000000000&minutes=2000000000", &payload)
	assert.Len(t, payload.Buckets, history.MaxBuckets)
}

func TestLiveWebsocketPushesTransitions(t *testing.T) {
	fake := platform.NewFake()
	eth := platform.Network{Index: 2, Name: "eth0"}
	fake.SetActive(eth, true)
	ts, _ := newTestServer(t, fake)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws/state"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var update struct {
		State models.ConnectivityState `json:"state"`
		Label string                   `json:"label"`
	}

	// Initial snapshot reflects the probed state.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, models.StateAvailable, update.State)
	assert.Equal(t, "Connected", update.Label)

	fake.FireLost(eth)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, models.StateUnavailable, update.State)
	assert.Equal(t, "Unavailable", update.Label)
}

func TestIndexServed(t *testing.T) {
	ts, _ := newTestServer(t, platform.NewFake())

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
