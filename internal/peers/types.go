package peers

import (
	"time"

	"connwatch/internal/metrics"
	"connwatch/internal/models"
)

// Node describes one connwatch instance.
type Node struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NodeStateResponse is the payload exposed by /api/node/state and consumed
// when polling remote peers.
type NodeStateResponse struct {
	Node         Node                        `json:"node"`
	State        models.ConnectivityState   `json:"state"`
	Label        string                      `json:"label"`
	Latest       *models.Transition          `json:"latest,omitempty"`
	Availability metrics.AvailabilitySummary `json:"availability"`
	GeneratedAt  time.Time                   `json:"generated_at"`
}

// PeerSnapshot stores the last known connectivity of one node.
type PeerSnapshot struct {
	Node         Node                        `json:"node"`
	State        models.ConnectivityState   `json:"state"`
	Label        string                      `json:"label"`
	Latest       *models.Transition          `json:"latest,omitempty"`
	Availability metrics.AvailabilitySummary `json:"availability"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	Error        string                      `json:"error,omitempty"`
	Source       string                      `json:"source"`
}

// ClusterSnapshot is returned by /api/cluster.
type ClusterSnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Nodes       []PeerSnapshot `json:"nodes"`
}
