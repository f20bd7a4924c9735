// Package peers aggregates the connectivity of remote connwatch nodes with
// the local one, so a fleet can be watched from a single dashboard.
package peers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"connwatch/internal/config"
	"connwatch/internal/metrics"
	"connwatch/internal/monitor"
)

const requestTimeout = 10 * time.Second

// Service polls configured peers for their node state and merges the
// results with the local monitor.
type Service struct {
	node    Node
	source  monitor.Source
	peers   []config.Peer
	refresh time.Duration

	client *http.Client

	mu        sync.RWMutex
	peersData map[string]PeerSnapshot

	ctx    context.Context
	cancel context.CancelFunc
}

// NewService initialises the peer aggregator for a node.
func NewService(node Node, source monitor.Source, cfg config.Config) *Service {
	refresh := time.Duration(cfg.PeerRefreshSec) * time.Second
	if refresh < 15*time.Second {
		refresh = 15 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		node:      node,
		source:    source,
		peers:     cfg.Peers,
		refresh:   refresh,
		client:    &http.Client{Transport: transport, Timeout: requestTimeout},
		peersData: make(map[string]PeerSnapshot),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches background synchronisation. With no enabled peers it is a
// no-op.
func (s *Service) Start() {
	if !s.hasEnabledPeers() {
		return
	}
	go s.run()
}

// Stop terminates background synchronisation.
func (s *Service) Stop() {
	s.cancel()
}

func (s *Service) hasEnabledPeers() bool {
	for _, peer := range s.peers {
		if peer.Enabled {
			return true
		}
	}
	return false
}

func (s *Service) run() {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	s.fetchAllPeers()

	for {
		select {
		case <-ticker.C:
			s.fetchAllPeers()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) fetchAllPeers() {
	for _, peer := range s.peers {
		if !peer.Enabled {
			continue
		}
		if err := s.fetchPeer(peer); err != nil {
			log.Printf("peer %s: %v", peer.ID, err)
			s.mu.Lock()
			s.peersData[peer.ID] = PeerSnapshot{
				Node:      Node{ID: peer.ID, Name: peer.Name},
				UpdatedAt: time.Now().UTC(),
				Error:     err.Error(),
				Source:    "peer",
			}
			s.mu.Unlock()
		}
	}
}

func (s *Service) fetchPeer(peer config.Peer) error {
	baseURL := strings.TrimSuffix(peer.BaseURL, "/")
	if baseURL == "" {
		return fmt.Errorf("peer %s has empty base_url", peer.ID)
	}

	stateResp := NodeStateResponse{}
	if err := s.getJSON(baseURL+"/api/node/state", peer.APIKey, &stateResp); err != nil {
		return fmt.Errorf("state fetch failed: %w", err)
	}

	state := stateResp.State.Normalize()
	s.mu.Lock()
	s.peersData[peer.ID] = PeerSnapshot{
		Node:         Node{ID: peer.ID, Name: resolveName(peer.Name, stateResp.Node.Name, peer.ID)},
		State:        state,
		Label:        state.Label(),
		Latest:       stateResp.Latest,
		Availability: stateResp.Availability,
		UpdatedAt:    time.Now().UTC(),
		Source:       "peer",
	}
	s.mu.Unlock()
	return nil
}

// LocalState builds the node-state payload for the local monitor. The
// server uses it both for /api/node/state and for the local entry of the
// cluster snapshot.
func LocalState(node Node, source monitor.Source) NodeStateResponse {
	resp := NodeStateResponse{
		Node:        node,
		State:       source.Current(),
		GeneratedAt: time.Now().UTC(),
	}
	resp.Label = resp.State.Label()
	if latest, ok := source.Latest(); ok {
		resp.Latest = &latest
	}
	resp.Availability = metrics.ComputeAvailability(source.History(), time.Now().UTC())
	return resp
}

func (s *Service) localSnapshot() PeerSnapshot {
	local := LocalState(s.node, s.source)
	return PeerSnapshot{
		Node:         local.Node,
		State:        local.State,
		Label:        local.Label,
		Latest:       local.Latest,
		Availability: local.Availability,
		UpdatedAt:    local.GeneratedAt,
		Source:       "local",
	}
}

// Snapshot gathers local and remote data for API responses.
func (s *Service) Snapshot() ClusterSnapshot {
	nodes := []PeerSnapshot{s.localSnapshot()}

	s.mu.RLock()
	for _, snap := range s.peersData {
		nodes = append(nodes, snap)
	}
	s.mu.RUnlock()

	return ClusterSnapshot{
		GeneratedAt: time.Now().UTC(),
		Nodes:       nodes,
	}
}

func (s *Service) getJSON(url, apiKey string, dest any) error {
	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func resolveName(configured, remote, fallback string) string {
	if configured != "" {
		return configured
	}
	if remote != "" {
		return remote
	}
	return fallback
}
