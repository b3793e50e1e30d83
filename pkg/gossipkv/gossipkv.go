// Package gossipkv is the public wrapper around the gossip engine: a
// simulated cluster of replicated key-value nodes, driven by a host
// (CLI, test harness or visualiser) through virtual-time ticks.
package gossipkv

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gossipkv/gossipkv/internal/gossip"
	"github.com/gossipkv/gossipkv/internal/kv"
	"github.com/gossipkv/gossipkv/internal/logging"
	"github.com/gossipkv/gossipkv/internal/monitoring"
	"github.com/gossipkv/gossipkv/internal/sim"
)

// Options contains configuration for a simulated cluster
type Options struct {
	// NumNodes is the number of KV nodes to build, each with a fresh id
	NumNodes int

	// Fanout is the number of peers each node contacts per send burst
	Fanout int

	// MessageDelay is the in-flight duration of every envelope
	MessageDelay float64

	// ClientTimer is the mean period between send bursts
	ClientTimer float64

	// ClientTimerRandom is the uniform jitter half-width on ClientTimer
	ClientTimerRandom float64

	// Seed makes runs reproducible; identical inputs and seed produce
	// byte-identical snapshots
	Seed int64

	// LogLevel enables structured logging when non-empty ("debug",
	// "info", ...)
	LogLevel string
}

// Cluster is the host-facing engine: it owns the simulator, the nodes
// and the metrics registry.
type Cluster struct {
	sim      *sim.Simulator[kv.PushMsg, kv.PullMsg]
	nodes    map[string]*kv.Node
	nodeIDs  []string
	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// New builds NumNodes KV nodes with fresh unique ids, wraps each in a
// protocol client and returns a cluster at t=0. Constructing with
// NumNodes == 0 is a programmer error and panics.
func New(options Options) (*Cluster, error) {
	if options.NumNodes <= 0 {
		panic("gossipkv: NumNodes must be >= 1")
	}

	logger := zap.NewNop()
	if options.LogLevel != "" {
		l, err := logging.NewLogger(options.LogLevel, "json")
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		logger = l.Logger
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	nodes := make(map[string]*kv.Node, options.NumNodes)
	nodeIDs := make([]string, 0, options.NumNodes)
	clients := make([]*gossip.Client[kv.PushMsg, kv.PullMsg], 0, options.NumNodes)
	for i := 0; i < options.NumNodes; i++ {
		node := kv.New(uuid.New())
		nodes[node.ID()] = node
		nodeIDs = append(nodeIDs, node.ID())
		clients = append(clients, gossip.NewClient[kv.PushMsg, kv.PullMsg](
			node, gossip.ProtocolOption{Fanout: options.Fanout}))
	}

	s := sim.New(clients, sim.Options{
		MessageDelay:      options.MessageDelay,
		ClientTimer:       options.ClientTimer,
		ClientTimerRandom: options.ClientTimerRandom,
		Seed:              options.Seed,
	}, logger, metrics)

	return &Cluster{
		sim:      s,
		nodes:    nodes,
		nodeIDs:  nodeIDs,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// NodeIDs returns the cluster's node ids in construction order
func (c *Cluster) NodeIDs() []string { return c.nodeIDs }

// Time returns the current virtual time
func (c *Cluster) Time() float64 { return c.sim.Time() }

// Tick advances virtual time by dt. Negative dt panics.
func (c *Cluster) Tick(dt float64) { c.sim.Tick(dt) }

// SetKV writes a value at a key on the named node. An unknown id is a
// programmer error and panics.
func (c *Cluster) SetKV(nodeID, key, value string) {
	c.node(nodeID).Update(key, value)
	c.metrics.LocalWrites.Inc()
	c.logger.Debug("local write",
		zap.String("node_id", nodeID), zap.String("key", key))
}

// DeleteKV removes a key on the named node. Deleting an absent key is a
// no-op; an unknown id panics.
func (c *Cluster) DeleteKV(nodeID, key string) {
	c.node(nodeID).Delete(key)
	c.metrics.LocalDeletes.Inc()
	c.logger.Debug("local delete",
		zap.String("node_id", nodeID), zap.String("key", key))
}

// GetKV reads the current sibling values of a key on the named node,
// ok=false when the key holds no value.
func (c *Cluster) GetKV(nodeID, key string) ([]string, bool) {
	return c.node(nodeID).Get(key)
}

// Debug returns the snapshot of in-flight messages and client states
func (c *Cluster) Debug() sim.Debug { return c.sim.Debug() }

// DebugClient returns the named node's structured state: each key maps
// to a bare value when it holds one sibling, an ordered value list
// otherwise. An unknown id panics.
func (c *Cluster) DebugClient(nodeID string) map[string]interface{} {
	return c.sim.DebugClient(nodeID)
}

// Registry exposes the cluster's metrics registry for scraping
func (c *Cluster) Registry() *prometheus.Registry { return c.registry }

func (c *Cluster) node(id string) *kv.Node {
	node, ok := c.nodes[id]
	if !ok {
		panic("gossipkv: unknown node id " + id)
	}
	return node
}
