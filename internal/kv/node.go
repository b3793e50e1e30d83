// Package kv provides the replicated key-value node: an observed-remove
// CRDT map fronted by the gossip Node contract. Every accepted operation
// is also appended to a local log, which is what delta shipping reads.
package kv

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/gossipkv/gossipkv/internal/clock"
	"github.com/gossipkv/gossipkv/internal/crdt"
	"github.com/gossipkv/gossipkv/internal/gossip"
)

// PushMsg is the causal summary a node advertises: its map's add clock.
type PushMsg = clock.VectorClock

// PullMsg carries the operations a peer is missing, in log order. Nil
// means the peer is already caught up.
type PullMsg = []crdt.Operation

// Node is a replicated key-value store node. All state lives behind one
// mutex so reads and writes never interleave, whatever drives the node.
type Node struct {
	id gossip.NodeID

	mu   sync.Mutex
	data *crdt.Map
	log  []crdt.Operation
}

var _ gossip.Node[PushMsg, PullMsg] = (*Node)(nil)

// New creates an empty node owned by the given identity
func New(id uuid.UUID) *Node {
	return &Node{
		id:   id.String(),
		data: crdt.NewMap(),
	}
}

// ID returns the node's identity
func (n *Node) ID() gossip.NodeID { return n.id }

// Update writes a value at a key. The produced operation carries a
// fresh dot strictly greater than any prior dot of this node.
func (n *Node) Update(key, value string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ctx := n.data.AddClock()
	dot := clock.Dot{Actor: n.id, Counter: ctx.Counter(n.id) + 1}
	ctx.Apply(dot)

	op := crdt.Operation{Update: &crdt.UpdateOp{
		Dot:   dot,
		Key:   key,
		Value: value,
		Ctx:   ctx,
	}}
	n.data.Apply(op)
	n.log = append(n.log, op)
}

// Delete removes a key, tombstoning exactly the entries observed
// locally. Writes concurrent with the delete survive on other replicas.
// Deleting an absent key is a no-op.
//
// The remove clock carries a fresh dot of this node on top of the
// observed entry dots. Without it the clock would be dominated by any
// peer that saw the same entries, and the tombstone would never ship.
func (n *Node) Delete(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ctx := n.data.RemoveContext(key)
	if len(ctx) == 0 {
		return
	}
	current := n.data.AddClock()
	ctx.Apply(clock.Dot{Actor: n.id, Counter: current.Counter(n.id) + 1})
	op := crdt.Operation{Remove: &crdt.RemoveOp{Clock: ctx, Keys: []string{key}}}
	n.data.Apply(op)
	n.log = append(n.log, op)
}

// Get returns the current sibling values of a key, ok=false if absent
func (n *Node) Get(key string) ([]string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.data.Get(key)
}

// Prepare snapshots the map's current add clock
func (n *Node) Prepare() PushMsg {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.data.AddClock()
}

// Push returns the operations a peer summarized by targetClock has
// provably not observed, in log order, or nil when the peer is caught
// up. Operations concurrent with the peer's summary are included; the
// peer's apply is idempotent, so over-shipping is safe.
func (n *Node) Push(targetClock PushMsg) PullMsg {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch clock.Compare(n.data.AddClock(), targetClock) {
	case clock.After, clock.Concurrent:
		return n.opsAfter(targetClock)
	default:
		return nil
	}
}

// opsAfter filters the log down to operations past the given clock.
// Callers hold n.mu.
func (n *Node) opsAfter(after clock.VectorClock) []crdt.Operation {
	var ops []crdt.Operation
	for _, op := range n.log {
		switch {
		case op.Update != nil:
			if op.Update.Dot.Counter > after.Counter(op.Update.Dot.Actor) {
				ops = append(ops, op)
			}
		case op.Remove != nil:
			cmp := clock.Compare(op.Remove.Clock, after)
			if cmp == clock.After || cmp == clock.Concurrent {
				ops = append(ops, op)
			}
		}
	}
	return ops
}

// Pull applies operations received from a peer in order, appending each
// to the log. Already-observed operations are no-ops.
func (n *Node) Pull(ops PullMsg) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, op := range ops {
		n.data.Apply(op)
		n.log = append(n.log, op)
	}
}

// DebugHash returns a hex blake2b digest of the node's add clock. Two
// nodes hash equal exactly when they have observed the same operations.
func (n *Node) DebugHash() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	current := n.data.AddClock()
	for _, actor := range current.Actors() {
		fmt.Fprintf(h, "%s=%d;", actor, current.Counter(actor))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DebugState returns the node's contents keyed by string: a bare value
// when a key holds exactly one sibling, the ordered sibling list
// otherwise.
func (n *Node) DebugState() (map[string]interface{}, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	state := make(map[string]interface{})
	for _, key := range n.data.Keys() {
		values, ok := n.data.Get(key)
		if !ok {
			continue
		}
		if len(values) == 1 {
			state[key] = values[0]
		} else {
			state[key] = values
		}
	}
	return state, true
}
