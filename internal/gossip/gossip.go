// Package gossip implements a push/pull anti-entropy protocol over an
// application-defined node. The protocol layer is a pure state machine:
// it knows nothing about transport or time, both of which are supplied
// by a Runtime.
package gossip

import "math/rand"

// NodeID identifies a node. IDs are 128-bit UUIDs in the canonical
// 8-4-4-4-12 hex form.
type NodeID = string

// Node is the capability set a gossip participant exposes. P is the
// node's push message (its causal summary), Q its pull message (the
// operations shipped to a lagging peer).
//
// Each method must serialize access to the node's state internally. A
// node never calls back into the runtime.
type Node[P, Q any] interface {
	// ID returns the node's identity
	ID() NodeID

	// Prepare snapshots the node's current causal summary
	Prepare() P

	// Push is the receiving side of a Push: given the peer's summary,
	// return the operations the peer is missing. The zero value of Q
	// means the peer is already caught up.
	Push(peer P) Q

	// Pull applies operations received from a peer
	Pull(ops Q)

	// DebugHash returns a stable hash of the node's state, a pure read
	DebugHash() string

	// DebugState returns the node's structured state for debugging, a
	// pure read. ok=false when the node exposes none.
	DebugState() (map[string]interface{}, bool)
}

// Kind discriminates gossip envelopes
type Kind uint8

const (
	KindPush Kind = iota
	KindPull
	KindPushPull
)

func (k Kind) String() string {
	switch k {
	case KindPush:
		return "Push"
	case KindPull:
		return "Pull"
	case KindPushPull:
		return "PushPull"
	default:
		return "Unknown"
	}
}

// Msg is a protocol envelope. Push carries a summary, Pull carries
// operations, PushPull carries both.
type Msg[P, Q any] struct {
	Kind Kind
	Push P
	Pull Q
}

// Runtime is the seam by which a client learns its peer set and posts
// outgoing envelopes.
type Runtime[P, Q any] interface {
	// ReachableNodeIDs returns the client's current peer universe,
	// including the client itself. The slice is stable during a single
	// client dispatch and must not be mutated.
	ReachableNodeIDs() []NodeID

	// Send hands off an envelope, best effort. Called from within
	// OnSend/OnReceive; implementations must not reenter the calling
	// client synchronously.
	Send(from, to NodeID, msg Msg[P, Q])
}

// ProtocolOption configures a client
type ProtocolOption struct {
	// Fanout is the number of distinct peers contacted per send burst
	Fanout int
}

// Client drives the push/pull exchange for exactly one node.
type Client[P, Q any] struct {
	node    Node[P, Q]
	options ProtocolOption
}

// NewClient wraps a node with protocol options
func NewClient[P, Q any](node Node[P, Q], options ProtocolOption) *Client[P, Q] {
	return &Client[P, Q]{node: node, options: options}
}

// Node returns the wrapped node
func (c *Client[P, Q]) Node() Node[P, Q] { return c.node }

// ID returns the wrapped node's identity
func (c *Client[P, Q]) ID() NodeID { return c.node.ID() }

// OnSend fires one send burst: up to Fanout distinct peers, chosen
// uniformly without replacement from rng, each receive a Push carrying
// the node's current summary. The generator is supplied by the caller
// so that runs stay reproducible under a fixed seed.
func (c *Client[P, Q]) OnSend(rt Runtime[P, Q], rng *rand.Rand) {
	selfID := c.node.ID()
	ids := rt.ReachableNodeIDs()
	peers := make([]NodeID, 0, len(ids))
	for _, id := range ids {
		if id != selfID {
			peers = append(peers, id)
		}
	}
	rng.Shuffle(len(peers), func(i, j int) {
		peers[i], peers[j] = peers[j], peers[i]
	})
	n := c.options.Fanout
	if n > len(peers) {
		n = len(peers)
	}
	if n < 0 {
		n = 0
	}
	for _, id := range peers[:n] {
		rt.Send(selfID, id, Msg[P, Q]{Kind: KindPush, Push: c.node.Prepare()})
	}
}

// OnReceive advances the three-leg exchange. After one full round trip
// (Push -> PushPull -> Pull) both peers hold every operation the other
// had at round start. Pull is terminal, so no envelope loops.
func (c *Client[P, Q]) OnReceive(from NodeID, msg Msg[P, Q], rt Runtime[P, Q]) {
	switch msg.Kind {
	case KindPush:
		rt.Send(c.ID(), from, Msg[P, Q]{
			Kind: KindPushPull,
			Push: c.node.Prepare(),
			Pull: c.node.Push(msg.Push),
		})
	case KindPull:
		c.node.Pull(msg.Pull)
	case KindPushPull:
		c.node.Pull(msg.Pull)
		rt.Send(c.ID(), from, Msg[P, Q]{Kind: KindPull, Pull: c.node.Push(msg.Push)})
	}
}
