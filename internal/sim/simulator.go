// Package sim is a deterministic discrete-event runtime for gossip
// clients. It owns every client, advances virtual time in ticks, fires
// per-client send timers with seeded jitter, and transports envelopes
// with a fixed in-flight delay. Given the same options, node IDs, seed
// and tick schedule, two simulators produce byte-identical snapshots.
package sim

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/gossipkv/gossipkv/internal/gossip"
	"github.com/gossipkv/gossipkv/internal/monitoring"
)

// Options configure the simulated runtime.
type Options struct {
	// MessageDelay is the constant in-flight duration of every envelope
	MessageDelay float64

	// ClientTimer is the mean period between a client's send bursts
	ClientTimer float64

	// ClientTimerRandom is the half-width of the uniform jitter around
	// the mean; periods are sampled from [mean-jitter, mean+jitter)
	ClientTimerRandom float64

	// Seed feeds the single generator behind timer sampling and peer
	// selection
	Seed int64
}

type message[P, Q any] struct {
	from  gossip.NodeID
	to    gossip.NodeID
	msg   gossip.Msg[P, Q]
	start float64
	end   float64
}

type timer struct {
	start    float64
	deadline float64
}

// Simulator drives a fixed set of clients on one logical thread. Tick
// is the only way time advances; there is no wall-clock dependency.
type Simulator[P, Q any] struct {
	clients []*gossip.Client[P, Q]
	nodeIDs []gossip.NodeID
	byID    map[gossip.NodeID]int
	timers  []timer
	time    float64
	rng     *rand.Rand
	options Options

	mu       sync.Mutex
	messages []message[P, Q]

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

var _ gossip.Runtime[any, any] = (*Simulator[any, any])(nil)

// New builds a simulator at t=0 owning the given clients. Timers are
// pre-sampled in client order so construction is deterministic. Panics
// when no clients are supplied.
func New[P, Q any](clients []*gossip.Client[P, Q], options Options, logger *zap.Logger, metrics *monitoring.Metrics) *Simulator[P, Q] {
	if len(clients) == 0 {
		panic("sim: at least one client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Simulator[P, Q]{
		clients: clients,
		nodeIDs: make([]gossip.NodeID, 0, len(clients)),
		byID:    make(map[gossip.NodeID]int, len(clients)),
		rng:     rand.New(rand.NewSource(options.Seed)),
		options: options,
		logger:  logger,
		metrics: metrics,
	}
	for i, client := range clients {
		id := client.ID()
		s.nodeIDs = append(s.nodeIDs, id)
		s.byID[id] = i
	}
	for range clients {
		s.timers = append(s.timers, s.nextTimer(0))
	}
	return s
}

// nextTimer samples a send period uniformly from the configured window.
func (s *Simulator[P, Q]) nextTimer(now float64) timer {
	period := s.options.ClientTimer - s.options.ClientTimerRandom +
		s.rng.Float64()*2*s.options.ClientTimerRandom
	return timer{start: now, deadline: now + period}
}

// Time returns the current virtual time
func (s *Simulator[P, Q]) Time() float64 { return s.time }

// ReachableNodeIDs returns every node id in the simulation, including
// the caller's. Callers must not mutate the slice.
func (s *Simulator[P, Q]) ReachableNodeIDs() []gossip.NodeID {
	return s.nodeIDs
}

// Send queues an envelope for delivery MessageDelay later. The caller
// never observes the recipient synchronously. Sending to an id outside
// the simulation is a programmer error.
func (s *Simulator[P, Q]) Send(from, to gossip.NodeID, msg gossip.Msg[P, Q]) {
	if _, ok := s.byID[to]; !ok {
		panic("sim: send to unknown node " + to)
	}
	s.mu.Lock()
	s.messages = append(s.messages, message[P, Q]{
		from:  from,
		to:    to,
		msg:   msg,
		start: s.time,
		end:   s.time + s.options.MessageDelay,
	})
	inFlight := len(s.messages)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.EnvelopesSent.WithLabelValues(msg.Kind.String()).Inc()
		s.metrics.MessagesInFlight.Set(float64(inFlight))
	}
	s.logger.Debug("envelope queued",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("kind", msg.Kind.String()),
	)
}

// Tick advances virtual time by dt. Due timers fire first, ordered by
// deadline (ties by client index), each client at most once; then every
// message whose end has passed is delivered, ordered by arrival (ties
// by queue insertion). Envelopes sent during the tick are never part of
// the tick's delivery set. A negative dt is a programmer error.
func (s *Simulator[P, Q]) Tick(dt float64) {
	if dt < 0 {
		panic("sim: negative tick duration")
	}
	s.time += dt

	type due struct {
		index    int
		deadline float64
	}
	var fires []due
	for i, tm := range s.timers {
		if tm.deadline <= s.time {
			fires = append(fires, due{index: i, deadline: tm.deadline})
		}
	}
	sort.SliceStable(fires, func(i, j int) bool {
		return fires[i].deadline < fires[j].deadline
	})
	for _, f := range fires {
		s.clients[f.index].OnSend(s, s.rng)
		s.timers[f.index] = s.nextTimer(s.time)
		if s.metrics != nil {
			s.metrics.TimerFires.Inc()
		}
		s.logger.Debug("timer fired",
			zap.String("node_id", s.nodeIDs[f.index]),
			zap.Float64("time", s.time),
		)
	}

	// Fix the delivery set before dispatching: anything sent from here
	// on waits for a later tick even when MessageDelay is zero.
	s.mu.Lock()
	var arrived, pending []message[P, Q]
	for _, m := range s.messages {
		if m.end <= s.time {
			arrived = append(arrived, m)
		} else {
			pending = append(pending, m)
		}
	}
	s.messages = pending
	s.mu.Unlock()

	sort.SliceStable(arrived, func(i, j int) bool {
		return arrived[i].end < arrived[j].end
	})
	for _, m := range arrived {
		s.clients[s.byID[m.to]].OnReceive(m.from, m.msg, s)
		if s.metrics != nil {
			s.metrics.EnvelopesDelivered.WithLabelValues(m.msg.Kind.String()).Inc()
		}
		s.logger.Debug("envelope delivered",
			zap.String("from", m.from),
			zap.String("to", m.to),
			zap.String("kind", m.msg.Kind.String()),
		)
	}
	if s.metrics != nil {
		s.mu.Lock()
		s.metrics.MessagesInFlight.Set(float64(len(s.messages)))
		s.mu.Unlock()
	}
}

// MessageDebug describes one in-flight envelope.
type MessageDebug struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Progress float64 `json:"progress"`
	Kind     string  `json:"kind"`
}

// ClientDebug describes one client.
type ClientDebug struct {
	ID       string  `json:"id"`
	Hash     string  `json:"hash"`
	Progress float64 `json:"progress"`
}

// Debug is the snapshot contract with any visualiser.
type Debug struct {
	Time     float64        `json:"time"`
	Messages []MessageDebug `json:"messages"`
	Clients  []ClientDebug  `json:"clients"`
}

// Debug returns the current snapshot: every in-flight envelope with its
// transit progress and every client with its state hash and timer
// progress.
func (s *Simulator[P, Q]) Debug() Debug {
	s.mu.Lock()
	inFlight := make([]message[P, Q], len(s.messages))
	copy(inFlight, s.messages)
	s.mu.Unlock()

	messages := make([]MessageDebug, 0, len(inFlight))
	for _, m := range inFlight {
		messages = append(messages, MessageDebug{
			From:     m.from,
			To:       m.to,
			Progress: progress(s.time, m.start, m.end),
			Kind:     m.msg.Kind.String(),
		})
	}
	clients := make([]ClientDebug, 0, len(s.clients))
	for i, client := range s.clients {
		tm := s.timers[i]
		clients = append(clients, ClientDebug{
			ID:       client.ID(),
			Hash:     client.Node().DebugHash(),
			Progress: progress(s.time, tm.start, tm.deadline),
		})
	}
	return Debug{Time: s.time, Messages: messages, Clients: clients}
}

// DebugClient returns the structured state of the named node. An
// unknown id is a programmer error.
func (s *Simulator[P, Q]) DebugClient(id gossip.NodeID) map[string]interface{} {
	index, ok := s.byID[id]
	if !ok {
		panic("sim: unknown node " + id)
	}
	state, ok := s.clients[index].Node().DebugState()
	if !ok {
		return nil
	}
	return state
}

// progress maps now into [0,1] between start and end.
func progress(now, start, end float64) float64 {
	if end <= start {
		return 1
	}
	return math.Min(1, math.Max(0, (now-start)/(end-start)))
}
