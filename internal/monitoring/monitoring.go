package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EnvelopesSent      *prometheus.CounterVec
	EnvelopesDelivered *prometheus.CounterVec
	MessagesInFlight   prometheus.Gauge
	TimerFires         prometheus.Counter
	LocalWrites        prometheus.Counter
	LocalDeletes       prometheus.Counter
}

// NewMetrics registers the engine metrics on the given registerer. Each
// simulator owns its own registry, so building several in one process
// stays safe.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EnvelopesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gossipkv_envelopes_sent_total",
			Help: "Total number of gossip envelopes posted to the runtime, by kind",
		}, []string{"kind"}),
		EnvelopesDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gossipkv_envelopes_delivered_total",
			Help: "Total number of gossip envelopes delivered to a client, by kind",
		}, []string{"kind"}),
		MessagesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gossipkv_messages_in_flight",
			Help: "Number of envelopes currently queued in the simulated transport",
		}),
		TimerFires: factory.NewCounter(prometheus.CounterOpts{
			Name: "gossipkv_timer_fires_total",
			Help: "Total number of client send timers fired",
		}),
		LocalWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "gossipkv_local_writes_total",
			Help: "Total number of key-value writes applied at their origin node",
		}),
		LocalDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "gossipkv_local_deletes_total",
			Help: "Total number of key deletes applied at their origin node",
		}),
	}
}
