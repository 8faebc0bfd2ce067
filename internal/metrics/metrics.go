// Package metrics holds the relay's Prometheus collectors. All methods are
// safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	connections prometheus.Gauge
	rooms       prometheus.Gauge
	broadcasts  prometheus.Counter
	deliveries  *prometheus.CounterVec
	evictions   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "connections",
			Help:      "Currently open client connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "rooms",
			Help:      "Rooms in the registry.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "broadcasts_total",
			Help:      "Room broadcasts issued.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "deliveries_total",
			Help:      "Per-member broadcast deliveries by result.",
		}, []string{"result"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "member_evictions_total",
			Help:      "Members removed from a room after a failed delivery.",
		}),
	}
	reg.MustRegister(m.connections, m.rooms, m.broadcasts, m.deliveries, m.evictions)
	return m
}

// Handler serves the collectors registered in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) RoomCreated() {
	if m != nil {
		m.rooms.Inc()
	}
}

func (m *Metrics) Broadcast(delivered, failed int) {
	if m == nil {
		return
	}
	m.broadcasts.Inc()
	m.deliveries.WithLabelValues("ok").Add(float64(delivered))
	m.deliveries.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) MemberEvicted() {
	if m != nil {
		m.evictions.Inc()
	}
}
