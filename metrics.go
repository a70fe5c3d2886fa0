package bmt

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts backend node traffic. A nil *Metrics records nothing, and
// one Metrics may be shared by several backends.
type Metrics struct {
	inserted  prometheus.Counter
	shared    prometheus.Counter
	collected prometheus.Counter
	live      prometheus.Gauge
}

// NewMetrics creates the backend metrics and registers them with reg, if
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bmt",
			Subsystem: "backend",
			Name:      "nodes_inserted_total",
			Help:      "Nodes stored for the first time",
		}),
		shared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bmt",
			Subsystem: "backend",
			Name:      "nodes_shared_total",
			Help:      "Inserts that found the node already stored and only bumped its count",
		}),
		collected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bmt",
			Subsystem: "backend",
			Name:      "nodes_collected_total",
			Help:      "Nodes removed after their count reached zero",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bmt",
			Subsystem: "backend",
			Name:      "nodes_live",
			Help:      "Nodes currently stored",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.inserted, m.shared, m.collected, m.live} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) nodeInserted() {
	if m == nil {
		return
	}
	m.inserted.Inc()
	m.live.Inc()
}

func (m *Metrics) nodeShared() {
	if m == nil {
		return
	}
	m.shared.Inc()
}

func (m *Metrics) nodeCollected() {
	if m == nil {
		return
	}
	m.collected.Inc()
	m.live.Dec()
}
