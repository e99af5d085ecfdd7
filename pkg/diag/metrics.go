package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a sink that counts plugin events in prometheus collectors
type Metrics struct {
	loaded       prometheus.Counter
	loadFailures *prometheus.CounterVec
	initNonZero  prometheus.Counter
	unrecognized prometheus.Counter
	dispatches   *prometheus.CounterVec
	active       prometheus.Gauge
}

// NewMetrics creates the plugin collectors and registers them at reg. If
// reg is nil prometheus.DefaultRegisterer is used
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		loaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shplug_plugins_loaded_total",
			Help: "Total number of plugins registered",
		}),
		loadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shplug_plugin_load_failures_total",
			Help: "Total number of plugins that failed to load",
		}, []string{"reason"}),
		initNonZero: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shplug_plugin_init_nonzero_total",
			Help: "Total number of plugin_init calls that did not return 0",
		}),
		unrecognized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shplug_config_unrecognized_total",
			Help: "Total number of unrecognized configuration lines",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shplug_execve_dispatch_total",
			Help: "Total number of guarded execve dispatches by result",
		}, []string{"result"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shplug_plugins_active",
			Help: "Current number of registered plugins",
		}),
	}

	for _, c := range []prometheus.Collector{m.loaded, m.loadFailures, m.initNonZero, m.unrecognized, m.dispatches, m.active} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Emit implements Sink
func (m *Metrics) Emit(e Event) {
	switch e.Kind {
	case KindLoaded:
		m.loaded.Inc()
		m.active.Inc()
	case KindUnloaded:
		m.active.Dec()
	case KindOpenFailed:
		m.loadFailures.WithLabelValues("open").Inc()
	case KindSymbolMissing:
		m.loadFailures.WithLabelValues("symbol").Inc()
	case KindInitResult:
		if e.Code != 0 {
			m.initNonZero.Inc()
		}
	case KindInitRejected:
		m.loadFailures.WithLabelValues("init").Inc()
	case KindUnrecognized:
		m.unrecognized.Inc()
	case KindVeto:
		m.dispatches.WithLabelValues("veto").Inc()
	case KindAllow:
		m.dispatches.WithLabelValues("allow").Inc()
	}
}

// compile time check
var _ Sink = &Metrics{}
