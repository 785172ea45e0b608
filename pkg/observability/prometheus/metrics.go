package prometheus

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fluxorio/arquebus/pkg/bus"
)

// DefaultRegistry holds bus metrics plus the Go runtime and process collectors
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics records bus activity as Prometheus metrics. It implements bus.Observer.
type Metrics struct {
	published     *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	subscriptions *prometheus.GaugeVec
}

var _ bus.Observer = (*Metrics)(nil)

// NewMetrics creates the bus collectors under namespace and registers them with reg.
// A nil reg means DefaultRegistry.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		reg = DefaultRegistry
	}

	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_total",
			Help:      "Messages published, by target.",
		}, []string{"target"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery attempts, by target, subscription kind and result.",
		}, []string{"target", "kind", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent delivering one message to one subscription.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"target", "kind"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions",
			Help:      "Live subscriptions, by target and subscription kind.",
		}, []string{"target", "kind"}),
	}

	for _, c := range []prometheus.Collector{m.published, m.deliveries, m.duration, m.subscriptions} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return nil, errors.New("bus metrics already registered under namespace " + namespace)
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Published(target string, _ int) {
	m.published.WithLabelValues(target).Inc()
}

func (m *Metrics) Delivered(target string, kind bus.Kind, elapsed time.Duration, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.deliveries.WithLabelValues(target, string(kind), result).Inc()
	m.duration.WithLabelValues(target, string(kind)).Observe(elapsed.Seconds())
}

func (m *Metrics) Subscribed(target string, kind bus.Kind) {
	m.subscriptions.WithLabelValues(target, string(kind)).Inc()
}

func (m *Metrics) Unsubscribed(target string, kind bus.Kind) {
	m.subscriptions.WithLabelValues(target, string(kind)).Dec()
}
