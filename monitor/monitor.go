// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/dungeonserver/game"
)

type Metrics struct {
	OnlinePlayers    *prometheus.GaugeVec
	LivingPlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	MessagesReceived *prometheus.CounterVec
	CommandFailures  prometheus.Counter
	ConnectionErrors prometheus.Counter
	GamesWon         prometheus.Counter
	MessageLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlinePlayers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected clients by transport",
		}, []string{"transport"}),
		LivingPlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "living_players",
			Help:      "Number of players still alive in the game",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of running games",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of command lines received, by verb",
		}, []string{"verb"}),
		CommandFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_failures_total",
			Help:      "Commands answered with FAIL",
		}),
		ConnectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_errors_total",
			Help:      "Connections torn down by an I/O or framing error",
		}),
		GamesWon: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_won_total",
			Help:      "Games that ended with a winner",
		}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Command processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.OnlinePlayers,
		m.LivingPlayers,
		m.ActiveRooms,
		m.MessagesReceived,
		m.CommandFailures,
		m.ConnectionErrors,
		m.GamesWon,
		m.MessageLatency,
	}
}

var publishOnce sync.Once

// Monitor owns a private registry, so several can coexist in one process.
// It is also a game.Observer.
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

func NewMonitor(namespace string) *Monitor {
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	m.registry.MustRegister(m.metrics.collectors()...)
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves /metrics, /healthz and /debug/vars.
func (m *Monitor) Handler() http.Handler {
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			return m.RequestCount()
		}))
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// NewServer builds, but does not start, the HTTP server for Handler.
func (m *Monitor) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (m *Monitor) IncOnlinePlayers(transport string) {
	m.metrics.OnlinePlayers.WithLabelValues(transport).Inc()
}

func (m *Monitor) DecOnlinePlayers(transport string) {
	m.metrics.OnlinePlayers.WithLabelValues(transport).Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived(verb string) {
	m.metrics.MessagesReceived.WithLabelValues(verb).Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) RequestCount() int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.requestCount
}

func (m *Monitor) IncCommandFailures() {
	m.metrics.CommandFailures.Inc()
}

func (m *Monitor) IncConnectionErrors() {
	m.metrics.ConnectionErrors.Inc()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

// PlayerJoined implements game.Observer.
func (m *Monitor) PlayerJoined(game.PlayerView) {
	m.metrics.LivingPlayers.Inc()
}

// PlayerLeft implements game.Observer.
func (m *Monitor) PlayerLeft(game.PlayerView) {
	m.metrics.LivingPlayers.Dec()
}

// GameWon implements game.Observer.
func (m *Monitor) GameWon(game.PlayerView, []game.PlayerView) {
	m.metrics.GamesWon.Inc()
}

var _ game.Observer = (*Monitor)(nil)
