package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultPort = 2112

// Config contains telemetry configuration.
type Config struct {
	Port int `yaml:"port"` // port of the /metrics endpoint, 0 means 2112
}

// Measurements collects measurements for prometheus.
// Measurements with unknown names are skipped, so a nil *Measurements records nothing.
type Measurements struct {
	mu         sync.RWMutex
	registry   *prometheus.Registry
	histograms map[string]prometheus.Observer
	gauges     map[string]prometheus.Gauge
	counters   map[string]prometheus.Counter
}

// New creates Measurements with its own registry.
func New() *Measurements {
	return &Measurements{
		registry:   prometheus.NewRegistry(),
		histograms: make(map[string]prometheus.Observer),
		gauges:     make(map[string]prometheus.Gauge),
		counters:   make(map[string]prometheus.Counter),
	}
}

// CreateUpdateObservableHistogram creates observable histogram if it doesn't exist yet.
func (m *Measurements) CreateUpdateObservableHistogram(name, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.histograms[name]; ok {
		return
	}
	m.histograms[name] = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Name: name,
		Help: description,
	})
}

// CreateUpdateObservableGauge creates observable gauge if it doesn't exist yet.
func (m *Measurements) CreateUpdateObservableGauge(name, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gauges[name]; ok {
		return
	}
	m.gauges[name] = promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: description,
	})
}

// CreateUpdateCounter creates counter if it doesn't exist yet.
func (m *Measurements) CreateUpdateCounter(name, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.counters[name]; ok {
		return
	}
	m.counters[name] = promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: description,
	})
}

// RecordHistogramTime records time in microseconds if histogram with given name exists.
func (m *Measurements) RecordHistogramTime(name string, t time.Duration) bool {
	return m.RecordHistogramValue(name, float64(t.Microseconds()))
}

// RecordHistogramValue records value if histogram with given name exists.
func (m *Measurements) RecordHistogramValue(name string, f float64) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.histograms[name]; ok {
		v.Observe(f)
		return true
	}
	return false
}

// IncrementCounter increments counter if counter with given name exists.
func (m *Measurements) IncrementCounter(name string) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.counters[name]; ok {
		v.Inc()
		return true
	}
	return false
}

// SetGauge sets the gauge to the value if gauge with given name exists.
func (m *Measurements) SetGauge(name string, f float64) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.gauges[name]; ok {
		v.Set(f)
		return true
	}
	return false
}

// Gatherer returns the registry the measurements are registered with.
func (m *Measurements) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Run starts the server with prometheus telemetry endpoint.
// This function blocks until ctx is done. Server failure cancels the context.
func (m *Measurements) Run(ctx context.Context, cancel context.CancelFunc, cfg Config) error {
	port := cfg.Port
	if port > 65535 || port < 0 {
		return fmt.Errorf("port range allowed is from 1 to 65535, received %d", port)
	}
	if port == 0 {
		port = defaultPort
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: time.Second * 5}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, done := context.WithTimeout(context.Background(), time.Second*5)
	defer done()
	return srv.Shutdown(shutdownCtx)
}
