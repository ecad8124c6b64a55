package telemetry

import (
	"time"

	gometrics "github.com/armon/go-metrics"
)

// Metrics is the host's typed handle to increment/measure against. It wraps
// a *gometrics.Metrics built with gometrics.New, not the package-global
// instance; a nil Metrics ignores every call.
type Metrics struct {
	m *gometrics.Metrics
}

// NewMetrics builds a Metrics bound to serviceName, backed by an in-memory
// sink (armon/go-metrics' InmemSink) retaining one minute of interval data.
func NewMetrics(serviceName string) *Metrics {
	sink := gometrics.NewInmemSink(10*time.Second, time.Minute)
	cfg := gometrics.DefaultConfig(serviceName)
	cfg.EnableHostname = false
	m, _ := gometrics.New(cfg, sink)
	return &Metrics{m: m}
}

func (t *Metrics) IncrCounter(key []string, val float32) {
	if t == nil || t.m == nil {
		return
	}
	t.m.IncrCounter(key, val)
}

func (t *Metrics) MeasureSince(key []string, start time.Time) {
	if t == nil || t.m == nil {
		return
	}
	t.m.MeasureSince(key, start)
}

func (t *Metrics) SetGauge(key []string, val float32) {
	if t == nil || t.m == nil {
		return
	}
	t.m.SetGauge(key, val)
}
