// Package monitor implements the background QPS sampling described in
// spec §5 ("Background maintenance (QPS sampling) runs on a fixed
// interval (≈2s)") — the original gateway's g_zgw_monitor->UpdateAndGetQPS()
// reproduced with Prometheus counters (SPEC_FULL [DOMAIN]).
package monitor

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// cronInterval mirrors the original's kZgwCronInterval (2s).
const cronInterval = 2 * time.Second

// Monitor counts completed requests and samples a requests-per-second
// gauge on a fixed interval. It is safe for concurrent use by every
// worker goroutine.
type Monitor struct {
	requests  int64
	lastCount int64

	RequestsTotal prometheus.Counter
	QPS           prometheus.Gauge

	stopCh chan struct{}
}

func New() *Monitor {
	m := &Monitor{
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zgw_requests_total",
			Help: "Total number of gateway requests handled.",
		}),
		QPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zgw_requests_per_second",
			Help: "Requests per second, sampled every ~2s.",
		}),
		stopCh: make(chan struct{}),
	}
	return m
}

// Register adds the monitor's collectors to reg (typically
// prometheus.DefaultRegisterer, exposed by the admin listener's
// /metrics endpoint).
func (m *Monitor) Register(reg prometheus.Registerer) {
	reg.MustRegister(m.RequestsTotal, m.QPS)
}

// Inc records one completed request.
func (m *Monitor) Inc() {
	atomic.AddInt64(&m.requests, 1)
	m.RequestsTotal.Inc()
}

// Run samples QPS every cronInterval until Stop is called. It is meant
// to run on its own goroutine for the process's lifetime, the Go
// analogue of the original's cron loop in ZgwServer::Start.
func (m *Monitor) Run() {
	t := time.NewTicker(cronInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			cur := atomic.LoadInt64(&m.requests)
			delta := cur - atomic.LoadInt64(&m.lastCount)
			atomic.StoreInt64(&m.lastCount, cur)
			m.QPS.Set(float64(delta) / cronInterval.Seconds())
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) Stop() { close(m.stopCh) }
