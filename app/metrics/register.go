// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "releasebot"

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register queues collectors from each metrics file's init.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers every queued collector with the default registry once.
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(collectors...)
	})
}

// RegisterRuntime exposes live queue depths as gauges. Call it once per process.
func RegisterRuntime(reg prometheus.Registerer, activeLanes func() int, senderPending func() int64) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_lanes",
			Help:      "Senders with a live inbound lane.",
		}, func() float64 { return float64(activeLanes()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sender_pending_jobs",
			Help:      "Outbound jobs queued or running.",
		}, func() float64 { return float64(senderPending()) }),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
