// Package promexport mirrors the group statistics computed at the root rank
// into Prometheus metrics.
package promexport

import (
	"github.com/prometheus/client_golang/prometheus"

	"mpimeasure/pkg/measure"
)

// Observer is a measure.Observer that publishes every group triple.
type Observer struct {
	stat         *prometheus.GaugeVec
	observations *prometheus.CounterVec
}

// NewObserver creates an Observer and registers its collectors with reg.
// The kind label separates runtime from skew measurements.
func NewObserver(reg prometheus.Registerer, kind measure.Kind) (*Observer, error) {
	labels := prometheus.Labels{"kind": kind.String()}
	o := &Observer{
		stat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "mpimeasure_group_seconds",
			Help:        "Last group statistic of a measured column, in seconds.",
			ConstLabels: labels,
		}, []string{"column", "stat"}),
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "mpimeasure_observations_total",
			Help:        "Number of group reductions per measured column.",
			ConstLabels: labels,
		}, []string{"column"}),
	}
	for _, c := range []prometheus.Collector{o.stat, o.observations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Observe implements measure.Observer.
func (o *Observer) Observe(column string, t measure.StatTriple) {
	o.stat.WithLabelValues(column, "min").Set(t.Min)
	o.stat.WithLabelValues(column, "avg").Set(t.Avg)
	o.stat.WithLabelValues(column, "max").Set(t.Max)
	o.observations.WithLabelValues(column).Inc()
}
