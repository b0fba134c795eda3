package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PharmacyMetrics records purchase primitive outcomes.
type PharmacyMetrics struct {
	duration  *prometheus.HistogramVec
	completed *prometheus.CounterVec
	denied    prometheus.Counter
	units     *prometheus.CounterVec
}

// NewPharmacyMetrics registers the pharmacy metrics on the provided registerer.
func NewPharmacyMetrics(reg prometheus.Registerer) *PharmacyMetrics {
	if reg == nil {
		return &PharmacyMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pharmacy_purchase_duration_seconds",
		Help:    "Duration of pharmacy purchase transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_purchases_total",
		Help: "Completed pharmacy purchases.",
	}, []string{"kind"})
	denied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pharmacy_purchases_denied_total",
		Help: "Purchases denied for insufficient stock.",
	})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pharmacy_units_sold_total",
		Help: "Units of medication sold.",
	}, []string{"kind"})
	reg.MustRegister(duration, completed, denied, units)
	return &PharmacyMetrics{
		duration:  duration,
		completed: completed,
		denied:    denied,
		units:     units,
	}
}

// ObserveDuration records how long the purchase transaction took.
func (p *PharmacyMetrics) ObserveDuration(kind string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncCompleted counts a committed purchase and the units it moved.
func (p *PharmacyMetrics) IncCompleted(kind string, quantity int) {
	if p == nil || p.completed == nil {
		return
	}
	label := normalizeLabel(kind)
	p.completed.WithLabelValues(label).Inc()
	if quantity > 0 {
		p.units.WithLabelValues(label).Add(float64(quantity))
	}
}

// IncDenied counts an insufficient stock denial.
func (p *PharmacyMetrics) IncDenied() {
	if p == nil || p.denied == nil {
		return
	}
	p.denied.Inc()
}
