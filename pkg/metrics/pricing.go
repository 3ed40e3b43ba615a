package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics records resolution and calculation metadata.
type PricingMetrics struct {
	resolutions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	cacheHits   *prometheus.CounterVec
}

// Resolution source labels.
const (
	SourceCustomerTable = "customer_table"
	SourceOverrideTable = "override_table"
	SourceDefaultTable  = "default_table"
	SourceBasePrice     = "base_price"
	SourceNone          = "none"
)

// NewPricingMetrics registers the pricing metrics on the provided registerer.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_resolutions_total",
		Help: "Price resolutions by source.",
	}, []string{"source", "promo"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_operation_duration_seconds",
		Help:    "Duration of pricing operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_cache_requests_total",
		Help: "Price cache lookups by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(resolutions, duration, cacheHits)
	return &PricingMetrics{
		resolutions: resolutions,
		duration:    duration,
		cacheHits:   cacheHits,
	}
}

// IncResolution counts one resolution attributed to the given source.
func (p *PricingMetrics) IncResolution(source string, promo bool) {
	if p == nil || p.resolutions == nil {
		return
	}
	promoLabel := "false"
	if promo {
		promoLabel = "true"
	}
	p.resolutions.WithLabelValues(normalizeLabel(source), promoLabel).Inc()
}

// ObserveDuration records the duration for the named operation.
func (p *PricingMetrics) ObserveDuration(operation string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncCache counts one cache lookup with the given outcome (hit/miss/error).
func (p *PricingMetrics) IncCache(outcome string) {
	if p == nil || p.cacheHits == nil {
		return
	}
	p.cacheHits.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
