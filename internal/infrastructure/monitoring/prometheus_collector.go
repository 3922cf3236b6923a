package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Counters
	requestsTotal    *prometheus.CounterVec
	conditionChanges *prometheus.CounterVec
	segmentBytes     prometheus.Counter

	// Histograms
	simulatedDelay  *prometheus.HistogramVec
	requestDuration *prometheus.HistogramVec

	// Gauges
	currentBitrate   prometheus.Gauge
	currentCondition *prometheus.GaugeVec
}

// NewPrometheusCollector registers the mock server metrics with reg.
// A nil reg uses the default registry.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamqa_http_requests_total",
			Help: "Total number of HTTP requests served by the mock server",
		}, []string{"method", "route", "status"}),

		conditionChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamqa_network_condition_changes_total",
			Help: "Number of network condition switches, by target condition",
		}, []string{"condition"}),

		segmentBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "streamqa_segment_bytes_total",
			Help: "Total amount of segment payload served in bytes",
		}),

		simulatedDelay: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamqa_simulated_delay_seconds",
			Help:    "Simulated network delay applied to requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1},
		}, []string{"condition"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamqa_http_request_duration_seconds",
			Help:    "Duration of HTTP requests including simulated delay",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		currentBitrate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streamqa_current_bitrate_kbps",
			Help: "Bitrate of the current network condition in kbps",
		}),

		currentCondition: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streamqa_network_condition",
			Help: "1 for the active network condition, 0 otherwise",
		}, []string{"condition"}),
	}
}

func (p *PrometheusCollector) RecordRequest(method, route string, status int, duration time.Duration) {
	p.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordSegmentServed(bytes int) {
	p.segmentBytes.Add(float64(bytes))
}

func (p *PrometheusCollector) ObserveDelay(condition string, applied time.Duration) {
	p.simulatedDelay.WithLabelValues(condition).Observe(applied.Seconds())
}

func (p *PrometheusCollector) ConditionChanged(from, to string, bitrate int) {
	p.conditionChanges.WithLabelValues(to).Inc()
	p.SetCondition(from, to, bitrate)
}

// SetCondition publishes the active condition without counting a change.
func (p *PrometheusCollector) SetCondition(from, to string, bitrate int) {
	if from != "" && from != to {
		p.currentCondition.WithLabelValues(from).Set(0)
	}
	p.currentCondition.WithLabelValues(to).Set(1)
	p.currentBitrate.Set(float64(bitrate))
}
