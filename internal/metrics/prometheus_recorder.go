package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pagefactory"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	passDuration      *prom.HistogramVec
	passOutcome       *prom.CounterVec
	stageDuration     *prom.HistogramVec
	pageResults       *prom.CounterVec
	manifestResults   *prom.CounterVec
	renderConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of build passes",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"}),
		passOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pass_outcomes_total",
			Help:      "Build passes by final status",
		}, []string{"status"}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Per-page duration of render, post-process and write stages",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"stage"}),
		pageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages by outcome",
		}, []string{"result"}),
		manifestResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "manifests_total",
			Help:      "Manifests processed by success/failure",
		}, []string{"result"}),
		renderConcurrency: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "render_concurrency",
			Help:      "Configured page render concurrency of the last pass",
		}),
	}
	reg.MustRegister(pr.passDuration, pr.passOutcome, pr.stageDuration, pr.pageResults, pr.manifestResults, pr.renderConcurrency)
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(mode string, d time.Duration) {
	if p == nil {
		return
	}
	p.passDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPassOutcome(status string) {
	if p == nil {
		return
	}
	p.passOutcome.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageResult(result PageResult) {
	if p == nil {
		return
	}
	p.pageResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncManifestResult(success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.manifestResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) SetRenderConcurrency(n int) {
	if p == nil {
		return
	}
	p.renderConcurrency.Set(float64(n))
}
