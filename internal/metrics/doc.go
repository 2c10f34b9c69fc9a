// Package metrics provides the observability hooks of the page factory.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	builder := build.New(cfg, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The Prometheus implementation registers its collectors on the registry it
// is given; HTTPHandler serves that registry for scraping while the watcher
// runs.
package metrics
