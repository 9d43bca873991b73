// Package metrics provides pipeline metrics for docexport runs.
//
// Components receive a Recorder through dependency injection and default
// to NoopRecorder, so no call site needs a nil check:
//
//	driver := pipeline.NewDriver(annotator, controller, exportCfg)
//	driver.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// PrometheusRecorder registers its collectors on a caller-supplied
// registry. One-shot CLI runs write that registry to a node_exporter
// textfile with WriteTextfile; long-running watch sessions can serve it
// with HTTPHandler.
package metrics
