// Package telemetry provides the observability plumbing for ppactl.
//
// It integrates structured logging (zerolog), tracing (OpenTelemetry) and
// metrics (Prometheus), plus a small synchronous event publisher that the
// engine uses to report the actions it takes.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	logger := tel.Logger.NewComponentLogger("engine")
//	logger.Info("starting")
//
// # Debug timing
//
// TimingHook stamps each log line with the time since startup, the time since
// the previous line and the number of remote requests issued so far, which
// shows where a slow run spends its time.
//
// # Metrics
//
// ppactl is a short-lived command, so metrics are not served over HTTP.
// When MetricsConfig.Textfile is set, the registry is written there on
// Shutdown in the format read by node_exporter's textfile collector.
//
// # Events
//
// EventPublisher delivers events synchronously, in subscription order.
// The run history store subscribes to it to persist an audit trail.
package telemetry
