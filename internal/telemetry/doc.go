// Package telemetry provides diagnostics sinks for rule engines: a zap logging
// hook and a Prometheus observer.
//
// Example usage:
//
//	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
//
//	engine := rulekit.New(rules, rulekit.Descending,
//	    rulekit.WithHook[Order](telemetry.NewLoggingHook[Order](logger)),
//	    rulekit.WithObserver(telemetry.NewObserver[Order](metrics)),
//	)
//
//	http.Handle("/metrics", metrics.Handler())
package telemetry
