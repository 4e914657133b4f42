/*
Package observability exports furrow ledger activity as Prometheus metrics.

Metrics implements domain.LifecycleHooks, so it plugs into the engine without
the engine knowing about Prometheus:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	ledger := furrow.New(store, furrow.WithLifecycleHooks(m.Hooks()))
*/
package observability
