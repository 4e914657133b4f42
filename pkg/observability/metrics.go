package observability

import (
	"context"
	"net/http"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "furrow"

// Metrics holds the ledger collectors.
type Metrics struct {
	Instructions *prometheus.CounterVec
	Settled      *prometheus.CounterVec
	VaultFunded  prometheus.Counter
	Disputes     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Instructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instructions_total",
				Help:      "Ledger instructions by operation and outcome (committed or the error code).",
			},
			[]string{"op", "outcome"},
		),
		Settled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settled_amount_total",
				Help:      "Amount paid out of the payment vault by delivery settlements.",
			},
			[]string{"party"},
		),
		VaultFunded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vault_funded_amount_total",
				Help:      "Amount moved into the payment vault by retailers.",
			},
		),
		Disputes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disputes_total",
				Help:      "Disputes raised and resolved.",
			},
			[]string{"event"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Instructions, m.Settled, m.VaultFunded, m.Disputes)
	}
	return m
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: m.observeCommit,
		OnReject: m.observeReject,
	}
}

func (m *Metrics) observeCommit(_ context.Context, ev *domain.Event) {
	m.Instructions.WithLabelValues(string(ev.Op), "committed").Inc()

	switch ev.Op {
	case domain.OpFundVault:
		m.VaultFunded.Add(float64(ev.Amount))
	case domain.OpConfirmDelivery:
		if s := ev.Settlement; s != nil {
			m.Settled.WithLabelValues("farmer").Add(float64(s.FarmerAmount))
			m.Settled.WithLabelValues("transporter").Add(float64(s.TransporterAmount))
		}
	case domain.OpRaiseDispute:
		m.Disputes.WithLabelValues("raised").Inc()
	case domain.OpVerifyQuality:
		if ev.Status == domain.StatusDisputed {
			m.Disputes.WithLabelValues("raised").Inc()
		}
	case domain.OpResolveDispute:
		m.Disputes.WithLabelValues("resolved").Inc()
	}
}

func (m *Metrics) observeReject(_ context.Context, ev *domain.RejectEvent) {
	outcome := domain.CodeOf(ev.Err)
	if outcome == "" {
		outcome = "internal"
	}
	m.Instructions.WithLabelValues(string(ev.Op), outcome).Inc()
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
