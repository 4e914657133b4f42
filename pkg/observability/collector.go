package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsFunc reads a fresh ledger summary.
type StatsFunc func(ctx context.Context) (*domain.Stats, error)

// LedgerCollector exports ledger state as gauges, read at scrape time.
type LedgerCollector struct {
	stats   StatsFunc
	timeout time.Duration
	logger  *slog.Logger

	participants *prometheus.Desc
	produce      *prometheus.Desc
	disputes     *prometheus.Desc
	proposals    *prometheus.Desc
	balance      *prometheus.Desc
	up           *prometheus.Desc
}

// NewLedgerCollector creates a collector. A zero timeout means 5s per scrape.
func NewLedgerCollector(stats StatsFunc, timeout time.Duration, logger *slog.Logger) *LedgerCollector {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LedgerCollector{
		stats:   stats,
		timeout: timeout,
		logger:  logger,
		participants: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "participants"),
			"Registered participants by role.", []string{"role"}, nil),
		produce: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "produce_batches"),
			"Produce batches by stored status.", []string{"status"}, nil),
		disputes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "open_disputes"),
			"Disputes not yet resolved.", nil, nil),
		proposals: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "proposals"),
			"Governance proposals created.", nil, nil),
		balance: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "vault_balance"),
			"Balance held by the vault custody accounts.", []string{"account"}, nil),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "ledger_up"),
			"Whether the last ledger read succeeded.", nil, nil),
	}
}

func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.participants
	ch <- c.produce
	ch <- c.disputes
	ch <- c.proposals
	ch <- c.balance
	ch <- c.up
}

func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	s, err := c.stats(ctx)
	if err != nil {
		c.logger.Warn("ledger stats unavailable", "err", err)
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)

	for _, role := range domain.Roles {
		ch <- prometheus.MustNewConstMetric(c.participants, prometheus.GaugeValue,
			float64(s.Participants[role]), role.String())
	}
	for status, n := range s.Produce {
		ch <- prometheus.MustNewConstMetric(c.produce, prometheus.GaugeValue, float64(n), string(status))
	}
	ch <- prometheus.MustNewConstMetric(c.disputes, prometheus.GaugeValue, float64(s.OpenDisputes))
	ch <- prometheus.MustNewConstMetric(c.proposals, prometheus.GaugeValue, float64(s.Proposals))
	ch <- prometheus.MustNewConstMetric(c.balance, prometheus.GaugeValue, float64(s.VaultBalance), "payment")
	ch <- prometheus.MustNewConstMetric(c.balance, prometheus.GaugeValue, float64(s.StakeVaultBalance), "stake")
}
