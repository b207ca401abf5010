package vault

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/vault/asset"
)

// Metrics exports vault activity to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	operations  *prometheus.CounterVec
	deposited   prometheus.Counter
	paidOut     prometheus.Counter
	totalShares prometheus.Gauge
	custody     prometheus.Gauge
	halted      prometheus.Gauge
}

// NewMetrics registers the vault collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_operations_total",
				Help: "Vault operations by kind and result",
			},
			[]string{"op", "result"},
		),
		deposited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_deposited_base_units_total",
			Help: "Asset received by the vault as measured by custody balance deltas",
		}),
		paidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vault_payout_base_units_total",
			Help: "Asset requested from the ledger for redemptions",
		}),
		totalShares: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_total_shares",
			Help: "Outstanding vault shares",
		}),
		custody: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_custody_balance_base_units",
			Help: "Last custody balance observed by the vault",
		}),
		halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vault_halted",
			Help: "1 once an invariant violation has halted the vault",
		}),
	}

	reg.MustRegister(m.operations, m.deposited, m.paidOut, m.totalShares, m.custody, m.halted)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, errorClass(err)).Inc()
}

func (m *Metrics) deposit(received asset.Amount) {
	if m == nil {
		return
	}
	m.deposited.Add(float64(received))
}

func (m *Metrics) payout(amount asset.Amount) {
	if m == nil {
		return
	}
	m.paidOut.Add(float64(amount))
}

func (m *Metrics) state(total, custody asset.Amount) {
	if m == nil {
		return
	}
	m.totalShares.Set(float64(total))
	m.custody.Set(float64(custody))
}

func (m *Metrics) halt() {
	if m == nil {
		return
	}
	m.halted.Set(1)
}
