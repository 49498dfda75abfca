package block

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors the Block Executor updates as it
// processes transactions, grounded on the client_golang idiom of a
// registry-scoped struct of collectors rather than global package vars, so
// multiple Executors (e.g. one per simulated block in a test) do not clash
// on a shared default registry.
type Metrics struct {
	ProcessedTxs   prometheus.Counter
	RejectedTxs    prometheus.Counter
	DataUsed       prometheus.Gauge
	KVUsed         prometheus.Gauge
	ComputeGasUsed prometheus.Counter
}

// NewMetrics constructs and registers a Metrics set against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProcessedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mega_evm",
			Subsystem: "block",
			Name:      "transactions_processed_total",
			Help:      "Number of transactions included in a block.",
		}),
		RejectedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mega_evm",
			Subsystem: "block",
			Name:      "transactions_rejected_total",
			Help:      "Number of transactions rejected by the Transaction Handler before execution (block-limit rejections are not counted).",
		}),
		DataUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mega_evm",
			Subsystem: "block",
			Name:      "data_used_bytes",
			Help:      "Running total of Additional-Limit data bytes used this block.",
		}),
		KVUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mega_evm",
			Subsystem: "block",
			Name:      "kv_updates_used",
			Help:      "Running total of Additional-Limit key-value updates used this block.",
		}),
		ComputeGasUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mega_evm",
			Subsystem: "block",
			Name:      "compute_gas_used_total",
			Help:      "Cumulative compute gas spent across all transactions in this block.",
		}),
	}
	reg.MustRegister(m.ProcessedTxs, m.RejectedTxs, m.DataUsed, m.KVUsed, m.ComputeGasUsed)
	return m
}
