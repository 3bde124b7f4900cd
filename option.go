package walletkit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vitwit/walletkit/catalog"
	"github.com/vitwit/walletkit/logger"
	"github.com/vitwit/walletkit/metrics"
	"github.com/vitwit/walletkit/router"
)

type Option func(*Wallet)

func WithLogger(l logger.Logger) Option {
	return func(w *Wallet) {
		w.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(w *Wallet) {
		w.metrics = r
	}
}

func WithTimeout(t time.Duration) Option {
	return func(w *Wallet) {
		w.timeout = t
	}
}

// WithProvider sets where account addresses come from. Without it the
// addresses listed in the config are used.
func WithProvider(p catalog.ChainCapabilityProvider) Option {
	return func(w *Wallet) {
		w.provider = p
	}
}

// WithRegisterer registers the Prometheus recorder on reg instead of the
// default registerer. Only used when metrics are enabled in the config.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(w *Wallet) {
		w.registerer = reg
	}
}

func WithCallsStatusProvider(p router.CallsStatusProvider) Option {
	return func(w *Wallet) {
		w.callsStatus = p
	}
}

// WithTable adds or replaces rows of the default namespace table.
func WithTable(t catalog.Table) Option {
	return func(w *Wallet) {
		w.table = w.table.Merge(t)
	}
}
