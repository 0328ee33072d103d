// Package metrics provides Prometheus collectors for command dispatch,
// SSH execution and repository sync.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
)

// Path label values for command duration.
const (
	PathSSH    = "ssh"
	PathLadder = "ladder"
)

// Metrics groups the wslkit collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	strategyAttempts *prometheus.CounterVec
	sshCommands      *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	repoSync         *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		strategyAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wslkit_strategy_attempts_total",
				Help: "Local launcher strategy attempts by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		sshCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wslkit_ssh_commands_total",
				Help: "Commands executed over SSH by outcome",
			},
			[]string{"outcome"},
		),
		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wslkit_command_duration_seconds",
				Help:    "Time to execute a logical command by execution path",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		repoSync: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wslkit_repo_sync_total",
				Help: "Repository sync runs by terminal result",
			},
			[]string{"result"},
		),
	}
}

// RecordStrategy counts one launcher strategy attempt.
func (m *Metrics) RecordStrategy(strategy string, ok bool) {
	if m == nil {
		return
	}

	m.strategyAttempts.WithLabelValues(strategy, outcome(ok)).Inc()
}

// RecordSSHCommand counts one command sent over SSH.
func (m *Metrics) RecordSSHCommand(outcome string) {
	if m == nil {
		return
	}

	m.sshCommands.WithLabelValues(outcome).Inc()
}

// ObserveCommand records the wall time of a logical command.
func (m *Metrics) ObserveCommand(path string, d time.Duration) {
	if m == nil {
		return
	}

	m.commandDuration.WithLabelValues(path).Observe(d.Seconds())
}

// RecordRepoSync counts one terminal repository sync result.
func (m *Metrics) RecordRepoSync(result string) {
	if m == nil {
		return
	}

	m.repoSync.WithLabelValues(result).Inc()
}

// Handler returns the HTTP handler serving metrics from gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}

	return OutcomeFailure
}
