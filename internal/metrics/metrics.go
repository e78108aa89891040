// Package metrics exposes voting counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes
const (
	LoginOK        = "ok"
	LoginAmbiguous = "ambiguous"
	LoginNotFound  = "not_found"
	LoginInvalid   = "invalid"
)

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	votesCast     prometheus.Counter
	votesReplaced prometheus.Counter
	votesRemoved  prometheus.Counter
	resets        prometheus.Counter
	logins        *prometheus.CounterVec
	rosterSize    prometheus.Gauge
	ballots       prometheus.Gauge
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers the collectors on reg
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		votesCast: factory.NewCounter(prometheus.CounterOpts{
			Name: "motsvote_votes_cast_total",
			Help: "number of ballots recorded, including replacements",
		}),
		votesReplaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "motsvote_votes_replaced_total",
			Help: "number of ballots that replaced a different nominee",
		}),
		votesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "motsvote_votes_removed_total",
			Help: "number of ballots removed by an admin",
		}),
		resets: factory.NewCounter(prometheus.CounterOpts{
			Name: "motsvote_resets_total",
			Help: "number of season resets",
		}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "motsvote_logins_total",
			Help: "login attempts by outcome",
		}, []string{"outcome"}),
		rosterSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "motsvote_roster_size",
			Help: "active managers in the current roster snapshot",
		}),
		ballots: factory.NewGauge(prometheus.GaugeOpts{
			Name: "motsvote_ballots",
			Help: "occupied ballot slots in the current season",
		}),
	}
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// VoteCast records a cast; replaced is true when a different nominee was overwritten.
func (m *Metrics) VoteCast(replaced bool) {
	if m == nil {
		return
	}
	m.votesCast.Inc()
	if replaced {
		m.votesReplaced.Inc()
	}
}

func (m *Metrics) VoteRemoved() {
	if m == nil {
		return
	}
	m.votesRemoved.Inc()
}

func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetRosterSize(n int) {
	if m == nil {
		return
	}
	m.rosterSize.Set(float64(n))
}

func (m *Metrics) SetBallots(n int) {
	if m == nil {
		return
	}
	m.ballots.Set(float64(n))
}
