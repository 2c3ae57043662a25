package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unified-control/internal/domain"
)

// Recorder counts router activity in prometheus counters.
type Recorder struct {
	dispatches *prometheus.CounterVec
	sends      *prometheus.CounterVec
	inbox      *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unified_dispatches_total",
				Help: "Operator commands by classification.",
			},
			[]string{"kind"},
		),
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unified_link_sends_total",
				Help: "Payloads addressed to a link, by role and outcome.",
			},
			[]string{"role", "outcome"},
		),
		inbox: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unified_inbox_lines_total",
				Help: "Lines received from peripherals, by role and whether the inbox accepted them.",
			},
			[]string{"role", "result"},
		),
	}
	reg.MustRegister(r.dispatches, r.sends, r.inbox)
	return r
}

func (r *Recorder) RecordDispatch(kind domain.DispatchKind) {
	r.dispatches.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) RecordSend(role domain.Role, outcome domain.SendOutcome) {
	r.sends.WithLabelValues(string(role), string(outcome)).Inc()
}

func (r *Recorder) RecordInbox(role domain.Role, accepted bool) {
	result := "accepted"
	if !accepted {
		result = "dropped"
	}
	r.inbox.WithLabelValues(string(role), result).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
