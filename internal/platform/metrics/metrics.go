package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the back-office business counters.
type Metrics struct {
	SignIns        prometheus.Counter
	SignInFailures prometheus.Counter
	SignUps        prometheus.Counter
	SignOuts       prometheus.Counter
	RecordChanges  *prometheus.CounterVec
	ImagesUploaded *prometheus.CounterVec
	BreakerOpen    *prometheus.GaugeVec
}

// New registers the metrics with reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		SignIns: f.NewCounter(prometheus.CounterOpts{
			Name: "unearthify_signins_total",
			Help: "Successful sign-ins",
		}),
		SignInFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "unearthify_signin_failures_total",
			Help: "Rejected sign-in attempts",
		}),
		SignUps: f.NewCounter(prometheus.CounterOpts{
			Name: "unearthify_signups_total",
			Help: "Accounts registered",
		}),
		SignOuts: f.NewCounter(prometheus.CounterOpts{
			Name: "unearthify_signouts_total",
			Help: "Tokens revoked by sign-out",
		}),
		RecordChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unearthify_record_changes_total",
			Help: "Catalog records changed, by kind and action",
		}, []string{"kind", "action"}),
		ImagesUploaded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "unearthify_images_uploaded_total",
			Help: "Images stored, by kind",
		}, []string{"kind"}),
		BreakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "unearthify_circuit_open",
			Help: "1 while a dependency runs on its fallback",
		}, []string{"name"}),
	}
}

func (m *Metrics) IncSignIn() {
	if m != nil {
		m.SignIns.Inc()
	}
}

func (m *Metrics) IncSignInFailure() {
	if m != nil {
		m.SignInFailures.Inc()
	}
}

func (m *Metrics) IncSignUp() {
	if m != nil {
		m.SignUps.Inc()
	}
}

func (m *Metrics) IncSignOut() {
	if m != nil {
		m.SignOuts.Inc()
	}
}

func (m *Metrics) IncRecordChange(kind, action string) {
	if m != nil {
		m.RecordChanges.WithLabelValues(kind, action).Inc()
	}
}

func (m *Metrics) IncImageUploaded(kind string) {
	if m != nil {
		m.ImagesUploaded.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(name string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(name).Set(v)
}
