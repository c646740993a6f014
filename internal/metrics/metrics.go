// Package metrics holds the prometheus instrumentation for shmbus. All
// increment helpers are nil-safe so instrumentation stays optional.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// PublisherMetrics counts the publisher-side chunk lifecycle events of one
// service.
type PublisherMetrics struct {
	Loans        prometheus.Counter
	LoanFailures prometheus.Counter
	Publishes    prometheus.Counter
	Releases     prometheus.Counter
}

// NewPublisherMetrics builds the publisher counters for a service and
// registers them when reg is non-nil.
func NewPublisherMetrics(reg prometheus.Registerer, service string) *PublisherMetrics {
	labels := prometheus.Labels{"service": service}
	m := &PublisherMetrics{
		Loans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmbus", Subsystem: "publisher", Name: "loans_total",
			Help: "Chunks loaned from the pool.", ConstLabels: labels,
		}),
		LoanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmbus", Subsystem: "publisher", Name: "loan_failures_total",
			Help: "Loan attempts rejected by the allocation port.", ConstLabels: labels,
		}),
		Publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmbus", Subsystem: "publisher", Name: "publishes_total",
			Help: "Chunks handed to the transport.", ConstLabels: labels,
		}),
		Releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmbus", Subsystem: "publisher", Name: "releases_total",
			Help: "Loaned chunks released without publishing.", ConstLabels: labels,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Loans, m.LoanFailures, m.Publishes, m.Releases)
	}
	return m
}

func (m *PublisherMetrics) IncLoans() {
	if m != nil {
		m.Loans.Inc()
	}
}

func (m *PublisherMetrics) IncLoanFailures() {
	if m != nil {
		m.LoanFailures.Inc()
	}
}

func (m *PublisherMetrics) IncPublishes() {
	if m != nil {
		m.Publishes.Inc()
	}
}

func (m *PublisherMetrics) IncReleases() {
	if m != nil {
		m.Releases.Inc()
	}
}

// TransportMetrics counts fan-out outcomes of one endpoint.
type TransportMetrics struct {
	Sends prometheus.Counter
	Drops prometheus.Counter
}

// NewTransportMetrics builds the endpoint counters for a service and
// registers them when reg is non-nil.
func NewTransportMetrics(reg prometheus.Registerer, service string) *TransportMetrics {
	labels := prometheus.Labels{"service": service}
	m := &TransportMetrics{
		Sends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmbus", Subsystem: "transport", Name: "sends_total",
			Help: "Chunks fanned out to subscribers.", ConstLabels: labels,
		}),
		Drops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shmbus", Subsystem: "transport", Name: "drops_total",
			Help: "Deliveries dropped because a subscriber queue was full.", ConstLabels: labels,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Sends, m.Drops)
	}
	return m
}

func (m *TransportMetrics) IncSends() {
	if m != nil {
		m.Sends.Inc()
	}
}

func (m *TransportMetrics) IncDrops() {
	if m != nil {
		m.Drops.Inc()
	}
}
