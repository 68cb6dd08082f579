package metrics

// Provider is the contract for emitting operational metrics. It keeps
// the business logic independent of the Datadog client so tests can
// swap in a recorder.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// Noop discards every metric. Used when no statsd endpoint is
// configured, typically in local runs and tests.
type Noop struct{}

func (Noop) Count(string, float64, []string) error     { return nil }
func (Noop) Gauge(string, float64, []string) error     { return nil }
func (Noop) Histogram(string, float64, []string) error { return nil }
