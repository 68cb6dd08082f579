package metrics

import (
	"github.com/DataDog/datadog-go/v5/statsd"
)

const sampleRate = 1.0

// Datadog sends metrics to a dogstatsd agent.
type Datadog struct {
	client statsd.ClientInterface
	prefix string
}

// NewDatadog connects to the agent at addr (host:port). All metric
// names are emitted under the given prefix.
func NewDatadog(addr, prefix string) (*Datadog, error) {
	client, err := statsd.New(addr, statsd.WithNamespace(prefix))
	if err != nil {
		return nil, err
	}
	return &Datadog{client: client, prefix: prefix}, nil
}

func (d *Datadog) Count(name string, value float64, tags []string) error {
	return d.client.Count(name, int64(value), tags, sampleRate)
}

func (d *Datadog) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, sampleRate)
}

func (d *Datadog) Histogram(name string, value float64, tags []string) error {
	return d.client.Histogram(name, value, tags, sampleRate)
}

// Close flushes buffered metrics and releases the client.
func (d *Datadog) Close() error {
	return d.client.Close()
}
