package metrics

import "sync"

// Sample is one recorded metric emission.
type Sample struct {
	Name  string
	Value float64
	Tags  []string
}

// Recorder is a Provider that keeps every sample in memory, for tests.
type Recorder struct {
	mu         sync.Mutex
	Counts     []Sample
	Gauges     []Sample
	Histograms []Sample
}

func (r *Recorder) Count(name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counts = append(r.Counts, Sample{Name: name, Value: value, Tags: tags})
	return nil
}

func (r *Recorder) Gauge(name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Gauges = append(r.Gauges, Sample{Name: name, Value: value, Tags: tags})
	return nil
}

func (r *Recorder) Histogram(name string, value float64, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Histograms = append(r.Histograms, Sample{Name: name, Value: value, Tags: tags})
	return nil
}

// CountTotal sums the values recorded for a counter name.
func (r *Recorder) CountTotal(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total float64
	for _, s := range r.Counts {
		if s.Name == name {
			total += s.Value
		}
	}
	return total
}
