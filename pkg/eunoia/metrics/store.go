package metrics

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

type store struct {
	mu            sync.RWMutex
	counter       map[string]metric.Int64Counter
	upDownCounter map[string]metric.Float64UpDownCounter
	histogram     map[string]metric.Float64Histogram
}

// registrationError reports a lookup of an unregistered metric, or a second registration of the same name.
type registrationError struct {
	name   string
	exists bool
}

func (e registrationError) Error() string {
	if e.exists {
		return fmt.Sprintf("metric %q is already registered", e.name)
	}

	return fmt.Sprintf("metric %q is not registered", e.name)
}

func newStore() *store {
	return &store{
		counter:       make(map[string]metric.Int64Counter),
		upDownCounter: make(map[string]metric.Float64UpDownCounter),
		histogram:     make(map[string]metric.Float64Histogram),
	}
}

func (s *store) getCounter(name string) (metric.Int64Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.counter[name]
	if !ok {
		return nil, registrationError{name: name}
	}

	return m, nil
}

func (s *store) getUpDownCounter(name string) (metric.Float64UpDownCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.upDownCounter[name]
	if !ok {
		return nil, registrationError{name: name}
	}

	return m, nil
}

func (s *store) getHistogram(name string) (metric.Float64Histogram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.histogram[name]
	if !ok {
		return nil, registrationError{name: name}
	}

	return m, nil
}

func (s *store) setCounter(name string, m metric.Int64Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.counter[name]; ok {
		return registrationError{name: name, exists: true}
	}

	s.counter[name] = m

	return nil
}

func (s *store) setUpDownCounter(name string, m metric.Float64UpDownCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.upDownCounter[name]; ok {
		return registrationError{name: name, exists: true}
	}

	s.upDownCounter[name] = m

	return nil
}

func (s *store) setHistogram(name string, m metric.Float64Histogram) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.histogram[name]; ok {
		return registrationError{name: name, exists: true}
	}

	s.histogram[name] = m

	return nil
}
