// Package simulator generates synthetic RFID tag reads and publishes
// them to the ingest queue, standing in for real reader devices.
package simulator

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"roomwatch.dev/roomwatch/pkg/generator"
	"roomwatch.dev/roomwatch/pkg/metrics"
	"roomwatch.dev/roomwatch/pkg/mq"
)

// Simulator manages a set of synthetic readers and publishes their tag
// reads to a message queue.
type Simulator struct {
	MQClient   mq.ClientInterface
	Readers    []*generator.Reader
	generators []*generator.TagReadGenerator
	metrics    *metrics.SimulatorMetrics // Optional metrics
}

// NewSimulator creates a simulator with a random number of readers.
// Note: Uses math/rand for reader generation which is acceptable for simulation data.
func NewSimulator(mqClient mq.ClientInterface) *Simulator {
	readerCount := rand.Intn(3) + 1 // #nosec G404 - weak random is acceptable for test data generation
	readers := make([]*generator.Reader, 0, readerCount)
	generators := make([]*generator.TagReadGenerator, 0, readerCount)

	for range readerCount {
		reader := generator.NewReader()
		if reader == nil {
			continue
		}
		readers = append(readers, reader)
		generators = append(generators, generator.NewTagReadGenerator(reader.ReaderID))
	}

	return &Simulator{
		MQClient:   mqClient,
		Readers:    readers,
		generators: generators,
	}
}

// SetMetrics sets the metrics collector for this simulator.
func (s *Simulator) SetMetrics(m *metrics.SimulatorMetrics) {
	s.metrics = m
	if m != nil {
		m.ReadersGenerated.Add(float64(len(s.Readers)))
	}
}

// PublishRead generates one tag read from a random reader and publishes
// it to the ingest queue.
func (s *Simulator) PublishRead(ctx context.Context) error {
	if len(s.generators) == 0 {
		return nil
	}

	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.GenerationDuration.WithLabelValues("tag_read"))
		defer timer.ObserveDuration()
	}

	gen := s.generators[rand.Intn(len(s.generators))] // #nosec G404 - weak random is acceptable for simulation
	read := gen.GenerateRead(time.Now())

	body, err := json.Marshal(read)
	if err != nil {
		if s.metrics != nil {
			s.metrics.GenerationFailures.WithLabelValues("marshal_error").Inc()
		}
		return err
	}

	if err := s.MQClient.Push(ctx, body); err != nil {
		if s.metrics != nil {
			s.metrics.GenerationFailures.WithLabelValues("push_error").Inc()
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.ReadsGenerated.WithLabelValues(read.Status).Inc()
	}

	return nil
}
