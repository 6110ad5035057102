// Package generator produces synthetic RFID readers and tag-read events
// for the simulator.
package generator

import (
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"roomwatch.dev/roomwatch/pkg/tagread"
)

// Reader describes a simulated RFID reader device.
type Reader struct {
	ReaderID string `fake:"{uuid}"`
	Location string `fake:"{city}, {state}"`
	Firmware string `fake:"{appversion}"`
}

// NewReader creates a reader with randomized identity fields.
func NewReader() *Reader {
	var reader Reader
	if err := gofakeit.Struct(&reader); err != nil {
		return nil
	}
	return &reader
}

// TagReadGenerator produces plausible tag reads for one reader: a small
// fixed pool of known tags, mostly "detected" with occasional "absent"
// reads to mimic a tag leaving the antenna field.
type TagReadGenerator struct {
	readerID string
	tagPool  []string
}

// Tag-read statuses as real reader firmware reports them.
const (
	StatusDetected = "detected"
	StatusAbsent   = "absent"
)

// Fraction of reads that report the tag as absent.
const absentProbability = 0.15

// NewTagReadGenerator creates a generator with a pool of 1-4 tags.
// Note: Uses math/rand which is acceptable for simulation data.
func NewTagReadGenerator(readerID string) *TagReadGenerator {
	tagCount := rand.Intn(4) + 1 // #nosec G404 - weak random is acceptable for test data generation
	tags := make([]string, 0, tagCount)
	for range tagCount {
		tags = append(tags, randomTagID())
	}

	return &TagReadGenerator{
		readerID: readerID,
		tagPool:  tags,
	}
}

// ReaderID returns the identity of the simulated reader.
func (g *TagReadGenerator) ReaderID() string {
	return g.readerID
}

// TagPool returns the tag identifiers this generator reads from.
func (g *TagReadGenerator) TagPool() []string {
	return g.tagPool
}

// GenerateRead produces one tag read observed at t.
func (g *TagReadGenerator) GenerateRead(t time.Time) tagread.TagRead {
	tagID := g.tagPool[rand.Intn(len(g.tagPool))] // #nosec G404 - weak random is acceptable for simulation

	status := StatusDetected
	if rand.Float64() < absentProbability { // #nosec G404
		status = StatusAbsent
	}

	return tagread.TagRead{
		TagID:     tagID,
		Status:    status,
		Timestamp: t.UTC(),
	}
}

// randomTagID builds an identifier shaped like the hex tag IDs RFID
// readers report, e.g. "AB123456".
func randomTagID() string {
	return strings.ToUpper(gofakeit.LetterN(2)) + gofakeit.DigitN(6)
}
