package generator_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"roomwatch.dev/roomwatch/pkg/generator"
)

var _ = Describe("Reader", func() {
	Describe("NewReader", func() {
		It("should populate the identity fields", func() {
			reader := generator.NewReader()
			Expect(reader).NotTo(BeNil())
			Expect(reader.ReaderID).NotTo(BeEmpty())
			Expect(reader.Location).NotTo(BeEmpty())
			Expect(reader.Firmware).NotTo(BeEmpty())
		})

		It("should create distinct readers on repeated calls", func() {
			first := generator.NewReader()
			second := generator.NewReader()
			Expect(first.ReaderID).NotTo(Equal(second.ReaderID))
		})
	})
})

var _ = Describe("TagReadGenerator", func() {
	var gen *generator.TagReadGenerator

	BeforeEach(func() {
		gen = generator.NewTagReadGenerator("reader-1")
	})

	Describe("NewTagReadGenerator", func() {
		It("should keep the reader identity", func() {
			Expect(gen.ReaderID()).To(Equal("reader-1"))
		})

		It("should build a pool of one to four tags", func() {
			pool := gen.TagPool()
			Expect(len(pool)).To(BeNumerically(">=", 1))
			Expect(len(pool)).To(BeNumerically("<=", 4))
		})

		It("should shape tag identifiers like reader firmware does", func() {
			for _, tag := range gen.TagPool() {
				Expect(tag).To(MatchRegexp(`^[A-Z]{2}[0-9]{6}$`))
			}
		})
	})

	Describe("GenerateRead", func() {
		It("should draw tags from the pool", func() {
			read := gen.GenerateRead(time.Now())
			Expect(gen.TagPool()).To(ContainElement(read.TagID))
		})

		It("should report a known status", func() {
			for range 50 {
				read := gen.GenerateRead(time.Now())
				Expect(read.Status).To(BeElementOf(generator.StatusDetected, generator.StatusAbsent))
			}
		})

		It("should stamp the read with the observation time in UTC", func() {
			at := time.Date(2026, 8, 30, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
			read := gen.GenerateRead(at)
			Expect(read.Timestamp).To(BeTemporally("==", at))
			Expect(read.Timestamp.Location()).To(Equal(time.UTC))
		})

		It("should mostly report the tag as detected", func() {
			detected := 0
			for range 200 {
				if gen.GenerateRead(time.Now()).Status == generator.StatusDetected {
					detected++
				}
			}
			Expect(detected).To(BeNumerically(">", 100))
		})
	})
})
