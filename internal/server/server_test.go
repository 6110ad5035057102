package server_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"roomwatch.dev/roomwatch/internal/server"
)

var _ = Describe("NewServer", func() {
	var cfg *server.ServerConfig

	BeforeEach(func() {
		cfg = &server.ServerConfig{
			Logger:     newTestLogger(),
			DBHost:     "localhost",
			DBPort:     5432,
			DBUser:     "postgres",
			DBPassword: "postgres",
			DBName:     "roomwatch",
			DBSSLMode:  "disable",
			HTTPPort:   8080,
		}
	})

	It("should create a server from a valid config", func() {
		srv, err := server.NewServer(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv).NotTo(BeNil())
	})

	It("should return error when config is nil", func() {
		srv, err := server.NewServer(nil)
		Expect(err).To(HaveOccurred())
		Expect(srv).To(BeNil())
	})

	DescribeTable("should reject an invalid config",
		func(mutate func(*server.ServerConfig), msg string) {
			mutate(cfg)
			srv, err := server.NewServer(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(msg))
			Expect(srv).To(BeNil())
		},
		Entry("missing logger", func(c *server.ServerConfig) { c.Logger = nil }, "logger"),
		Entry("missing database host", func(c *server.ServerConfig) { c.DBHost = "" }, "database host"),
		Entry("zero database port", func(c *server.ServerConfig) { c.DBPort = 0 }, "database port"),
		Entry("missing database user", func(c *server.ServerConfig) { c.DBUser = "" }, "database user"),
		Entry("missing database name", func(c *server.ServerConfig) { c.DBName = "" }, "database name"),
		Entry("zero HTTP port", func(c *server.ServerConfig) { c.HTTPPort = 0 }, "HTTP port"),
	)

	Context("with RabbitMQ configured", func() {
		BeforeEach(func() {
			cfg.RabbitMQURL = "amqp://localhost:5672"
			cfg.IngestQueue = "tag-reads"
			cfg.AlertQueue = "alerts"
		})

		It("should accept the full AMQP config", func() {
			srv, err := server.NewServer(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("should require an ingest queue name", func() {
			cfg.IngestQueue = ""
			_, err := server.NewServer(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("ingest queue"))
		})

		It("should require an alert queue name", func() {
			cfg.AlertQueue = ""
			_, err := server.NewServer(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("alert queue"))
		})
	})

	It("should not require queue names when RabbitMQ is disabled", func() {
		cfg.RabbitMQURL = ""
		cfg.IngestQueue = ""
		cfg.AlertQueue = ""
		srv, err := server.NewServer(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(srv).NotTo(BeNil())
	})
})
