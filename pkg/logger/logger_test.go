package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"roomwatch.dev/roomwatch/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("should create a non-nil logger from the default config", func() {
			Expect(logger.New(logger.DefaultConfig())).NotTo(BeNil())
		})

		It("should fall back to defaults when the config is nil", func() {
			Expect(logger.New(nil)).NotTo(BeNil())
		})

		It("should accept a custom output and level", func() {
			log := logger.New(&logger.Config{
				Level:  slog.LevelDebug,
				Output: &bytes.Buffer{},
			})
			Expect(log).NotTo(BeNil())
		})

		It("should accept source annotation", func() {
			log := logger.New(&logger.Config{
				Level:     slog.LevelInfo,
				Output:    &bytes.Buffer{},
				AddSource: true,
			})
			Expect(log).NotTo(BeNil())
		})
	})

	Describe("NewDefault", func() {
		It("should create a non-nil logger", func() {
			Expect(logger.NewDefault()).NotTo(BeNil())
		})
	})

	Describe("NewWithLevel", func() {
		DescribeTable("should create loggers at every level",
			func(level slog.Level) {
				Expect(logger.NewWithLevel(level)).NotTo(BeNil())
			},
			Entry("debug level", slog.LevelDebug),
			Entry("info level", slog.LevelInfo),
			Entry("warn level", slog.LevelWarn),
			Entry("error level", slog.LevelError),
		)
	})

	Describe("ParseLevel", func() {
		DescribeTable("should parse level strings",
			func(input string, expected slog.Level) {
				Expect(logger.ParseLevel(input)).To(Equal(expected))
			},
			Entry("debug", "debug", slog.LevelDebug),
			Entry("info", "info", slog.LevelInfo),
			Entry("warn", "warn", slog.LevelWarn),
			Entry("warning", "warning", slog.LevelWarn),
			Entry("error", "error", slog.LevelError),
			Entry("unknown defaults to info", "trace", slog.LevelInfo),
			Entry("empty string defaults to info", "", slog.LevelInfo),
		)
	})

	Describe("output format", func() {
		var (
			buf *bytes.Buffer
			log *slog.Logger
		)

		BeforeEach(func() {
			buf = &bytes.Buffer{}
			log = logger.New(&logger.Config{
				Level:  slog.LevelInfo,
				Output: buf,
			})
		})

		It("should emit one JSON object per record", func() {
			log.Info("tag read stored")

			var entry map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
			Expect(entry).To(HaveKey("time"))
			Expect(entry).To(HaveKey("level"))
			Expect(entry).To(HaveKeyWithValue("msg", "tag read stored"))
		})

		It("should carry structured attributes", func() {
			log.Info("tag read stored", "tag_id", "AB123456", "limit", 50)

			var entry map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
			Expect(entry).To(HaveKeyWithValue("tag_id", "AB123456"))
			Expect(entry).To(HaveKeyWithValue("limit", float64(50)))
		})
	})

	Describe("level filtering", func() {
		DescribeTable("should drop records below the configured level",
			func(level slog.Level, emit func(*slog.Logger), wantOutput bool) {
				buf := &bytes.Buffer{}
				log := logger.New(&logger.Config{Level: level, Output: buf})

				emit(log)

				Expect(strings.TrimSpace(buf.String()) != "").To(Equal(wantOutput))
			},
			Entry("debug at debug level", slog.LevelDebug, func(l *slog.Logger) { l.Debug("m") }, true),
			Entry("debug at info level", slog.LevelInfo, func(l *slog.Logger) { l.Debug("m") }, false),
			Entry("info at info level", slog.LevelInfo, func(l *slog.Logger) { l.Info("m") }, true),
			Entry("info at error level", slog.LevelError, func(l *slog.Logger) { l.Info("m") }, false),
			Entry("error at error level", slog.LevelError, func(l *slog.Logger) { l.Error("m") }, true),
		)
	})

	Describe("WithContext", func() {
		It("should attach fields to every record", func() {
			buf := &bytes.Buffer{}
			log := logger.WithContext(
				logger.New(&logger.Config{Level: slog.LevelInfo, Output: buf}),
				slog.String("component", "consumer"),
				slog.Int("simulator_id", 2),
			)

			log.Info("started")

			var entry map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
			Expect(entry).To(HaveKeyWithValue("component", "consumer"))
			Expect(entry).To(HaveKeyWithValue("simulator_id", float64(2)))
		})
	})
})
