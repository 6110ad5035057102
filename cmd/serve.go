package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"roomwatch.dev/roomwatch/internal/server"
	"roomwatch.dev/roomwatch/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Run the API server that:
- Ingests RFID tag reads over HTTP and optionally from RabbitMQ
- Tracks the shared presence mode flag
- Registers push-notification tokens
- Publishes buzzer and mode-change alerts to RabbitMQ
- Persists data to PostgreSQL`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server-specific flags
	serveCmd.Flags().String("db-host", "localhost", "PostgreSQL host")
	serveCmd.Flags().Int("db-port", 5432, "PostgreSQL port")
	serveCmd.Flags().String("db-user", "postgres", "PostgreSQL user")
	serveCmd.Flags().String("db-password", "", "PostgreSQL password")
	serveCmd.Flags().String("db-name", "roomwatch", "PostgreSQL database name")
	serveCmd.Flags().String("db-sslmode", "disable", "PostgreSQL SSL mode")
	serveCmd.Flags().String("rabbitmq-url", "", "RabbitMQ URL (empty disables AMQP ingest and alert publishing)")
	serveCmd.Flags().String("ingest-queue-name", "tag-reads", "RabbitMQ queue name for tag-read events")
	serveCmd.Flags().String("alert-queue-name", "alerts", "RabbitMQ queue name for alert notifications")
	serveCmd.Flags().Int("http-port", 8080, "HTTP server port")

	// Bind flags to viper
	_ = viper.BindPFlag("server.db.host", serveCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("server.db.port", serveCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("server.db.user", serveCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("server.db.password", serveCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("server.db.name", serveCmd.Flags().Lookup("db-name"))
	_ = viper.BindPFlag("server.db.sslmode", serveCmd.Flags().Lookup("db-sslmode"))
	_ = viper.BindPFlag("server.rabbitmq.url", serveCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("server.rabbitmq.ingest_queue_name", serveCmd.Flags().Lookup("ingest-queue-name"))
	_ = viper.BindPFlag("server.rabbitmq.alert_queue_name", serveCmd.Flags().Lookup("alert-queue-name"))
	_ = viper.BindPFlag("server.http.port", serveCmd.Flags().Lookup("http-port"))
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting roomwatch API service")

	// Create server configuration from viper
	config := &server.ServerConfig{
		Logger:      logger,
		DBHost:      viper.GetString("server.db.host"),
		DBPort:      viper.GetInt("server.db.port"),
		DBUser:      viper.GetString("server.db.user"),
		DBPassword:  viper.GetString("server.db.password"),
		DBName:      viper.GetString("server.db.name"),
		DBSSLMode:   viper.GetString("server.db.sslmode"),
		RabbitMQURL: viper.GetString("server.rabbitmq.url"),
		IngestQueue: viper.GetString("server.rabbitmq.ingest_queue_name"),
		AlertQueue:  viper.GetString("server.rabbitmq.alert_queue_name"),
		HTTPPort:    viper.GetInt("server.http.port"),
		Metrics:     metrics.NewServerMetrics("roomwatch"),
	}

	// Create and run server
	srv, err := server.NewServer(config)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		return err
	}

	logger.Info("server configuration",
		"db_host", config.DBHost,
		"db_port", config.DBPort,
		"db_name", config.DBName,
		"rabbitmq_url", config.RabbitMQURL,
		"ingest_queue", config.IngestQueue,
		"alert_queue", config.AlertQueue,
		"http_port", config.HTTPPort,
	)

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("server error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
