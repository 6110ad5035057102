package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"roomwatch.dev/roomwatch/internal/simulator"
	"roomwatch.dev/roomwatch/pkg/metrics"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the reader simulator",
	Long: `Run the reader simulator that:
- Generates synthetic RFID tag reads
- Publishes tag reads to the RabbitMQ ingest queue
- Supports multiple concurrent simulated readers`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	// Simulator-specific flags
	simulateCmd.Flags().String("rabbitmq-url", "amqp://localhost:5672", "RabbitMQ URL")
	simulateCmd.Flags().String("queue-name", "tag-reads", "RabbitMQ queue name for tag-read events")
	simulateCmd.Flags().Int("simulator-count", 3, "Number of concurrent simulators")
	simulateCmd.Flags().Duration("interval", 5*time.Second, "Interval between tag reads")

	// Bind flags to viper
	_ = viper.BindPFlag("simulator.rabbitmq.url", simulateCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("simulator.rabbitmq.queue_name", simulateCmd.Flags().Lookup("queue-name"))
	_ = viper.BindPFlag("simulator.count", simulateCmd.Flags().Lookup("simulator-count"))
	_ = viper.BindPFlag("simulator.interval", simulateCmd.Flags().Lookup("interval"))
}

func runSimulate(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting reader simulator")

	// Create simulator configuration from viper
	config := &simulator.ServerConfig{
		Logger:         logger,
		RabbitMQURL:    viper.GetString("simulator.rabbitmq.url"),
		QueueName:      viper.GetString("simulator.rabbitmq.queue_name"),
		SimulatorCount: viper.GetInt("simulator.count"),
		Interval:       viper.GetDuration("simulator.interval"),
		Metrics:        metrics.NewSimulatorMetrics("roomwatch"),
		MQMetrics:      metrics.NewMQMetrics("roomwatch"),
	}

	// Create and run server
	srv, err := simulator.NewServer(config)
	if err != nil {
		logger.Error("failed to create simulator server", "error", err)
		return err
	}

	logger.Info("simulator configuration",
		"rabbitmq_url", config.RabbitMQURL,
		"queue", config.QueueName,
		"simulator_count", config.SimulatorCount,
		"interval", config.Interval,
	)

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("simulator server error", "error", err)
		return err
	}

	logger.Info("simulator server stopped")
	return nil
}
