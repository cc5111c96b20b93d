package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"arbiter/internal/app/worker"
	"arbiter/internal/identity"
	kafkainfra "arbiter/internal/infra/kafka"
	registryinfra "arbiter/internal/infra/registry"
	"arbiter/internal/runtime/docker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		zap.NewExample().Warn("skipping .env", zap.Error(err))
	}

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("worker exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadAppConfig()

	id, err := identity.LoadOrGenerate(cfg.KeyDir, cfg.WorkerID)
	if err != nil {
		return err
	}
	log.Info("worker identity loaded",
		zap.String("worker_id", id.WorkerID()),
		zap.String("public_key", id.PublicKey()))

	engine, err := docker.New(cfg.Docker, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			log.Warn("close sandbox engine", zap.Error(cerr))
		}
	}()

	consumer, err := kafkainfra.NewConsumer(kafkainfra.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.JobsTopic,
		GroupID: cfg.GroupID,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := consumer.Close(); cerr != nil {
			log.Warn("close kafka consumer", zap.Error(cerr))
		}
	}()

	publisher, err := kafkainfra.NewPublisher(kafkainfra.PublisherConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.ResultsTopic,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			log.Warn("close kafka publisher", zap.Error(cerr))
		}
	}()

	registry, err := registryinfra.NewClient(cfg.RegistryURL)
	if err != nil {
		return err
	}

	coordinator := worker.NewCoordinator(engine, id, log)
	w := worker.New(cfg.Worker, coordinator, engine, consumer, publisher, registry, id, engine.Languages(), log)

	return w.Run(ctx)
}
