package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"arbiter/internal/app/worker"
	"arbiter/internal/domain/execution"
	"arbiter/internal/runtime/docker"
)

const (
	defaultKafkaBrokers      = "kafka:9092"
	defaultKafkaJobsTopic    = "submissions"
	defaultKafkaResultsTopic = "verdicts"
	defaultKafkaGroupID      = "arbiter-worker"

	defaultKeyDir      = "/var/lib/arbiter"
	defaultRegistryURL = "http://registry:8080"

	defaultTimeLimit   = 5 * time.Second
	defaultMemoryLimit = 256 * 1024 * 1024

	pythonImage   = "python:3.12-alpine"
	goImage       = "golang:1.22-alpine"
	goRunImage    = "alpine:3.20"
	cppImage      = "gcc:13-alpine"
	cppRunImage   = "alpine:3.20"
	javaImage     = "eclipse-temurin:17-jdk-alpine"
	javaRunImage  = "eclipse-temurin:17-jre-alpine"
	sandboxLayout = "/workspace"
)

type appConfig struct {
	WorkerID    string
	KeyDir      string
	RegistryURL string

	KafkaBrokers []string
	JobsTopic    string
	ResultsTopic string
	GroupID      string

	Worker worker.Config
	Docker docker.Config
}

func loadAppConfig() appConfig {
	return appConfig{
		WorkerID:    os.Getenv("WORKER_ID"),
		KeyDir:      envOrDefault("ARBITER_KEY_DIR", defaultKeyDir),
		RegistryURL: envOrDefault("REGISTRY_URL", defaultRegistryURL),

		KafkaBrokers: parseBrokerList(envOrDefault("KAFKA_BROKERS", defaultKafkaBrokers)),
		JobsTopic:    envOrDefault("KAFKA_JOBS_TOPIC", defaultKafkaJobsTopic),
		ResultsTopic: envOrDefault("KAFKA_RESULTS_TOPIC", defaultKafkaResultsTopic),
		GroupID:      envOrDefault("KAFKA_GROUP_ID", defaultKafkaGroupID),

		Worker: worker.Config{
			MaxParallel:       parseMaxParallel(os.Getenv("RUNNER_MAX_PARALLEL")),
			HeartbeatInterval: parseDuration(os.Getenv("HEARTBEAT_INTERVAL"), 0),
			DrainTimeout:      parseDuration(os.Getenv("DRAIN_TIMEOUT"), 0),
		},
		Docker: dockerConfigFromEnv(),
	}
}

func dockerConfigFromEnv() docker.Config {
	return docker.Config{
		Languages: map[execution.Language]docker.LanguageConfig{
			execution.LanguagePython: {
				Image:   envOrDefault("PYTHON_IMAGE", pythonImage),
				Workdir: envOrDefault("PYTHON_WORKDIR", sandboxLayout),
			},
			execution.LanguageGo: {
				Image:    envOrDefault("GO_IMAGE", goImage),
				RunImage: envOrDefault("GO_RUN_IMAGE", goRunImage),
				Workdir:  envOrDefault("GO_WORKDIR", sandboxLayout),
			},
			execution.LanguageCPP: {
				Image:    envOrDefault("CPP_IMAGE", cppImage),
				RunImage: envOrDefault("CPP_RUN_IMAGE", cppRunImage),
				Workdir:  envOrDefault("CPP_WORKDIR", sandboxLayout),
			},
			execution.LanguageJava: {
				Image:    envOrDefault("JAVA_IMAGE", javaImage),
				RunImage: envOrDefault("JAVA_RUN_IMAGE", javaRunImage),
				Workdir:  envOrDefault("JAVA_WORKDIR", sandboxLayout),
			},
		},
		DefaultLimits: execution.RunLimits{
			TimeLimit:        parseDuration(os.Getenv("RUNNER_TIME_LIMIT"), defaultTimeLimit),
			MemoryLimitBytes: parseBytes(os.Getenv("RUNNER_MEMORY_LIMIT"), defaultMemoryLimit),
			PidsLimit:        parsePids(os.Getenv("RUNNER_PIDS_LIMIT")),
		},
		NetworkEnabled: parseBool(os.Getenv("SANDBOX_NETWORK_ENABLED")),
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseBrokerList(raw string) []string {
	fields := strings.Split(raw, ",")
	brokers := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func parseMaxParallel(raw string) int {
	if raw == "" {
		return 1
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 1
	}
	return value
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseBytes(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parsePids(raw string) int64 {
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0
	}
	return value
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}
