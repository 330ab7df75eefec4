// Package config loads and validates settings for the ledger gateway and the
// batch import worker. Values come from an optional .env file, the process
// environment and built-in defaults, in increasing order of precedence.
package config

import (
	"errors"
	"strings"
	"time"
)

const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendMemory   = "memory"
)

// Config holds the complete application configuration, one section per subsystem
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Ledger      LedgerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	Scheduler   SchedulerConfig
	Batch       BatchConfig
	Calculator  CalculatorConfig

	// Source is the config file that was read, empty when only env and defaults apply
	Source string
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// LedgerConfig selects the transaction store implementation
type LedgerConfig struct {
	Backend string // postgres or memory
}

// UsesPostgres reports whether the durable stack (Postgres, MongoDB, Kafka outbox) is enabled
func (l LedgerConfig) UsesPostgres() bool {
	return l.Backend == LedgerBackendPostgres
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	LedgerEventsTopic string // committed transactions are published here by the outbox poller
	BatchImportTopic  string // asynchronous batch import requests
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration. MongoDB keeps scheduled report run history.
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// SchedulerConfig controls the recurring report trigger loop
type SchedulerConfig struct {
	TickInterval   time.Duration // how often due jobs are checked
	MaxRunDuration time.Duration // a run exceeding this is marked failed
	WorkerPoolSize int           // concurrent report runs across all jobs
}

type BatchConfig struct {
	MaxItems       int
	WorkerPoolSize int // concurrent batches taken from Kafka
}

type CalculatorConfig struct {
	MaxExpressionLength int
}

// validate checks every section and reports all violations at once
func (c *Config) validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	switch c.Ledger.Backend {
	case LedgerBackendPostgres, LedgerBackendMemory:
	default:
		validationErrors = append(validationErrors, "LEDGER_BACKEND must be postgres or memory")
	}

	if c.Kafka.Brokers == "" {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.LedgerEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_LEDGER_EVENTS_TOPIC is required")
	}
	if c.Kafka.BatchImportTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_BATCH_IMPORT_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	if c.Ledger.UsesPostgres() {
		if c.Postgres.URL == "" {
			validationErrors = append(validationErrors, "POSTGRES_URL is required")
		}
		if c.Postgres.MaxConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
		}
		if c.Postgres.MinConns <= 0 || c.Postgres.MinConns > c.Postgres.MaxConns {
			validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be between 1 and POSTGRES_MAX_CONNS")
		}
		if c.Postgres.ConnMaxLifetime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
		}
		if c.Postgres.ConnMaxIdleTime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
		}

		if c.MongoDB.URI == "" {
			validationErrors = append(validationErrors, "MONGO_URI is required")
		}
		if c.MongoDB.Database == "" {
			validationErrors = append(validationErrors, "MONGO_DATABASE is required")
		}
		if c.MongoDB.Timeout <= 0 {
			validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
		}
		if c.MongoDB.MaxPoolSize <= 0 {
			validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
		}
		if c.MongoDB.MaxConnIdleTime <= 0 {
			validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
		}
	}

	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	if c.Scheduler.TickInterval <= 0 {
		validationErrors = append(validationErrors, "SCHEDULER_TICK_INTERVAL must be greater than 0")
	}
	if c.Scheduler.MaxRunDuration <= 0 {
		validationErrors = append(validationErrors, "SCHEDULER_MAX_RUN_DURATION must be greater than 0")
	}
	if c.Scheduler.WorkerPoolSize <= 0 {
		validationErrors = append(validationErrors, "SCHEDULER_WORKER_POOL_SIZE must be greater than 0")
	}

	if c.Batch.MaxItems <= 0 {
		validationErrors = append(validationErrors, "BATCH_MAX_ITEMS must be greater than 0")
	}
	if c.Batch.WorkerPoolSize <= 0 {
		validationErrors = append(validationErrors, "BATCH_WORKER_POOL_SIZE must be greater than 0")
	}
	if c.Calculator.MaxExpressionLength <= 0 {
		validationErrors = append(validationErrors, "CALCULATOR_MAX_EXPRESSION_LENGTH must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
