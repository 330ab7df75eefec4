package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	partitionReadAttempts = 5
	partitionReadBackoff  = 2 * time.Second
)

// TopicAdmin is the part of *kafka.Conn needed to ensure a topic exists
type TopicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// createKafkaTopicIfNotExists creates the topic when no partitions can be read for it
func createKafkaTopicIfNotExists(conn TopicAdmin, topicName string, numPartitions int, replicationFactor int, log *slog.Logger) error {
	return ensureTopic(conn, kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}, partitionReadBackoff, log)
}

func ensureTopic(conn TopicAdmin, topic kafka.TopicConfig, backoff time.Duration, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	for attempt := 1; attempt <= partitionReadAttempts; attempt++ {
		partitions, err = conn.ReadPartitions(topic.Topic)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying...", "topic", topic.Topic, "attempt", attempt, "error", err)
		time.Sleep(backoff)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topic.Topic, "partitions", len(partitions))
		return nil
	}

	if topic.NumPartitions <= 0 {
		topic.NumPartitions = 1
	}
	if topic.ReplicationFactor <= 0 {
		topic.ReplicationFactor = 1
	}

	log.Info("Creating Kafka topic", "topic", topic.Topic, "partitions", topic.NumPartitions, "replication_factor", topic.ReplicationFactor, "last_read_error", err)
	if err := conn.CreateTopics(topic); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic.Topic, err)
	}
	log.Info("Successfully created Kafka topic", "topic", topic.Topic)
	return nil
}
