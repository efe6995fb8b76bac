package kafka

import (
	"os"
	"strings"
	"time"
)

// Topics used by the inventory service
const (
	TopicInventoryEvents = "pos.inventory.events"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers      []string
	ClientID     string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks int
	MaxAttempts  int
}

// DefaultConfig builds a producer config from the environment
func DefaultConfig(clientID string) *Config {
	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	return &Config{
		Brokers:      brokers,
		ClientID:     clientID,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		RequiredAcks: -1,
		MaxAttempts:  3,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
