package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig configures the writer shared by the result publisher and
// the log collector. Results are keyed by request ID and hashed to a
// partition; unkeyed log batches are spread round-robin.
type ProducerConfig struct {
	Brokers      []string
	Compression  string
	RequiredAcks int
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	Linger       time.Duration
	// Async drops write errors, so a failed result publish is never retried.
	Async bool
}

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

func defaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Compression:  "snappy",
		RequiredAcks: -1,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		Linger:       10 * time.Millisecond,
	}
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression selects gzip, lz4, zstd or snappy (the fallback).
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = codec }
}

// WithDelivery sets the ack level (-1 all replicas, 1 leader, 0 none) and
// how many times the writer tries a batch.
func WithDelivery(acks, maxAttempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
		c.MaxAttempts = maxAttempts
	}
}

// WithBatching bounds a batch by message count and bytes, and sets how long
// the writer waits to fill one.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.BatchSize = size
		c.BatchBytes = bytes
		c.Linger = linger
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

func (c ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers are required")
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("required acks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.BatchSize < 1 || c.BatchBytes < 1 {
		return fmt.Errorf("batch size and bytes must be positive")
	}
	return nil
}

func (c ProducerConfig) writer() *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(c.RequiredAcks),
		Compression:  parseCompression(c.Compression),
		MaxAttempts:  c.MaxAttempts,
		WriteTimeout: c.WriteTimeout,
		ReadTimeout:  c.ReadTimeout,
		BatchSize:    c.BatchSize,
		BatchBytes:   int64(c.BatchBytes),
		BatchTimeout: c.Linger,
		Async:        c.Async,
	}
}
