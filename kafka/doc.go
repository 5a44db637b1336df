// Package kafka publishes execution lifecycle events to Kafka.
//
// The producer writes JSON events keyed by execution id through a lazily
// created kafka-go writer. Transient write failures are attempted again up to
// producer.max_attempts; other failures surface as *errors.AppError. The
// Component plugs the producer into the service lifecycle and reports writer
// stats through its health check.
//
//	kafka:
//	  enabled: true
//	  brokers: [localhost:9092]
//	  topic: workflow.executions
//	  producer:
//	    compression: zstd
//	    batch_timeout: 200ms
package kafka
