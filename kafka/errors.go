package kafka

import (
	"errors"
	"strings"

	kafkago "github.com/segmentio/kafka-go"

	apperrors "github.com/kbukum/flowengine/errors"
)

type failure int

const (
	failureUnknown failure = iota
	failureConnection
	failurePermanent
	failureTransient
)

// Broker error codes that no amount of retrying fixes. kafka-go reports some
// of them as temporary because a topic may appear later; for a producer with a
// fixed topic that never happens within the retry window.
var permanentCodes = map[kafkago.Error]bool{
	kafkago.MessageSizeTooLarge:      true,
	kafkago.InvalidTopic:             true,
	kafkago.UnknownTopicOrPartition:  true,
	kafkago.TopicAuthorizationFailed: true,
}

// Message fragments for errors that reach us without a broker code, checked
// in order.
var failurePatterns = []struct {
	kind     failure
	patterns []string
}{
	{failureConnection, []string{
		"connection refused", "connection reset", "connection closed", "broken pipe",
		"i/o timeout", "no route to host", "network is unreachable", "network exception",
		"broker not available", "leader not available", "dial tcp",
	}},
	{failurePermanent, []string{
		"message too large", "invalid topic", "invalid partition", "unknown topic", "authorization failed",
	}},
	{failureTransient, []string{
		"temporary", "request timed out", "not enough replicas", "offset out of range",
	}},
}

func classify(err error) failure {
	if err == nil {
		return failureUnknown
	}
	var code kafkago.Error
	if errors.As(err, &code) {
		if permanentCodes[code] {
			return failurePermanent
		}
		if code.Temporary() {
			return failureTransient
		}
	}
	msg := strings.ToLower(err.Error())
	for _, fp := range failurePatterns {
		for _, p := range fp.patterns {
			if strings.Contains(msg, p) {
				return fp.kind
			}
		}
	}
	return failureUnknown
}

// IsConnectionError reports whether err means no broker could be reached.
func IsConnectionError(err error) bool {
	return classify(err) == failureConnection
}

// IsRetryableError reports whether writing the same batch again may succeed.
func IsRetryableError(err error) bool {
	f := classify(err)
	return f == failureConnection || f == failureTransient
}

// IsNonRetryableError reports errors the producer gives up on immediately.
func IsNonRetryableError(err error) bool {
	return classify(err) == failurePermanent
}

// FromKafka converts a publish error on topic to an AppError.
func FromKafka(err error, topic string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	switch classify(err) {
	case failureConnection:
		return apperrors.ServiceUnavailable("kafka").WithCause(err).WithDetail("topic", topic)
	case failurePermanent:
		return apperrors.ExternalServiceError("kafka", err).WithDetail("topic", topic).Permanent()
	case failureTransient:
		return apperrors.ExternalServiceError("kafka", err).WithDetail("topic", topic)
	default:
		return apperrors.Internal(err)
	}
}
