// Package events defines execution lifecycle events and the publishers that
// deliver them: the service log, Kafka, or both through Multi.
package events
