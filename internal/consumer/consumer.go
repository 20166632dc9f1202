// Package consumer provides the shared at-least-once message pipeline:
// a pull-style SQS poller and a push-style Lambda adapter, both honoring
// the same ack-after-success contract.
package consumer

import (
	"context"

	"github.com/payflow-labs/payflow/internal/events"
)

// Result tells the queue adapter what to do with a message after its
// handler ran. Ack deletes the message; Retry leaves it invisible until
// the visibility timeout expires, eventually landing it in the
// dead-letter queue via the queue's redrive policy.
type Result int

const (
	Ack Result = iota
	Retry
)

// Handler processes one decoded event. Permanent conditions (unknown
// type, referenced entity missing) must return Ack after logging;
// transient failures return Retry.
type Handler interface {
	Handle(ctx context.Context, msg events.Decoded) Result
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg events.Decoded) Result

func (f HandlerFunc) Handle(ctx context.Context, msg events.Decoded) Result {
	return f(ctx, msg)
}
