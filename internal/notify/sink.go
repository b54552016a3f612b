package notify

import (
	"context"
	"errors"

	appErrors "modnotifier/internal/errors"
)

// Sink delivers messages somewhere a user will see them.
type Sink interface {
	Post(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, msg Message) error

// Post calls f.
func (f SinkFunc) Post(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// MultiSink posts every message to each of its sinks. A failing sink does not
// stop delivery to the others.
type MultiSink []Sink

// Post implements Sink.
func (m MultiSink) Post(ctx context.Context, msg Message) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Post(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return appErrors.New(appErrors.CodeNotifyFailed, "deliver notification", errors.Join(errs...))
}
