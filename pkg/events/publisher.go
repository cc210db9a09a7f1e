package events

import (
	"context"
	"errors"
)

// Recorder is the interface for recording handled messages.
type Recorder interface {
	Record(ctx context.Context, event *MessageRecorded) error
}

// NoOpRecorder is a Recorder that does nothing (journal disabled).
type NoOpRecorder struct{}

// Record is a no-op.
func (r *NoOpRecorder) Record(_ context.Context, _ *MessageRecorded) error {
	return nil
}

// CallbackRecorder is a Recorder that calls a callback function (for testing).
type CallbackRecorder struct {
	callback func(ctx context.Context, event *MessageRecorded) error
}

// NewCallbackRecorder creates a new CallbackRecorder.
func NewCallbackRecorder(cb func(ctx context.Context, event *MessageRecorded) error) *CallbackRecorder {
	return &CallbackRecorder{callback: cb}
}

// Record calls the callback.
func (r *CallbackRecorder) Record(ctx context.Context, event *MessageRecorded) error {
	return r.callback(ctx, event)
}

// Fanout records to every recorder in order. All recorders run even when
// one fails; the errors are joined.
type Fanout []Recorder

// Record implements Recorder.
func (f Fanout) Record(ctx context.Context, event *MessageRecorded) error {
	var errs []error
	for _, r := range f {
		if err := r.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
