package tasks

import (
	"context"
	"log/slog"
	"time"

	"skywatch/internal/sbs"
	"skywatch/internal/tracker"
)

// Ingest drains decoded feed messages into the tracker. It is the single
// writer on the merge path: every message that survives decoding flows
// through this loop in arrival order.
type Ingest struct {
	tracker  *tracker.Tracker
	messages <-chan *sbs.Message
}

func NewIngest(trk *tracker.Tracker, messages <-chan *sbs.Message) *Ingest {
	return &Ingest{
		tracker:  trk,
		messages: messages,
	}
}

// Start consumes messages until the context is cancelled or the channel is
// closed by the producer. It blocks; run it on its own goroutine.
func (i *Ingest) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-i.messages:
			if !ok {
				slog.Info("Message channel closed, ingest stopping")
				return nil
			}
			if msg == nil {
				continue
			}
			i.tracker.Merge(msg, time.Now())
		}
	}
}
