package session

import (
	"context"

	"certguard/internal/verification"
)

// Sink receives session lifecycle notifications. The manager calls sinks
// while holding its lock so deliveries are totally ordered per manager;
// implementations must return promptly and must not call back into the
// manager.
type Sink interface {
	Started(ctx context.Context, s Session)
	Progress(ctx context.Context, s Session, p Progress)
	Completed(ctx context.Context, s Session, out verification.Outcome)
	Failed(ctx context.Context, s Session, err error)
	Superseded(ctx context.Context, s Session)
}

// NopSink ignores every notification. Embed it to implement only some methods.
type NopSink struct{}

func (NopSink) Started(context.Context, Session)                         {}
func (NopSink) Progress(context.Context, Session, Progress)              {}
func (NopSink) Completed(context.Context, Session, verification.Outcome) {}
func (NopSink) Failed(context.Context, Session, error)                   {}
func (NopSink) Superseded(context.Context, Session)                      {}
