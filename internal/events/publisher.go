package events

import (
	"context"
	"log/slog"
	"time"

	"certguard/internal/session"
	"certguard/internal/verification"
)

// Publisher delivers events downstream. Publish is called from session
// sinks under the manager lock and must not wait on the network.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Sink turns session lifecycle notifications into published events.
type Sink struct {
	session.NopSink
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewSink(publisher Publisher, logger *slog.Logger) *Sink {
	return &Sink{publisher: publisher, logger: logger, now: time.Now}
}

func (s *Sink) Completed(ctx context.Context, sess session.Session, out verification.Outcome) {
	s.publish(ctx, CompletedEvent(sess, out))
}

func (s *Sink) Failed(ctx context.Context, sess session.Session, err error) {
	s.publish(ctx, FailedEvent(sess, err, s.now()))
}

func (s *Sink) publish(ctx context.Context, ev Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "failed to publish verification event",
			"session_token", ev.SessionToken,
			"kind", ev.Kind,
			"error", err,
		)
	}
}

// LogPublisher writes events to the log. Used when no brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.logger.InfoContext(ctx, "verification event",
		"event_id", ev.ID,
		"kind", ev.Kind,
		"session_token", ev.SessionToken,
		"client_scope", ev.ClientScope,
		"status", ev.Status,
		"confidence", ev.Confidence,
		"error_code", ev.ErrorCode,
	)
	return nil
}
