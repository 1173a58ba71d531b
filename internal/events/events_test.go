package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"certguard/internal/extraction"
	"certguard/internal/session"
	"certguard/internal/verification"
	dErrors "certguard/pkg/domain-errors"
	"certguard/pkg/platform/sentinel"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fakeProducer struct {
	mu       sync.Mutex
	records  []*kgo.Record
	failWith error
	flushed  bool
	closed   bool
}

func (f *fakeProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	f.mu.Lock()
	f.records = append(f.records, r)
	f.mu.Unlock()
	promise(r, f.failWith)
}

func (f *fakeProducer) Flush(context.Context) error {
	f.flushed = true
	return nil
}

func (f *fakeProducer) Close() { f.closed = true }

func testSession() session.Session {
	return session.Session{
		Token:    uuid.New(),
		Scope:    "desk-7",
		State:    session.StateCompleted,
		FileName: "cert-8.jpg",
	}
}

func TestSink(t *testing.T) {
	t.Run("completed sessions publish their outcome", func(t *testing.T) {
		pub := &recordingPublisher{}
		sink := NewSink(pub, discard)
		sess := testSession()
		at := time.Date(2025, 9, 22, 10, 0, 0, 0, time.UTC)

		sink.Started(context.Background(), sess)
		sink.Progress(context.Background(), sess, session.Stages[0])
		sink.Completed(context.Background(), sess, verification.Outcome{
			Status:      verification.StatusVerified,
			Confidence:  99.9,
			Extraction:  extraction.Result{StudentName: "KATHLEEN WHITE", CertificateID: "94052827560"},
			Attestation: "0xabc",
			Timestamp:   at,
		})

		require.Len(t, pub.events, 1)
		ev := pub.events[0]
		assert.Equal(t, KindCompleted, ev.Kind)
		assert.Equal(t, sess.Token, ev.SessionToken)
		assert.Equal(t, "desk-7", ev.ClientScope)
		assert.Equal(t, verification.StatusVerified, ev.Status)
		assert.Equal(t, "94052827560", ev.CertificateID)
		assert.Equal(t, at, ev.Timestamp)
		assert.NotEqual(t, uuid.Nil, ev.ID)
	})

	t.Run("failed sessions publish the error code", func(t *testing.T) {
		pub := &recordingPublisher{}
		sink := NewSink(pub, discard)
		sink.Failed(context.Background(), testSession(), dErrors.New(dErrors.CodeTimeout, "verification exceeded its processing time"))

		require.Len(t, pub.events, 1)
		assert.Equal(t, KindFailed, pub.events[0].Kind)
		assert.Equal(t, dErrors.CodeTimeout, pub.events[0].ErrorCode)
		assert.Equal(t, "verification exceeded its processing time", pub.events[0].Message)
	})

	t.Run("uncoded failures are internal", func(t *testing.T) {
		pub := &recordingPublisher{}
		NewSink(pub, discard).Failed(context.Background(), testSession(), errors.New("boom"))
		assert.Equal(t, dErrors.CodeInternal, pub.events[0].ErrorCode)
		assert.Equal(t, "verification failed", pub.events[0].Message)
	})

	t.Run("superseded sessions publish nothing", func(t *testing.T) {
		pub := &recordingPublisher{}
		NewSink(pub, discard).Superseded(context.Background(), testSession())
		assert.Empty(t, pub.events)
	})

	t.Run("publish errors are swallowed", func(t *testing.T) {
		pub := &recordingPublisher{err: sentinel.ErrUnavailable}
		assert.NotPanics(t, func() {
			NewSink(pub, discard).Failed(context.Background(), testSession(), errors.New("boom"))
		})
	})
}

func TestKafkaPublisher(t *testing.T) {
	t.Run("records are keyed by session token", func(t *testing.T) {
		fp := &fakeProducer{}
		pub := newKafkaPublisher(fp, DefaultTopic, discard)
		sess := testSession()
		ev := CompletedEvent(sess, verification.Outcome{Status: verification.StatusForged})

		require.NoError(t, pub.Publish(context.Background(), ev))

		require.Len(t, fp.records, 1)
		rec := fp.records[0]
		assert.Equal(t, DefaultTopic, rec.Topic)
		assert.Equal(t, sess.Token.String(), string(rec.Key))
		assert.Equal(t, "kind", rec.Headers[0].Key)
		assert.Equal(t, string(KindCompleted), string(rec.Headers[0].Value))

		var decoded Event
		require.NoError(t, json.Unmarshal(rec.Value, &decoded))
		assert.Equal(t, verification.StatusForged, decoded.Status)
		assert.Equal(t, int64(0), pub.DeliveryFailures())
	})

	t.Run("delivery failures are counted", func(t *testing.T) {
		fp := &fakeProducer{failWith: errors.New("broker gone")}
		pub := newKafkaPublisher(fp, DefaultTopic, discard)
		require.NoError(t, pub.Publish(context.Background(), CompletedEvent(testSession(), verification.Outcome{})))
		assert.Equal(t, int64(1), pub.DeliveryFailures())
	})

	t.Run("close flushes and rejects later publishes", func(t *testing.T) {
		fp := &fakeProducer{}
		pub := newKafkaPublisher(fp, DefaultTopic, discard)
		require.NoError(t, pub.Close(context.Background()))
		assert.True(t, fp.flushed)
		assert.True(t, fp.closed)

		err := pub.Publish(context.Background(), CompletedEvent(testSession(), verification.Outcome{}))
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("requires brokers", func(t *testing.T) {
		_, err := NewKafkaPublisher(context.Background(), KafkaConfig{}, discard)
		assert.Error(t, err)
	})
}

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, NewLogPublisher(discard).Publish(context.Background(), CompletedEvent(testSession(), verification.Outcome{})))
}
