//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	"certguard/internal/verification"
)

func TestKafkaPublisherAgainstRedpanda(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.2.4",
		redpanda.WithAutoCreateTopics(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	broker, err := ctr.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	topic := "certguard.verification-outcomes.it"
	pub, err := NewKafkaPublisher(ctx, KafkaConfig{Brokers: []string{broker}, Topic: topic}, discard)
	require.NoError(t, err)

	sess := testSession()
	require.NoError(t, pub.Publish(ctx, CompletedEvent(sess, verification.Outcome{
		Status:     verification.StatusVerified,
		Confidence: 99.9,
	})))
	require.NoError(t, pub.Close(ctx))
	require.Zero(t, pub.DeliveryFailures())

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, sess.Token.String(), string(records[0].Key))

	var ev Event
	require.NoError(t, json.Unmarshal(records[0].Value, &ev))
	require.Equal(t, KindCompleted, ev.Kind)
	require.Equal(t, verification.StatusVerified, ev.Status)
}
