package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certguard/internal/credential/store"
	"certguard/internal/extraction"
	"certguard/internal/ledger"
	dErrors "certguard/pkg/domain-errors"
	"certguard/pkg/requestcontext"
)

func newTestRegistry(t *testing.T, extractor Extractor, tracker *Tracker) (*Registry, *ledger.Aggregator) {
	t.Helper()
	records := store.NewInMemoryStore()
	seed, err := store.DefaultSeed()
	require.NoError(t, err)
	require.NoError(t, records.Load(context.Background(), seed))

	cfg := DefaultConfig()
	cfg.StageDelayMin, cfg.StageDelayMax = 0, 0
	agg := ledger.NewAggregator(ledger.DefaultCapacity)
	reg := NewRegistry(cfg, extractor, agg, records,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSink(tracker),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, reg.Close(ctx))
	})
	return reg, agg
}

func TestRegistryScopesAreIndependent(t *testing.T) {
	rules, err := extraction.DefaultRules()
	require.NoError(t, err)
	gate := newGatedExtractor(extraction.NewProvider(rules))
	tracker := NewTracker(0)
	reg, agg := newTestRegistry(t, gate, tracker)

	desk1, err := reg.For("desk-1")
	require.NoError(t, err)
	desk2, err := reg.For("desk-2")
	require.NoError(t, err)
	assert.NotSame(t, desk1, desk2)

	again, err := reg.For("desk-1")
	require.NoError(t, err)
	assert.Same(t, desk1, again)

	a, err := desk1.Submit(context.Background(), png("cert-8.jpg"))
	require.NoError(t, err)
	b, err := desk2.Submit(context.Background(), png("shreyas.png"))
	require.NoError(t, err, "a busy scope must not block another scope")
	assert.Equal(t, "desk-1", a.Scope)
	assert.Equal(t, "desk-2", b.Scope)

	close(gate.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = tracker.Wait(ctx, a.Token)
	require.NoError(t, err)
	_, err = tracker.Wait(ctx, b.Token)
	require.NoError(t, err)

	assert.Equal(t, 2, agg.Stats().Total, "scopes share one ledger")
}

func TestRegistryDefaultScope(t *testing.T) {
	reg, _ := newTestRegistry(t, extraction.NewProvider(nil), NewTracker(0))

	m, err := reg.For("")
	require.NoError(t, err)
	found, ok := reg.Lookup(requestcontext.DefaultClientScope)
	require.True(t, ok)
	assert.Same(t, m, found)

	_, ok = reg.Lookup("never-seen")
	assert.False(t, ok)
}

func TestRegistryRetiresIdleScopes(t *testing.T) {
	reg, _ := newTestRegistry(t, extraction.NewProvider(nil), NewTracker(0))
	reg.SetMaxScopes(2)

	first, err := reg.For("a")
	require.NoError(t, err)
	_, err = reg.For("b")
	require.NoError(t, err)
	_, err = reg.For("c")
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Len())
	_, err = first.Submit(context.Background(), png("x.png"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegistrySubmitSurvivesScopeChurn(t *testing.T) {
	tracker := NewTracker(0)
	reg, _ := newTestRegistry(t, extraction.NewProvider(nil), tracker)
	reg.SetMaxScopes(1)

	const clients = 16
	errs := make(chan error, clients*4)
	var wg sync.WaitGroup
	for i := range clients {
		wg.Add(1)
		go func(scope string) {
			defer wg.Done()
			for range 4 {
				sess, err := reg.Submit(context.Background(), scope, png("scan.png"))
				if dErrors.HasCode(err, dErrors.CodeSessionBusy) {
					continue
				}
				if err != nil {
					errs <- err
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_, err = tracker.Wait(ctx, sess.Token)
				cancel()
				if err != nil {
					errs <- err
				}
			}
		}(fmt.Sprintf("desk-%d", i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NotErrorIs(t, err, ErrClosed, "a healthy registry must not hand out retired managers")
		assert.NoError(t, err)
	}
}

func TestRegistryClose(t *testing.T) {
	reg, _ := newTestRegistry(t, extraction.NewProvider(nil), NewTracker(0))
	require.NoError(t, reg.Close(context.Background()))

	_, err := reg.For("late")
	assert.ErrorIs(t, err, ErrClosed)
}
