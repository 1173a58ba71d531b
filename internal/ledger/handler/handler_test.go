package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certguard/internal/extraction"
	"certguard/internal/ledger"
	"certguard/internal/verification"
	"certguard/pkg/testutil"
)

func newRouter(agg *ledger.Aggregator) chi.Router {
	r := chi.NewRouter()
	New(agg).Register(r)
	return r
}

func record(agg *ledger.Aggregator, status verification.Status, name string) {
	agg.Record(verification.Outcome{
		Status:     status,
		Extraction: extraction.Result{StudentName: name, CertificateID: name + "-ID"},
		Timestamp:  time.Now(),
	})
}

func TestHandleStats(t *testing.T) {
	agg := ledger.NewAggregator(3)
	router := newRouter(agg)

	testutil.Given(t, "an empty ledger", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/stats"))
		testutil.AssertStatusOK(t, rr)
		stats := testutil.UnmarshalResponse[ledger.Stats](t, rr)
		assert.Equal(t, ledger.Stats{}, *stats)
	})

	testutil.When(t, "outcomes are recorded", func(t *testing.T) {
		record(agg, verification.StatusVerified, "A")
		record(agg, verification.StatusVerified, "B")
		record(agg, verification.StatusForged, "C")
		record(agg, verification.StatusNotFound, "D")
	})

	testutil.Then(t, "stats count every outcome", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/stats"))
		stats := testutil.UnmarshalResponse[ledger.Stats](t, rr)
		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 2, stats.Successful)
		assert.Equal(t, 1, stats.FraudDetected)
		assert.Equal(t, 1, stats.Failed)
		assert.Equal(t, 50, stats.SuccessRate)
		assert.Equal(t, 25, stats.FraudRate)
	})

	testutil.Then(t, "the ledger keeps only the newest entries", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/ledger"))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[ledgerResponse](t, rr)
		assert.Equal(t, 3, resp.Capacity)
		require.Len(t, resp.Entries, 3)
		assert.Equal(t, "D", resp.Entries[0].StudentName)
		assert.Equal(t, "B", resp.Entries[2].StudentName)
	})
}
