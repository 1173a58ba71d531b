package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certguard/internal/extraction"
	"certguard/internal/verification"
)

type AggregatorSuite struct {
	suite.Suite
	agg *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.agg = NewAggregator(DefaultCapacity)
}

func outcome(status verification.Status, certificateID string) verification.Outcome {
	return verification.Outcome{
		Status: status,
		Extraction: extraction.Result{
			StudentName:   "STUDENT " + certificateID,
			CertificateID: certificateID,
			Institution:   "Test Institute",
		},
		Timestamp: time.Date(2025, 9, 22, 10, 0, 0, 0, time.UTC),
	}
}

func (s *AggregatorSuite) TestEmpty() {
	s.Equal(Stats{}, s.agg.Stats())
	s.Empty(s.agg.Entries())
}

func (s *AggregatorSuite) TestCapacity() {
	s.Run("keeps the ten most recent entries, newest first", func() {
		for i := 1; i <= 11; i++ {
			s.agg.Record(outcome(verification.StatusVerified, fmt.Sprintf("C%02d", i)))
		}
		entries := s.agg.Entries()
		s.Require().Len(entries, 10)
		for i, e := range entries {
			s.Equal(fmt.Sprintf("C%02d", 11-i), e.CertificateID)
		}
		s.Equal(11, s.agg.Stats().Total)
	})

	s.Run("non-positive capacity falls back to the default", func() {
		s.Equal(DefaultCapacity, NewAggregator(0).Capacity())
	})

	s.Run("custom capacity is honoured", func() {
		agg := NewAggregator(2)
		for i := 0; i < 5; i++ {
			agg.Record(outcome(verification.StatusNotFound, fmt.Sprint(i)))
		}
		s.Len(agg.Entries(), 2)
	})
}

func (s *AggregatorSuite) TestCountersAndRates() {
	s.agg.Record(outcome(verification.StatusVerified, "A"))
	s.agg.Record(outcome(verification.StatusVerified, "B"))
	s.agg.Record(outcome(verification.StatusForged, "C"))

	stats := s.agg.Stats()
	s.Equal(3, stats.Total)
	s.Equal(2, stats.Successful)
	s.Equal(1, stats.FraudDetected)
	s.Equal(0, stats.Failed)
	s.Equal(67, stats.SuccessRate)
	s.Equal(33, stats.FraudRate)

	s.agg.Record(outcome(verification.StatusNotFound, "D"))
	stats = s.agg.Stats()
	s.Equal(1, stats.Failed)
	s.Equal(50, stats.SuccessRate)
	s.Equal(25, stats.FraudRate)
}

func (s *AggregatorSuite) TestEntriesAreCopies() {
	s.agg.Record(outcome(verification.StatusVerified, "A"))
	entries := s.agg.Entries()
	entries[0].CertificateID = "MUTATED"
	s.Equal("A", s.agg.Entries()[0].CertificateID)
}

func (s *AggregatorSuite) TestConcurrentRecord() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.agg.Record(outcome(verification.StatusForged, "X"))
			_ = s.agg.Stats()
		}()
	}
	wg.Wait()
	s.Equal(50, s.agg.Stats().Total)
	s.Equal(100, s.agg.Stats().FraudRate)
	s.Len(s.agg.Entries(), DefaultCapacity)
}
