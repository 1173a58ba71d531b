package ledger

import (
	"math"
	"sync"
	"time"

	"certguard/internal/verification"
)

// DefaultCapacity is the number of recent entries kept by default.
const DefaultCapacity = 10

// Entry is one line of the recent-verifications ledger, taken from what was
// read off the document.
type Entry struct {
	StudentName   string              `json:"student_name"`
	CertificateID string              `json:"certificate_id"`
	Status        verification.Status `json:"status"`
	Institution   string              `json:"institution"`
	Timestamp     time.Time           `json:"timestamp"`
}

// Stats are the running counters across every committed verification.
type Stats struct {
	Total         int `json:"total"`
	Successful    int `json:"successful"`
	Failed        int `json:"failed"`
	FraudDetected int `json:"fraud_detected"`
	// SuccessRate and FraudRate are integer-rounded percentages.
	SuccessRate int `json:"success_rate"`
	FraudRate   int `json:"fraud_rate"`
}

// Aggregator keeps a bounded most-recent-first ledger and running stats.
// Each Record call is a distinct event; callers guarantee at most one call
// per committed session.
type Aggregator struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
	stats    Stats
}

func NewAggregator(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Aggregator{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
	}
}

// Record prepends the outcome to the ledger and updates the counters.
func (a *Aggregator) Record(out verification.Outcome) Entry {
	entry := Entry{
		StudentName:   out.Extraction.StudentName,
		CertificateID: out.Extraction.CertificateID,
		Status:        out.Status,
		Institution:   out.Extraction.Institution,
		Timestamp:     out.Timestamp,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	keep := min(len(a.entries), a.capacity-1)
	entries := make([]Entry, 0, a.capacity)
	entries = append(entries, entry)
	entries = append(entries, a.entries[:keep]...)
	a.entries = entries

	a.stats.Total++
	switch out.Status {
	case verification.StatusVerified:
		a.stats.Successful++
	case verification.StatusForged:
		a.stats.FraudDetected++
	default:
		a.stats.Failed++
	}
	a.stats.SuccessRate = percent(a.stats.Successful, a.stats.Total)
	a.stats.FraudRate = percent(a.stats.FraudDetected, a.stats.Total)
	return entry
}

// Stats returns a copy of the counters.
func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Entries returns a copy of the ledger, most recent first.
func (a *Aggregator) Entries() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Capacity reports the ledger bound.
func (a *Aggregator) Capacity() int {
	return a.capacity
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
