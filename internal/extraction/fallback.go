package extraction

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"certguard/internal/credential/models"
)

// Fallback produces a result when no rule matches.
type Fallback interface {
	Name() string
	Fallback(doc Document, view models.RecordView) Result
}

const (
	FallbackDegraded  = "degraded"
	FallbackSimulated = "simulated"
)

// NewFallback resolves a fallback by its configured name.
func NewFallback(name string, rng Rand) (Fallback, error) {
	switch name {
	case "", FallbackDegraded:
		return Degraded{}, nil
	case FallbackSimulated:
		return NewSimulated(rng), nil
	default:
		return nil, fmt.Errorf("unknown extraction fallback %q", name)
	}
}

// Degraded returns an extraction carrying no identifier, which always
// resolves as NOT_FOUND.
type Degraded struct{}

func (Degraded) Name() string { return FallbackDegraded }

func (Degraded) Fallback(_ Document, _ models.RecordView) Result {
	return Result{Rule: FallbackDegraded, Degraded: true}
}

// Rand is the random source used by Simulated.
type Rand interface {
	IntN(n int) int
}

// Simulated picks a demo extraction at random: a faithful copy of one of the
// first five records, a real identifier under a fabricated holder, or a
// fabricated identifier. It exists for demos and must not be used where the
// outcome matters. It is safe for concurrent use; mu serializes draws from
// rng, which need not be.
type Simulated struct {
	mu  sync.Mutex
	rng Rand
}

func NewSimulated(rng Rand) *Simulated {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulated{rng: rng}
}

func (s *Simulated) Name() string { return FallbackSimulated }

func (s *Simulated) Fallback(_ Document, view models.RecordView) Result {
	records := view.All()
	genuine := records[:min(5, len(records))]

	candidates := make([]Result, 0, len(genuine)+2)
	for _, rec := range genuine {
		candidates = append(candidates, FromRecord(rec))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(records) > 0 {
		forged := FromRecord(records[s.rng.IntN(len(records))])
		forged.StudentName = "FAKE PERSON"
		candidates = append(candidates, forged)
	}
	candidates = append(candidates, Result{
		StudentName:   "UNKNOWN STUDENT",
		CertificateID: fmt.Sprintf("FAKE%d", s.rng.IntN(10000)),
		Institution:   "Unknown University",
		Course:        "Unknown Course",
		YearOfPassing: 2024,
		Grade:         "Unknown",
		Type:          "Unknown",
	})

	picked := candidates[s.rng.IntN(len(candidates))]
	picked.Rule = FallbackSimulated
	return picked
}

// FromRecord builds the extraction a perfect read of rec would produce.
func FromRecord(rec models.CredentialRecord) Result {
	return Result{
		StudentName:   rec.StudentName,
		CertificateID: rec.CertificateID,
		RollNumber:    rec.RollNumber,
		Institution:   rec.Institution,
		Course:        rec.Course,
		YearOfPassing: rec.YearOfPassing,
		Grade:         rec.Grade,
		Type:          rec.Type,
	}
}
