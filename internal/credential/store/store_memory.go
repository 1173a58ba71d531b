package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"certguard/internal/credential/models"
	"certguard/pkg/platform/sentinel"
)

// InMemoryStore holds issued credentials behind a copy-on-write snapshot.
// Writers serialize on mu and publish a fresh Snapshot; readers never block.
type InMemoryStore struct {
	mu     sync.Mutex
	nextID int
	snap   atomic.Pointer[Snapshot]
}

func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{nextID: 1}
	s.snap.Store(emptySnapshot)
	return s
}

// Snapshot returns the current immutable view.
func (s *InMemoryStore) Snapshot() *Snapshot {
	return s.snap.Load()
}

func (s *InMemoryStore) Lookup(identifier string) (models.CredentialRecord, bool) {
	return s.Snapshot().Lookup(identifier)
}

func (s *InMemoryStore) All() []models.CredentialRecord {
	return s.Snapshot().All()
}

func (s *InMemoryStore) Len() int {
	return s.Snapshot().Len()
}

func (s *InMemoryStore) Search(query string) []models.CredentialRecord {
	return s.Snapshot().Search(query)
}

func (s *InMemoryStore) Stats() models.CatalogueStats {
	return s.Snapshot().Stats()
}

// FindByCertificateID returns the record whose primary identifier matches.
func (s *InMemoryStore) FindByCertificateID(_ context.Context, certificateID string) (models.CredentialRecord, error) {
	snap := s.Snapshot()
	if i, ok := snap.byCertificate[certificateID]; ok {
		return snap.records[i], nil
	}
	return models.CredentialRecord{}, sentinel.ErrNotFound
}

// Add assigns the next store id and inserts the record. Any identifier
// already claimed by another record yields sentinel.ErrConflict.
func (s *InMemoryStore) Add(_ context.Context, rec models.CredentialRecord) (models.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	for _, ident := range rec.Identifiers() {
		if owner, ok := cur.claimedBy(ident); ok {
			return models.CredentialRecord{}, fmt.Errorf("identifier %q already issued to record %d: %w", ident, owner, sentinel.ErrConflict)
		}
	}

	rec.ID = s.nextID
	s.nextID++

	records := make([]models.CredentialRecord, len(cur.records), len(cur.records)+1)
	copy(records, cur.records)
	records = append(records, rec)
	s.snap.Store(buildSnapshot(records))
	return rec, nil
}

// Remove deletes the record with the given store id.
func (s *InMemoryStore) Remove(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	pos := -1
	for i, rec := range cur.records {
		if rec.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return sentinel.ErrNotFound
	}

	records := make([]models.CredentialRecord, 0, len(cur.records)-1)
	records = append(records, cur.records[:pos]...)
	records = append(records, cur.records[pos+1:]...)
	s.snap.Store(buildSnapshot(records))
	return nil
}

// Load inserts records in order, stopping at the first failure.
func (s *InMemoryStore) Load(ctx context.Context, records []models.CredentialRecord) error {
	for _, rec := range records {
		if _, err := s.Add(ctx, rec); err != nil {
			return fmt.Errorf("load %s: %w", rec.CertificateID, err)
		}
	}
	return nil
}

// View returns the current snapshot as a read-only record view.
func (s *InMemoryStore) View() models.RecordView {
	return s.Snapshot()
}
