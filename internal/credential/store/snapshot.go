package store

import (
	"sort"
	"strings"

	"certguard/internal/credential/models"
)

// Snapshot is an immutable view of the store at one point in time. Sessions
// hold a Snapshot for their whole pipeline so concurrent admin writes never
// change what they resolve against.
type Snapshot struct {
	records       []models.CredentialRecord
	byCertificate map[string]int
	byRoll        map[string]int
	byUSN         map[string]int
}

var emptySnapshot = &Snapshot{
	byCertificate: map[string]int{},
	byRoll:        map[string]int{},
	byUSN:         map[string]int{},
}

func buildSnapshot(records []models.CredentialRecord) *Snapshot {
	snap := &Snapshot{
		records:       records,
		byCertificate: make(map[string]int, len(records)),
		byRoll:        make(map[string]int),
		byUSN:         make(map[string]int),
	}
	for i, rec := range records {
		snap.byCertificate[rec.CertificateID] = i
		if rec.RollNumber != "" {
			snap.byRoll[rec.RollNumber] = i
		}
		if rec.USN != "" {
			snap.byUSN[rec.USN] = i
		}
	}
	return snap
}

// Lookup resolves identifier against certificate_id, roll_number and usn in
// that order.
func (s *Snapshot) Lookup(identifier string) (models.CredentialRecord, bool) {
	if identifier == "" {
		return models.CredentialRecord{}, false
	}
	for _, idx := range []map[string]int{s.byCertificate, s.byRoll, s.byUSN} {
		if i, ok := idx[identifier]; ok {
			return s.records[i], true
		}
	}
	return models.CredentialRecord{}, false
}

// claimedBy returns the store id of the record owning identifier, if any.
func (s *Snapshot) claimedBy(identifier string) (int, bool) {
	rec, ok := s.Lookup(identifier)
	return rec.ID, ok
}

// All returns a copy of the records in insertion order.
func (s *Snapshot) All() []models.CredentialRecord {
	out := make([]models.CredentialRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len reports the number of records.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Search matches query case-insensitively against student name, certificate
// id and institution. An empty query returns every record.
func (s *Snapshot) Search(query string) []models.CredentialRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.All()
	}
	out := make([]models.CredentialRecord, 0)
	for _, rec := range s.records {
		if strings.Contains(strings.ToLower(rec.StudentName), q) ||
			strings.Contains(strings.ToLower(rec.CertificateID), q) ||
			strings.Contains(strings.ToLower(rec.Institution), q) {
			out = append(out, rec)
		}
	}
	return out
}

// Stats computes the catalogue statistics.
func (s *Snapshot) Stats() models.CatalogueStats {
	types := make(map[string]struct{})
	institutions := make(map[string]struct{})
	active := 0
	for _, rec := range s.records {
		if rec.Status == models.RecordStatusActive {
			active++
		}
		types[rec.Type] = struct{}{}
		institutions[rec.Institution] = struct{}{}
	}
	return models.CatalogueStats{
		TotalCertificates:  len(s.records),
		ActiveCertificates: active,
		CertificateTypes:   sortedKeys(types),
		Institutions:       sortedKeys(institutions),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
