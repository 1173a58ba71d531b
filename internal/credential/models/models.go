package models

import (
	"strings"

	dErrors "certguard/pkg/domain-errors"
)

// RecordStatus is the lifecycle state of an issued credential.
type RecordStatus string

const (
	RecordStatusActive  RecordStatus = "active"
	RecordStatusRevoked RecordStatus = "revoked"
)

// CredentialRecord is one authoritative issued credential. Records are
// immutable once stored; the store only ever adds or removes whole records.
type CredentialRecord struct {
	ID            int          `json:"id" yaml:"id,omitempty"`
	StudentName   string       `json:"student_name" yaml:"student_name"`
	CertificateID string       `json:"certificate_id" yaml:"certificate_id"`
	RollNumber    string       `json:"roll_number,omitempty" yaml:"roll_number,omitempty"`
	USN           string       `json:"usn,omitempty" yaml:"usn,omitempty"`
	Institution   string       `json:"institution" yaml:"institution"`
	College       string       `json:"college,omitempty" yaml:"college,omitempty"`
	Course        string       `json:"course" yaml:"course"`
	YearOfPassing int          `json:"year_of_passing" yaml:"year_of_passing"`
	Grade         string       `json:"grade" yaml:"grade"`
	Type          string       `json:"type" yaml:"type"`
	Status        RecordStatus `json:"status" yaml:"status,omitempty"`
	VerifiedDate  string       `json:"verified_date,omitempty" yaml:"verified_date,omitempty"`
}

// Identifiers returns the record's non-empty identifiers in lookup order.
func (r CredentialRecord) Identifiers() []string {
	ids := make([]string, 0, 3)
	for _, v := range []string{r.CertificateID, r.RollNumber, r.USN} {
		if v != "" {
			ids = append(ids, v)
		}
	}
	return ids
}

// Normalize trims every text field and applies the default status.
func (r CredentialRecord) Normalize() CredentialRecord {
	r.StudentName = strings.TrimSpace(r.StudentName)
	r.CertificateID = strings.TrimSpace(r.CertificateID)
	r.RollNumber = strings.TrimSpace(r.RollNumber)
	r.USN = strings.TrimSpace(r.USN)
	r.Institution = strings.TrimSpace(r.Institution)
	r.College = strings.TrimSpace(r.College)
	r.Course = strings.TrimSpace(r.Course)
	r.Grade = strings.TrimSpace(r.Grade)
	r.Type = strings.TrimSpace(r.Type)
	if r.Status == "" {
		r.Status = RecordStatusActive
	}
	return r
}

// Validate checks the fields required to issue a record.
func (r CredentialRecord) Validate() error {
	if r.StudentName == "" {
		return dErrors.New(dErrors.CodeValidation, "student_name is required")
	}
	if r.CertificateID == "" {
		return dErrors.New(dErrors.CodeValidation, "certificate_id is required")
	}
	if r.Institution == "" {
		return dErrors.New(dErrors.CodeValidation, "institution is required")
	}
	if r.YearOfPassing < 1900 || r.YearOfPassing > 2100 {
		return dErrors.New(dErrors.CodeValidation, "year_of_passing must be between 1900 and 2100")
	}
	switch r.Status {
	case RecordStatusActive, RecordStatusRevoked:
	default:
		return dErrors.New(dErrors.CodeValidation, "status must be active or revoked")
	}
	return nil
}

// RecordView is a read-only view over issued credentials.
type RecordView interface {
	// Lookup resolves an identifier against certificate_id, then roll_number,
	// then usn. Empty identifiers never resolve.
	Lookup(identifier string) (CredentialRecord, bool)
	// All returns the records in insertion order.
	All() []CredentialRecord
}

// CatalogueStats summarises the issued credentials.
type CatalogueStats struct {
	TotalCertificates  int      `json:"total_certificates"`
	ActiveCertificates int      `json:"active_certificates"`
	CertificateTypes   []string `json:"certificate_types"`
	Institutions       []string `json:"institutions"`
}
